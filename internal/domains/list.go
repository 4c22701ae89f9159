// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package domains

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Normalize lowercases a domain and strips surrounding whitespace, a URL
// scheme, any path, a trailing dot and a leading "www.".
func Normalize(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimSuffix(d, ".")
	return strings.TrimPrefix(d, "www.")
}

// Merge concatenates lists, normalizing each entry and dropping empties
// and repeats. First occurrence wins, so earlier lists keep their order.
func Merge(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, d := range list {
			n := Normalize(d)
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// ReadList loads a domain list. The extension selects the format: .json
// holds an array of strings, .yaml or .yml a sequence, and anything else
// one domain per line with "#" comments.
func ReadList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading domain list: %w", err)
	}

	var list []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			line := sc.Text()
			if i := strings.IndexByte(line, '#'); i >= 0 {
				line = line[:i]
			}
			if line = strings.TrimSpace(line); line != "" {
				list = append(list, line)
			}
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", path, err)
		}
	}
	return Merge(list), nil
}

// WriteList saves domains in the format selected by the path extension,
// mirroring ReadList.
func WriteList(path string, domains []string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if domains == nil {
		domains = []string{}
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(domains, "", "  ")
		data = append(data, '\n')
	case ".yaml", ".yml":
		data, err = yaml.Marshal(domains)
	default:
		var b strings.Builder
		for _, d := range domains {
			b.WriteString(d)
			b.WriteByte('\n')
		}
		data = []byte(b.String())
	}
	if err != nil {
		return fmt.Errorf("encoding domain list: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
