// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the
// key name and the trimmed file contents are the value.
//
// Known key files: tavily-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/evidence-engine/internal/logging"
)

// TavilyAPIKey is the key file name for the search provider token.
const TavilyAPIKey = "tavily-api-key"

// envFallback maps key file names to the environment variables consulted
// when no file provides them.
var envFallback = map[string]string{
	TavilyAPIKey: "TAVILY_API_KEY",
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory is not an error; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logging.Log.WithField("secret", name).Warnf("could not read secret: %v", err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Resolve returns the first non-empty value among explicit, the loaded
// secret for key, and the key's fallback environment variable.
func Resolve(loaded map[string]string, key, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if v := loaded[key]; v != "" {
		return v
	}
	if env, ok := envFallback[key]; ok {
		return strings.TrimSpace(os.Getenv(env))
	}
	return ""
}
