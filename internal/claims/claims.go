// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package claims loads the input records to be enriched. Input is either
// a JSON array of objects or JSON Lines; every record must carry the
// claim text in a configurable field.
package claims

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// ErrMissingClaimField is returned for a record without usable claim text.
var ErrMissingClaimField = errors.New("record has no claim text")

// Default field names.
const (
	DefaultTextField = "claim"
	DefaultIDField   = "id"
)

// Options names the record fields that hold the claim text and ID.
type Options struct {
	TextField string
	IDField   string
}

func (o Options) withDefaults() Options {
	if o.TextField == "" {
		o.TextField = DefaultTextField
	}
	if o.IDField == "" {
		o.IDField = DefaultIDField
	}
	return o
}

// Load reads claims from the file at path.
func Load(path string, opts Options) ([]types.Claim, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening claims file: %w", err)
	}
	defer f.Close()

	claims, err := Decode(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return claims, nil
}

// Decode reads claims from r. A leading '[' selects JSON array input;
// anything else is read as one JSON object per line. Records without an
// ID field get "claim-<n>" with n counted from 1. IDs must be unique.
func Decode(r io.Reader, opts Options) ([]types.Claim, error) {
	opts = opts.withDefaults()

	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading claims: %w", err)
	}

	var records []map[string]any
	if first == '[' {
		dec := json.NewDecoder(br)
		dec.UseNumber()
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("parsing JSON array: %w", err)
		}
	} else {
		records, err = decodeLines(br)
		if err != nil {
			return nil, err
		}
	}

	claims := make([]types.Claim, 0, len(records))
	seen := make(map[string]int, len(records))
	for i, rec := range records {
		c, err := toClaim(rec, i+1, opts)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("record %d: duplicate id %q (first seen in record %d)", i+1, c.ID, prev)
		}
		seen[c.ID] = i + 1
		claims = append(claims, c)
	}
	return claims, nil
}

func decodeLines(r io.Reader) ([]map[string]any, error) {
	var records []map[string]any
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(text))
		dec.UseNumber()
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if rec == nil {
			return nil, fmt.Errorf("line %d: expected a JSON object", line)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning claims: %w", err)
	}
	return records, nil
}

func toClaim(rec map[string]any, pos int, opts Options) (types.Claim, error) {
	if rec == nil {
		return types.Claim{}, fmt.Errorf("record %d: expected a JSON object", pos)
	}

	text, _ := rec[opts.TextField].(string)
	text = strings.TrimSpace(text)
	if text == "" {
		return types.Claim{}, fmt.Errorf("record %d: %w (field %q)", pos, ErrMissingClaimField, opts.TextField)
	}

	var id string
	switch v := rec[opts.IDField].(type) {
	case string:
		id = strings.TrimSpace(v)
	case json.Number:
		id = v.String()
	case nil:
	default:
		return types.Claim{}, fmt.Errorf("record %d: id field %q must be a string or number", pos, opts.IDField)
	}
	if id == "" {
		id = fmt.Sprintf("claim-%d", pos)
	}

	return types.Claim{ID: id, Text: text, Record: rec}, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		next, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		switch next[0] {
		case ' ', '\t', '\r', '\n':
			br.Discard(1)
			continue
		case 0xEF:
			if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, utf8BOM) {
				br.Discard(3)
				continue
			}
		}
		return next[0], nil
	}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}
