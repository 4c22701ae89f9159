// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger persists enriched records as append-only JSON Lines.
// Each record is written as one line and synced before Append returns, so
// a crash loses at most the record being written.
package ledger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// ErrCorruptRecord is returned for an unparseable line that is not the
// torn tail of the file.
var ErrCorruptRecord = errors.New("corrupt record")

// Writer appends records to a JSONL file. It is safe for concurrent use.
type Writer struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// OpenWriter opens path for appending, creating it and its parent
// directories if needed. A final line without a newline is either
// terminated, when it holds a complete JSON value, or truncated away as
// the remains of an interrupted write.
func OpenWriter(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}

	if err := repairTail(path); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &Writer{f: f, path: path}, nil
}

// Path returns the file the writer appends to.
func (w *Writer) Path() string { return w.path }

// Append writes v as a single JSON line and syncs it to disk.
func (w *Writer) Append(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.f.Write(data); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", w.path, err)
	}
	return nil
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

// repairTail fixes a file whose last line lacks a newline.
func repairTail(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if len(data) == 0 || data[len(data)-1] == '\n' {
		return nil
	}

	start := bytes.LastIndexByte(data, '\n') + 1
	if json.Valid(bytes.TrimSpace(data[start:])) {
		if _, err := f.WriteAt([]byte{'\n'}, int64(len(data))); err != nil {
			return fmt.Errorf("terminating last record: %w", err)
		}
		return nil
	}
	if err := f.Truncate(int64(start)); err != nil {
		return fmt.Errorf("truncating torn record: %w", err)
	}
	return nil
}

// Stats describes a Read pass.
type Stats struct {
	Records int
	// Torn counts an unterminated, unparseable final line that was skipped.
	Torn int
}

// Read streams every record in path to fn in file order. Blank lines are
// ignored. A missing file yields no records. An unparseable final line
// without a newline is treated as a torn write and skipped; any other
// unparseable line fails with ErrCorruptRecord.
func Read(path string, fn func(raw json.RawMessage) error) (Stats, error) {
	var stats Stats

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	for line := 1; ; line++ {
		data, readErr := br.ReadBytes('\n')
		if readErr != nil && readErr != io.EOF {
			return stats, fmt.Errorf("reading %s: %w", path, readErr)
		}
		terminated := readErr == nil

		text := bytes.TrimSpace(data)
		if len(text) > 0 {
			if !json.Valid(text) {
				if !terminated {
					stats.Torn++
					break
				}
				return stats, fmt.Errorf("%s line %d: %w", path, line, ErrCorruptRecord)
			}
			if err := fn(json.RawMessage(text)); err != nil {
				return stats, err
			}
			stats.Records++
		}

		if !terminated {
			break
		}
	}
	return stats, nil
}

// ReadEnriched decodes every record in path as an EnrichedClaim.
func ReadEnriched(path string, fn func(types.EnrichedClaim) error) (Stats, error) {
	return Read(path, func(raw json.RawMessage) error {
		var rec types.EnrichedClaim
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptRecord, err)
		}
		return fn(rec)
	})
}

// CompletedIDs returns the claim IDs already present in path.
func CompletedIDs(path string) (map[string]bool, error) {
	done := make(map[string]bool)
	_, err := Read(path, func(raw json.RawMessage) error {
		var rec struct {
			ID string `json:"claim_id"`
		}
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptRecord, err)
		}
		if rec.ID != "" {
			done[rec.ID] = true
		}
		return nil
	})
	return done, err
}

// ExportArray rewrites the JSONL records of src as a single indented JSON
// array at dst. The array is written to a temporary file and renamed into
// place. It returns the number of records exported.
func ExportArray(src, dst string) (int, error) {
	if dir := filepath.Dir(dst); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("creating export directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("creating temporary export: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	bw.WriteString("[")
	var indented bytes.Buffer
	n := 0
	stats, err := Read(src, func(raw json.RawMessage) error {
		indented.Reset()
		if err := json.Indent(&indented, raw, "  ", "  "); err != nil {
			return err
		}
		if n > 0 {
			bw.WriteString(",")
		}
		n++
		bw.WriteString("\n  ")
		_, err := bw.Write(indented.Bytes())
		return err
	})
	if err != nil {
		tmp.Close()
		return 0, err
	}
	if stats.Records > 0 {
		bw.WriteString("\n")
	}
	bw.WriteString("]\n")

	if err := bw.Flush(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("writing export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing export: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return 0, fmt.Errorf("renaming export: %w", err)
	}
	return stats.Records, nil
}
