// Package loader reads row data and row transactions from JSON and JSONL
// files, and keeps viewer state files out of version control.
package loader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
)

// ErrNotArray is returned by Records when the loaded rows are not a list.
var ErrNotArray = errors.New("row data is not an array")

// maxLineSize bounds a single JSONL record.
const maxLineSize = 10 * 1024 * 1024

// IsJSONL reports whether path names a line-delimited file.
func IsJSONL(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return true
	}
	return false
}

// LoadRows reads path as a JSON document or, for .jsonl and .ndjson files,
// as one JSON record per line. A JSON document that is not an array is
// returned as is; the row model decides what to do with it.
func LoadRows(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rows: %w", err)
	}
	defer f.Close()

	rows, err := DecodeRows(f, IsJSONL(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// DecodeRows decodes rows from r. With jsonl set, blank lines are skipped and
// every other line must hold one JSON value.
func DecodeRows(r io.Reader, jsonl bool) (any, error) {
	if !jsonl {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read rows: %w", err)
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return []any{}, nil
		}
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode rows: %w", err)
		}
		return v, nil
	}

	rows := []any{}
	err := scanLines(r, func(lineNum int, line []byte) error {
		var v any
		if err := json.Unmarshal(line, &v); err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		rows = append(rows, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Records converts decoded rows to map records, the shape recipes and
// config field lookups work on. Non-object elements are skipped.
func Records(rows any) ([]map[string]any, error) {
	items, ok := rows.([]any)
	if !ok {
		return nil, ErrNotArray
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if rec, ok := item.(map[string]any); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// scanLines calls fn for every non-blank line of r, numbering lines from 1.
func scanLines(r io.Reader, fn func(lineNum int, line []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(lineNum, line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read lines: %w", err)
	}
	return nil
}
