// Package lookup provides the static reference data the refiners consult:
// legacy identifier tables and data catalog descriptions.
package lookup

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Table maps a search key to a legacy identifier. It is built from a
// two-column CSV file without a header row. When a key repeats, the first
// row wins.
type Table struct {
	rows map[string]string
}

// ParseTable reads a two-column CSV mapping.
func ParseTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	t := &Table{rows: make(map[string]string)}
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading mapping row %d: %w", line, err)
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("mapping row %d: expected 2 columns, got %d", line, len(record))
		}

		key := strings.TrimSpace(record[0])
		value := strings.TrimSpace(record[1])
		if key == "" || value == "" {
			continue
		}
		if _, exists := t.rows[key]; !exists {
			t.rows[key] = value
		}
	}
	return t, nil
}

// LoadTable reads a mapping table from a file path.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening mapping file: %w", err)
	}
	defer f.Close()

	return ParseTable(f)
}

// Lookup returns the identifier mapped to key.
func (t *Table) Lookup(key string) (string, bool) {
	if t == nil {
		return "", false
	}
	v, ok := t.rows[key]
	return v, ok
}

// Len returns the number of distinct keys.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}
