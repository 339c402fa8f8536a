package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// MissingFileError is returned when an input file does not exist.
// It is always fatal for a run.
type MissingFileError struct {
	Role string // "ground truth" or the source id
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("%s file not found: %s", e.Role, e.Path)
}

// Table is a raw CSV file: a trimmed header and its data rows
type Table struct {
	Path   string
	Header []string
	Rows   [][]string
}

// LoadTable reads a CSV file with a header row
func LoadTable(role, path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &MissingFileError{Role: role, Path: path}
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	return ReadTable(path, f)
}

// ReadTable parses CSV content from r. path is only used for messages.
func ReadTable(path string, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // ragged rows are padded below
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%s: empty file", path)
		}
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		header[i] = strings.TrimSpace(h)
	}

	table := &Table{Path: path, Header: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if isBlank(record) {
			continue
		}
		for len(record) < len(header) {
			record = append(record, "")
		}
		table.Rows = append(table.Rows, record)
	}
	return table, nil
}

// Column returns the index of the header matching name case-insensitively, or -1
func (t *Table) Column(name string) int {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range t.Header {
		if strings.ToLower(h) == want {
			return i
		}
	}
	return -1
}

// ColumnContaining returns the first header containing sub (case-insensitive), or -1
func (t *Table) ColumnContaining(sub string) int {
	sub = strings.ToLower(sub)
	for i, h := range t.Header {
		if strings.Contains(strings.ToLower(h), sub) {
			return i
		}
	}
	return -1
}

// Cell returns the trimmed value at row/col, empty when col is out of range
func Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

var dateLayouts = []string{
	"2006-01-02",
	"02-Jan-2006",
	"02-01-2006",
	"01/02/2006",
	"2006/01/02",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate accepts the date formats seen in index exports and source files.
// The result is midnight UTC so dates compare by value.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
