// Package table provides the row source for the feature pipeline: ordered rows
// keyed by column name, the header order, and an optional datetime column.
package table

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Row maps a column name to a textual or numeric cell value.
type Row map[string]interface{}

// Table is a parsed tabular input.
type Table struct {
	Rows    []Row
	Headers []string
	// DatetimeKey names the datetime column, "" when there is none.
	// It is informational only and never becomes a numeric feature.
	DatetimeKey string
}

// Format identifies an input encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported format: %q (supported: csv, xlsx)", s)
	}
}

// FormatFromFilename derives the format from a file extension.
func FormatFromFilename(name string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return "", fmt.Errorf("cannot infer format from %q", name)
	}
	return ParseFormat(ext)
}

// Load reads a table in the given format and infers the datetime column.
func Load(r io.Reader, format Format) (*Table, error) {
	switch format {
	case FormatCSV:
		return LoadCSV(r)
	case FormatXLSX:
		return LoadXLSX(r)
	default:
		return nil, fmt.Errorf("unsupported format: %q", format)
	}
}

// InferDatetimeKey returns the first header whose name contains "date" or
// "time" (case-insensitive), or "" when no header qualifies.
func InferDatetimeKey(headers []string) string {
	for _, h := range headers {
		lower := strings.ToLower(h)
		if strings.Contains(lower, "date") || strings.Contains(lower, "time") {
			return h
		}
	}
	return ""
}

// GuessTarget returns the first header that is not the datetime column.
func GuessTarget(t *Table) string {
	if t == nil {
		return ""
	}
	for _, h := range t.Headers {
		if h != t.DatetimeKey {
			return h
		}
	}
	return ""
}

// HasHeader reports whether name is one of the table's headers.
func (t *Table) HasHeader(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Append adds observed rows to the end of the table.
func (t *Table) Append(rows ...Row) {
	t.Rows = append(t.Rows, rows...)
}

// Clone returns a copy whose rows can be mutated independently.
func (t *Table) Clone() *Table {
	out := &Table{
		Rows:        make([]Row, len(t.Rows)),
		Headers:     append([]string(nil), t.Headers...),
		DatetimeKey: t.DatetimeKey,
	}
	for i, r := range t.Rows {
		cp := make(Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out
}

// newTable builds a table from a header line and positional records.
func newTable(header []string, records [][]string) *Table {
	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		if isBlankRecord(rec) {
			continue
		}
		row := make(Row, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			} else {
				row[h] = nil
			}
		}
		rows = append(rows, row)
	}

	return &Table{
		Rows:        rows,
		Headers:     headers,
		DatetimeKey: InferDatetimeKey(headers),
	}
}

func isBlankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
