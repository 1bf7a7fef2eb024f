package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// LoadCSV parses comma-separated text whose first line is the header.
// Blank input yields an empty table. Short records leave the missing cells nil.
func LoadCSV(r io.Reader) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	text := strings.TrimSpace(strings.TrimPrefix(string(raw), "\ufeff"))
	if text == "" {
		return &Table{Rows: []Row{}, Headers: []string{}}, nil
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return &Table{Rows: []Row{}, Headers: []string{}}, nil
	}

	return newTable(records[0], records[1:]), nil
}
