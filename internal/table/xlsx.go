package table

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// LoadXLSX parses the first worksheet of a workbook; its first row is the header.
func LoadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Table{Rows: []Row{}, Headers: []string{}}, nil
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(records) == 0 {
		return &Table{Rows: []Row{}, Headers: []string{}}, nil
	}

	return newTable(records[0], records[1:]), nil
}
