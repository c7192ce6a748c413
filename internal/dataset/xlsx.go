package dataset

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX reads the first worksheet of a workbook, treating its first
// non-empty row as the header.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return NewTable(nil), nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	start := 0
	for start < len(rows) && isBlank(rows[start]) {
		start++
	}
	if start == len(rows) {
		return NewTable(nil), nil
	}

	header := rows[start]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	t := NewTable(header)
	for _, row := range rows[start+1:] {
		if isBlank(row) {
			continue
		}
		t.Append(row)
	}
	return t, nil
}
