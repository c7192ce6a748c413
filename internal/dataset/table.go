// Package dataset holds the column-oriented Table that raw uploads and
// canonical files are read into, plus the readers and writers for them.
package dataset

import "strings"

// Table is a header plus string cells. An empty cell is a missing value.
type Table struct {
	Columns []string
	Rows    [][]string
	index   map[string]int
}

func NewTable(columns []string) *Table {
	t := &Table{Columns: append([]string(nil), columns...)}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, dup := t.index[c]; !dup {
			t.index[c] = i
		}
	}
}

// Index returns the position of column, or -1.
func (t *Table) Index(column string) int {
	if t.index == nil {
		t.reindex()
	}
	if i, ok := t.index[column]; ok {
		return i
	}
	return -1
}

func (t *Table) HasColumn(column string) bool {
	return t.Index(column) >= 0
}

// MissingColumns lists the required columns the header lacks.
func (t *Table) MissingColumns(required ...string) []string {
	var missing []string
	for _, c := range required {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Get returns the trimmed cell of row under column; "" when absent.
func (t *Table) Get(row []string, column string) string {
	i := t.Index(column)
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Append adds a row, padding or truncating it to the header width.
func (t *Table) Append(row []string) {
	t.Rows = append(t.Rows, fit(row, len(t.Columns)))
}

// AppendRecord adds a row given as column -> value.
func (t *Table) AppendRecord(rec map[string]string) {
	row := make([]string, len(t.Columns))
	for c, v := range rec {
		if i := t.Index(c); i >= 0 {
			row[i] = v
		}
	}
	t.Rows = append(t.Rows, row)
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// Project returns rows of t laid out under the given header; columns t lacks
// come back empty.
func (t *Table) Project(columns []string) [][]string {
	pos := make([]int, len(columns))
	for i, c := range columns {
		pos[i] = t.Index(c)
	}
	out := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		r := make([]string, len(columns))
		for i, p := range pos {
			if p >= 0 && p < len(row) {
				r[i] = row[p]
			}
		}
		out = append(out, r)
	}
	return out
}

func fit(row []string, width int) []string {
	if len(row) == width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}
