package core

import (
	"fmt"
)

// DefaultPreviewRows is the number of rows shown in table previews.
const DefaultPreviewRows = 1000

// Column is a named, ordered sequence of cell values.
type Column struct {
	Name   string
	Values []string
}

// Table is an ordered sequence of named columns. Rows are aligned by
// position: row i is made of Values[i] of every column.
//
// Every column must have the same length; use Validate to check.
type Table struct {
	Columns []Column
}

// NewTable builds a table from a header and row-major records.
// Every record must have exactly len(header) fields.
func NewTable(header []string, rows [][]string) (*Table, error) {
	t := &Table{Columns: make([]Column, len(header))}
	for i, name := range header {
		t.Columns[i] = Column{Name: name, Values: make([]string, 0, len(rows))}
	}
	for r, row := range rows {
		if len(row) != len(header) {
			return nil, fmt.Errorf("row %d: expected %d fields, got %d", r+1, len(header), len(row))
		}
		for i, cell := range row {
			t.Columns[i].Values = append(t.Columns[i].Values, cell)
		}
	}
	return t, nil
}

// NumRows returns the number of rows. A table without columns has no rows.
func (t *Table) NumRows() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the first column with the given name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Row returns a copy of row i in column order.
func (t *Table) Row(i int) []string {
	row := make([]string, len(t.Columns))
	for c := range t.Columns {
		row[c] = t.Columns[c].Values[i]
	}
	return row
}

// Rows returns all rows in row-major order.
func (t *Table) Rows() [][]string {
	n := t.NumRows()
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		rows[i] = t.Row(i)
	}
	return rows
}

// Validate reports whether t satisfies the equal-length column invariant.
func (t *Table) Validate() error {
	if t == nil {
		return fmt.Errorf("nil table")
	}
	if len(t.Columns) == 0 {
		return nil
	}
	want := len(t.Columns[0].Values)
	for i, c := range t.Columns[1:] {
		if len(c.Values) != want {
			return fmt.Errorf("column %d (%q) has %d values, column 0 (%q) has %d",
				i+1, c.Name, len(c.Values), t.Columns[0].Name, want)
		}
	}
	return nil
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{Columns: make([]Column, len(t.Columns))}
	for i, c := range t.Columns {
		out.Columns[i] = Column{Name: c.Name, Values: append([]string(nil), c.Values...)}
	}
	return out
}

// Head returns a table holding at most the first n rows of t.
// The returned columns share storage with t and must not be modified.
func (t *Table) Head(n int) *Table {
	if n < 0 || n >= t.NumRows() {
		return t
	}
	out := &Table{Columns: make([]Column, len(t.Columns))}
	for i, c := range t.Columns {
		out.Columns[i] = Column{Name: c.Name, Values: c.Values[:n]}
	}
	return out
}
