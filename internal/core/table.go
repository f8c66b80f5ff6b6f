package core

import (
	"fmt"
	"strings"
)

// Names returns the column names in schema order.
func (t *Table) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Lookup resolves a column by exact name first, then case-insensitively
// after trimming.
func (t *Table) Lookup(name string) (int, bool) {
	if i := t.Index(name); i >= 0 {
		return i, true
	}
	want := strings.TrimSpace(name)
	for i, c := range t.Columns {
		if strings.EqualFold(strings.TrimSpace(c.Name), want) {
			return i, true
		}
	}
	return -1, false
}

// Get returns the value of the named column in row r.
func (t *Table) Get(r int, name string) (Value, error) {
	if r < 0 || r >= len(t.Rows) {
		return Value{}, fmt.Errorf("%w: %d", ErrRowOutOfRange, r)
	}
	c := t.Index(name)
	if c < 0 {
		return Value{}, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return t.Rows[r][c], nil
}

// Clone returns a deep copy; edits on the copy never reach the original.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: append([]Column(nil), t.Columns...),
		Rows:    make([][]Value, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]Value(nil), row...)
	}
	return out
}

// SetCell replaces the value at (r, c).
func (t *Table) SetCell(r, c int, v Value) error {
	if r < 0 || r >= len(t.Rows) {
		return fmt.Errorf("%w: %d", ErrRowOutOfRange, r)
	}
	if c < 0 || c >= len(t.Columns) {
		return fmt.Errorf("%w: %d", ErrColumnOutOfRange, c)
	}
	t.Rows[r][c] = v
	return nil
}

// InsertRow inserts an empty row before position at. at == len(Rows) appends.
// Rows after the insertion point shift down by one; their relative order holds.
func (t *Table) InsertRow(at int) error {
	if at < 0 || at > len(t.Rows) {
		return fmt.Errorf("%w: %d", ErrRowOutOfRange, at)
	}
	row := make([]Value, len(t.Columns))
	for i := range row {
		row[i] = Text("")
	}
	t.Rows = append(t.Rows, nil)
	copy(t.Rows[at+1:], t.Rows[at:])
	t.Rows[at] = row
	return nil
}

// DeleteRow removes row r.
func (t *Table) DeleteRow(r int) error {
	if r < 0 || r >= len(t.Rows) {
		return fmt.Errorf("%w: %d", ErrRowOutOfRange, r)
	}
	t.Rows = append(t.Rows[:r], t.Rows[r+1:]...)
	return nil
}

// ReplaceRows swaps in rows produced by an external editor. Every row must
// match the current schema width.
func (t *Table) ReplaceRows(rows [][]Value) error {
	for i, row := range rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrRowWidth, i, len(row), len(t.Columns))
		}
	}
	t.Rows = rows
	return nil
}
