// Package sheet provides an in-memory table with an ordered, runtime-defined
// column set. Every cell is a pgtype.Text so a missing value (Valid=false) is
// distinguishable from an empty string.
package sheet

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// Null is the missing-value cell.
var Null = pgtype.Text{}

// Text returns a valid cell holding s, even when s is empty.
func Text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: true}
}

// Blank reports whether a cell is null or holds only whitespace.
func Blank(c pgtype.Text) bool {
	return !c.Valid || strings.TrimSpace(c.String) == ""
}

// Table is a rectangular grid of nullable text cells addressed by column name.
// Column order is preserved and columns may be added at any time.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]pgtype.Text
}

// New creates an empty table with the given columns.
// Duplicate names keep their first position.
func New(columns ...string) *Table {
	t := &Table{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		if _, ok := t.index[c]; ok {
			continue
		}
		t.index[c] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return t
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.rows) == 0
}

// Has reports whether the column exists.
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// AppendRow adds a row. Missing trailing cells are null; extra cells are dropped.
func (t *Table) AppendRow(cells ...pgtype.Text) {
	row := make([]pgtype.Text, len(t.columns))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// AppendStrings adds a row of valid cells built from strings.
func (t *Table) AppendStrings(values ...string) {
	cells := make([]pgtype.Text, len(values))
	for i, v := range values {
		cells[i] = Text(v)
	}
	t.AppendRow(cells...)
}

// AppendRecord adds a row from a column-keyed map. Unknown keys are ignored.
func (t *Table) AppendRecord(record map[string]pgtype.Text) {
	row := make([]pgtype.Text, len(t.columns))
	for col, v := range record {
		if i, ok := t.index[col]; ok {
			row[i] = v
		}
	}
	t.rows = append(t.rows, row)
}

// Get returns the cell at row i in column. Unknown columns read as null.
func (t *Table) Get(i int, column string) pgtype.Text {
	j, ok := t.index[column]
	if !ok {
		return Null
	}
	return t.rows[i][j]
}

// String returns the cell text at row i, or "" when null.
func (t *Table) String(i int, column string) string {
	return t.Get(i, column).String
}

// Set writes a cell. It panics if the column does not exist.
func (t *Table) Set(i int, column string, v pgtype.Text) {
	j, ok := t.index[column]
	if !ok {
		panic(fmt.Sprintf("sheet: unknown column %q", column))
	}
	t.rows[i][j] = v
}

// AddColumn appends a column with every cell set to fill.
// If the column already exists its cells are overwritten with fill.
func (t *Table) AddColumn(column string, fill pgtype.Text) {
	if j, ok := t.index[column]; ok {
		for _, row := range t.rows {
			row[j] = fill
		}
		return
	}
	t.index[column] = len(t.columns)
	t.columns = append(t.columns, column)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], fill)
	}
}

// Column returns a copy of one column's cells.
func (t *Table) Column(column string) []pgtype.Text {
	out := make([]pgtype.Text, len(t.rows))
	j, ok := t.index[column]
	if !ok {
		return out
	}
	for i, row := range t.rows {
		out[i] = row[j]
	}
	return out
}

// Rename renames columns using an old -> new mapping. Renaming onto an
// existing column name is refused and reported in the returned slice.
func (t *Table) Rename(mapping map[string]string) (conflicts []string) {
	for old, name := range mapping {
		if old == name {
			continue
		}
		j, ok := t.index[old]
		if !ok {
			continue
		}
		if _, taken := t.index[name]; taken {
			conflicts = append(conflicts, name)
			continue
		}
		delete(t.index, old)
		t.index[name] = j
		t.columns[j] = name
	}
	sort.Strings(conflicts)
	return conflicts
}

// Select returns a new table holding only the named columns, in the given
// order. Unknown names are skipped.
func (t *Table) Select(columns ...string) *Table {
	out := New()
	var src []int
	for _, c := range columns {
		j, ok := t.index[c]
		if !ok || out.Has(c) {
			continue
		}
		out.index[c] = len(out.columns)
		out.columns = append(out.columns, c)
		src = append(src, j)
	}
	out.rows = make([][]pgtype.Text, len(t.rows))
	for i, row := range t.rows {
		nr := make([]pgtype.Text, len(src))
		for k, j := range src {
			nr[k] = row[j]
		}
		out.rows[i] = nr
	}
	return out
}

// Filter returns a new table with the rows for which keep returns true.
func (t *Table) Filter(keep func(i int) bool) *Table {
	out := t.shape()
	for i, row := range t.rows {
		if keep(i) {
			nr := make([]pgtype.Text, len(row))
			copy(nr, row)
			out.rows = append(out.rows, nr)
		}
	}
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	return t.Filter(func(int) bool { return true })
}

// EmptyLike returns a table with the same columns and no rows.
func (t *Table) EmptyLike() *Table {
	return t.shape()
}

// SortBy stably sorts rows ascending by the given columns. Null cells sort
// after every valid value.
func (t *Table) SortBy(columns ...string) {
	var keys []int
	for _, c := range columns {
		if j, ok := t.index[c]; ok {
			keys = append(keys, j)
		}
	}
	sort.SliceStable(t.rows, func(a, b int) bool {
		for _, j := range keys {
			x, y := t.rows[a][j], t.rows[b][j]
			switch {
			case x.Valid && !y.Valid:
				return true
			case !x.Valid && y.Valid:
				return false
			case !x.Valid && !y.Valid:
				continue
			case x.String != y.String:
				return x.String < y.String
			}
		}
		return false
	})
}

// Map rewrites every cell of a column in place.
func (t *Table) Map(column string, fn func(pgtype.Text) pgtype.Text) {
	j, ok := t.index[column]
	if !ok {
		return
	}
	for _, row := range t.rows {
		row[j] = fn(row[j])
	}
}

func (t *Table) shape() *Table {
	out := &Table{
		columns: make([]string, len(t.columns)),
		index:   make(map[string]int, len(t.index)),
	}
	copy(out.columns, t.columns)
	for k, v := range t.index {
		out.index[k] = v
	}
	return out
}
