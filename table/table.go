// Package table provides the in-memory dataset representation used by the
// query engine.
//
// A Table is an ordered list of unique column names plus an ordered list of
// rows. Each row maps every declared column to a scalar value: nil, bool,
// int64, float64, string or time.Time. All mutating operations return a new
// Table and leave the receiver untouched, so a Table can be handed to the next
// pipeline stage without defensive copies by the caller.
//
// Example usage:
//
//	tbl := table.New([]string{"region", "sales"}, []table.Row{
//	    {"region": "west", "sales": int64(10)},
//	})
//	tbl, err := tbl.SetColumn("double", []interface{}{int64(20)})
package table

import (
	"fmt"
	"sort"
)

// Row maps column names to values.
type Row map[string]interface{}

// Table is an ordered, row-oriented view over a dataset.
type Table struct {
	columns []string
	index   map[string]int
	rows    []Row
}

// New creates a table from column names and rows.
//
// Duplicate column names are collapsed (first position wins). Rows missing a
// declared column get nil for it; keys not declared as columns are dropped.
func New(columns []string, rows []Row) *Table {
	t := &Table{index: make(map[string]int, len(columns))}
	for _, col := range columns {
		if _, dup := t.index[col]; dup {
			continue
		}
		t.index[col] = len(t.columns)
		t.columns = append(t.columns, col)
	}

	t.rows = make([]Row, len(rows))
	for i, row := range rows {
		normalized := make(Row, len(t.columns))
		for _, col := range t.columns {
			normalized[col] = row[col]
		}
		t.rows[i] = normalized
	}
	return t
}

// Empty returns a table with no columns and no rows.
func Empty() *Table {
	return New(nil, nil)
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// HasColumn reports whether the column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns the i-th row. The returned map must not be modified.
func (t *Table) Row(i int) Row {
	return t.rows[i]
}

// Rows returns copies of all rows, suitable for handing to callers.
func (t *Table) Rows() []map[string]interface{} {
	out := make([]map[string]interface{}, len(t.rows))
	for i, row := range t.rows {
		cp := make(map[string]interface{}, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}

// Column returns the values of a column in row order.
func (t *Table) Column(name string) ([]interface{}, error) {
	if !t.HasColumn(name) {
		return nil, fmt.Errorf("column %q not found", name)
	}
	values := make([]interface{}, len(t.rows))
	for i, row := range t.rows {
		values[i] = row[name]
	}
	return values, nil
}

// SetColumn adds a column or overwrites an existing one in place.
//
// An existing column keeps its position; a new column is appended. The
// values slice must have one entry per row.
func (t *Table) SetColumn(name string, values []interface{}) (*Table, error) {
	if len(values) != len(t.rows) {
		return nil, fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), len(t.rows))
	}

	columns := t.Columns()
	if !t.HasColumn(name) {
		columns = append(columns, name)
	}

	rows := make([]Row, len(t.rows))
	for i, row := range t.rows {
		cp := copyRow(row)
		cp[name] = values[i]
		rows[i] = cp
	}
	return fromParts(columns, rows), nil
}

// Rename renames columns using an old->new mapping.
//
// Renames are applied simultaneously, so {"a": "b", "b": "c"} moves a to b
// and b to c. Unknown source columns are ignored. When a target collides with
// a column that is not itself renamed away, the renamed column replaces it and
// keeps the source position. When several sources share a target, the first
// in column order is renamed and the others keep their names.
func (t *Table) Rename(mapping map[string]string) *Table {
	applied := make(map[string]string)
	claimed := make(map[string]bool)
	for _, oldName := range t.columns {
		newName, ok := mapping[oldName]
		if !ok || oldName == newName || claimed[newName] {
			continue
		}
		claimed[newName] = true
		applied[oldName] = newName
	}
	if len(applied) == 0 {
		return t
	}

	targets := make(map[string]bool, len(applied))
	for _, newName := range applied {
		targets[newName] = true
	}

	columns := make([]string, 0, len(t.columns))
	seen := make(map[string]bool, len(t.columns))
	for _, col := range t.columns {
		name := col
		if newName, ok := applied[col]; ok {
			name = newName
		} else if targets[col] {
			// Overwritten by a renamed column.
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		columns = append(columns, name)
	}

	rows := make([]Row, len(t.rows))
	for i, row := range t.rows {
		out := make(Row, len(columns))
		for _, col := range t.columns {
			if newName, ok := applied[col]; ok {
				out[newName] = row[col]
			} else if !targets[col] {
				out[col] = row[col]
			}
		}
		rows[i] = out
	}
	return fromParts(columns, rows)
}

// Drop removes the listed columns. Unknown columns are ignored.
func (t *Table) Drop(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		if t.HasColumn(name) {
			drop[name] = true
		}
	}
	if len(drop) == 0 {
		return t
	}

	columns := make([]string, 0, len(t.columns))
	for _, col := range t.columns {
		if !drop[col] {
			columns = append(columns, col)
		}
	}

	rows := make([]Row, len(t.rows))
	for i, row := range t.rows {
		out := make(Row, len(columns))
		for _, col := range columns {
			out[col] = row[col]
		}
		rows[i] = out
	}
	return fromParts(columns, rows)
}

// Filter keeps the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	rows := make([]Row, 0, len(t.rows))
	for _, row := range t.rows {
		if keep(row) {
			rows = append(rows, row)
		}
	}
	return fromParts(t.Columns(), rows)
}

// SortStable orders rows with less, keeping the relative order of equal rows.
func (t *Table) SortStable(less func(a, b Row) bool) *Table {
	rows := make([]Row, len(t.rows))
	copy(rows, t.rows)
	sort.SliceStable(rows, func(i, j int) bool {
		return less(rows[i], rows[j])
	})
	return fromParts(t.Columns(), rows)
}

// Head returns the first n rows. n <= 0 returns the table unchanged.
func (t *Table) Head(n int) *Table {
	if n <= 0 || n >= len(t.rows) {
		return t
	}
	rows := make([]Row, n)
	copy(rows, t.rows[:n])
	return fromParts(t.Columns(), rows)
}

// Concat appends the rows of several tables.
//
// The resulting column list is the union of all columns in first-seen order;
// rows lacking a column get nil for it.
func Concat(tables ...*Table) *Table {
	var columns []string
	var rows []Row
	for _, tbl := range tables {
		if tbl == nil {
			continue
		}
		columns = append(columns, tbl.columns...)
		rows = append(rows, tbl.rows...)
	}
	return New(columns, rows)
}

// fromParts builds a table from columns and already-normalized rows.
func fromParts(columns []string, rows []Row) *Table {
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		index[col] = i
	}
	return &Table{columns: columns, index: index, rows: rows}
}

func copyRow(row Row) Row {
	cp := make(Row, len(row)+1)
	for k, v := range row {
		cp[k] = v
	}
	return cp
}
