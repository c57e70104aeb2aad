package engine

import (
	"strings"

	"github.com/vegasq/tabq/table"
)

type sortKey struct {
	column string
	desc   bool
}

// sortTable orders rows by keys, stable, nulls last in both directions.
func sortTable(tbl *table.Table, keys []sortKey) *table.Table {
	if tbl.Len() < 2 || len(keys) == 0 {
		return tbl
	}

	return tbl.SortStable(func(a, b table.Row) bool {
		for _, key := range keys {
			valA := a[key.column]
			valB := b[key.column]

			if valA == nil && valB == nil {
				continue
			}
			if valA == nil {
				return false
			}
			if valB == nil {
				return true
			}

			cmp := compareForSort(valA, valB)
			if cmp != 0 {
				if key.desc {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return false
	})
}

// compareForSort orders two non-nil values. Pairs that table.Compare cannot
// order fall back to their kind names so mixed columns still sort
// consistently.
func compareForSort(a, b interface{}) int {
	if cmp, ok := table.Compare(a, b); ok {
		return cmp
	}
	return strings.Compare(string(table.KindOf(a)), string(table.KindOf(b)))
}

// ApplySort sorts by the requested keys, primary key first.
//
// Keys naming missing columns are dropped; an order other than asc/desc is
// treated as asc. Both are reported as configuration diagnostics.
func ApplySort(tbl *table.Table, sortBy []SortRequest) (*table.Table, []Diagnostic) {
	diags := &diagnostics{stage: StageSort}

	keys := make([]sortKey, 0, len(sortBy))
	for i, req := range sortBy {
		if !tbl.HasColumn(req.Column) {
			diags.add(i, configError("sort column %q not found", req.Column))
			continue
		}

		desc := false
		switch strings.ToLower(strings.TrimSpace(req.Order)) {
		case "", OrderAsc:
		case OrderDesc:
			desc = true
		default:
			diags.add(i, configError("unsupported sort order %q for %q, using asc", req.Order, req.Column))
		}
		keys = append(keys, sortKey{column: req.Column, desc: desc})
	}

	return sortTable(tbl, keys), diags.list
}

// ApplyLimit keeps the first n rows. n <= 0 means no limit.
func ApplyLimit(tbl *table.Table, n int) *table.Table {
	return tbl.Head(n)
}
