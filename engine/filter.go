package engine

import (
	"strings"

	"github.com/vegasq/tabq/table"
)

// predicate tests a single cell value.
type predicate func(v interface{}) bool

// compilePredicate builds the test for `value <op> target`. Null cells only
// satisfy ne.
func compilePredicate(op string, target interface{}) (predicate, error) {
	op = strings.ToLower(strings.TrimSpace(op))

	switch op {
	case OpEq, OpNe, OpGt, OpLt, OpGte, OpLte, OpContains:
		if list, ok := toList(target); ok {
			return nil, configError("operator %q needs a scalar value, got a list of %d", op, len(list))
		}
	}
	target = table.Normalize(target)

	switch op {
	case OpEq:
		return func(v interface{}) bool {
			return v != nil && table.Equal(v, target)
		}, nil
	case OpNe:
		return func(v interface{}) bool {
			return v == nil || !table.Equal(v, target)
		}, nil
	case OpGt:
		return ordered(target, func(cmp int) bool { return cmp > 0 }), nil
	case OpLt:
		return ordered(target, func(cmp int) bool { return cmp < 0 }), nil
	case OpGte:
		return ordered(target, func(cmp int) bool { return cmp >= 0 }), nil
	case OpLte:
		return ordered(target, func(cmp int) bool { return cmp <= 0 }), nil
	case OpIn:
		list, ok := toList(target)
		if !ok {
			list = []interface{}{target}
		}
		return func(v interface{}) bool {
			if v == nil {
				return false
			}
			for _, candidate := range list {
				if table.Equal(v, candidate) {
					return true
				}
			}
			return false
		}, nil
	case OpBetween:
		bounds, ok := toList(target)
		if !ok || len(bounds) != 2 {
			return nil, configError("operator %q needs a two-element list, got %v", op, target)
		}
		low, high := bounds[0], bounds[1]
		return func(v interface{}) bool {
			lo, okLow := table.Compare(v, low)
			hi, okHigh := table.Compare(v, high)
			return okLow && okHigh && lo >= 0 && hi <= 0
		}, nil
	case OpContains:
		needle := strings.ToLower(table.FormatValue(target))
		return func(v interface{}) bool {
			if v == nil {
				return false
			}
			return strings.Contains(strings.ToLower(table.FormatValue(v)), needle)
		}, nil
	default:
		return nil, configError("unsupported operator %q", op)
	}
}

func ordered(target interface{}, accept func(cmp int) bool) predicate {
	return func(v interface{}) bool {
		cmp, ok := table.Compare(v, target)
		return ok && accept(cmp)
	}
}

// ApplyFilters keeps the rows satisfying every condition.
//
// A condition on a missing column, with an unsupported operator, or with a
// malformed value is skipped (the rows pass through) and reported as a
// configuration diagnostic.
func ApplyFilters(tbl *table.Table, filters []FilterCondition) (*table.Table, []Diagnostic) {
	diags := &diagnostics{stage: StageFilter}

	type check struct {
		column string
		test   predicate
	}
	checks := make([]check, 0, len(filters))

	for i, cond := range filters {
		if !tbl.HasColumn(cond.Column) {
			diags.add(i, configError("filter column %q not found", cond.Column))
			continue
		}
		test, err := compilePredicate(cond.Operator, cond.Value)
		if err != nil {
			diags.add(i, err)
			continue
		}
		checks = append(checks, check{column: cond.Column, test: test})
	}

	if len(checks) == 0 {
		return tbl, diags.list
	}

	filtered := tbl.Filter(func(row table.Row) bool {
		for _, c := range checks {
			if !c.test(row[c.column]) {
				return false
			}
		}
		return true
	})
	return filtered, diags.list
}
