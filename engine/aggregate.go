package engine

import (
	"fmt"
	"strings"

	"github.com/vegasq/tabq/table"
)

// group is a set of rows sharing the same group-by values.
type group struct {
	values table.Row
	rows   []table.Row
}

// aggregation is a validated AggregationRequest.
type aggregation struct {
	column   string
	function string
	output   string
}

// computeGroupKey builds a hashable key from the group-by values. ok is
// false when any group-by value is null; such rows belong to no group.
func computeGroupKey(row table.Row, groupBy []string) (string, bool) {
	var key strings.Builder
	for i, col := range groupBy {
		value := row[col]
		if value == nil {
			return "", false
		}
		if i > 0 {
			key.WriteString("\x00||\x00")
		}
		key.WriteString(col)
		key.WriteString("\x00:\x00")
		key.WriteString(fmt.Sprintf("%#v", value))
	}
	return key.String(), true
}

// ApplyAggregations groups and reduces the table.
//
// With group-by columns the output holds one row per distinct group-by tuple
// in first-seen order; without them it holds a single row. Output columns are
// the group-by columns followed by {column}_{function} per aggregation, in
// request order. Missing columns, unknown functions, failed reductions and
// colliding output names are skipped with diagnostics. With no aggregations
// the table passes through unchanged.
func ApplyAggregations(tbl *table.Table, groupBy []string, requests []AggregationRequest) (*table.Table, []Diagnostic) {
	if len(requests) == 0 {
		return tbl, nil
	}
	diags := &diagnostics{stage: StageAggregation}

	keys := make([]string, 0, len(groupBy))
	isKey := make(map[string]bool, len(groupBy))
	for i, col := range groupBy {
		if !tbl.HasColumn(col) {
			diags.add(i, configError("group-by column %q not found", col))
			continue
		}
		if isKey[col] {
			continue
		}
		isKey[col] = true
		keys = append(keys, col)
	}

	aggs := make([]aggregation, 0, len(requests))
	outputs := make(map[string]bool, len(requests))
	for i, req := range requests {
		fn, ok := table.CanonicalFunc(req.Function)
		if !ok {
			diags.add(i, configError("unsupported aggregate function %q", req.Function))
			continue
		}
		if !tbl.HasColumn(req.Column) {
			diags.add(i, configError("aggregation column %q not found", req.Column))
			continue
		}
		name := req.OutputName()
		if isKey[name] {
			diags.add(i, configError("aggregation output %q collides with a group-by column", name))
			continue
		}
		if outputs[name] {
			diags.add(i, configError("duplicate aggregation %q", name))
			continue
		}
		outputs[name] = true
		aggs = append(aggs, aggregation{column: req.Column, function: fn, output: name})
	}

	var groups []*group
	if len(keys) == 0 {
		groups = []*group{{values: table.Row{}, rows: allRows(tbl)}}
	} else {
		groups = groupRows(tbl, keys)
	}

	columns := append([]string{}, keys...)
	results := make([]table.Row, len(groups))
	for g, grp := range groups {
		results[g] = make(table.Row, len(keys)+len(aggs))
		for _, col := range keys {
			results[g][col] = grp.values[col]
		}
	}

	for i, agg := range aggs {
		reduced, err := reduceGroups(groups, agg)
		if err != nil {
			diags.add(requestIndex(requests, agg, i), err)
			continue
		}
		for g := range groups {
			results[g][agg.output] = reduced[g]
		}
		columns = append(columns, agg.output)
	}

	if len(columns) == len(keys) {
		// every aggregation was skipped
		return table.Empty(), diags.list
	}
	return table.New(columns, results), diags.list
}

// groupRows partitions rows by key columns in first-seen order.
func groupRows(tbl *table.Table, keys []string) []*group {
	index := make(map[string]*group)
	var groups []*group

	for i := 0; i < tbl.Len(); i++ {
		row := tbl.Row(i)
		key, ok := computeGroupKey(row, keys)
		if !ok {
			continue
		}
		if grp, exists := index[key]; exists {
			grp.rows = append(grp.rows, row)
			continue
		}
		values := make(table.Row, len(keys))
		for _, col := range keys {
			values[col] = row[col]
		}
		grp := &group{values: values, rows: []table.Row{row}}
		index[key] = grp
		groups = append(groups, grp)
	}
	return groups
}

func allRows(tbl *table.Table) []table.Row {
	rows := make([]table.Row, tbl.Len())
	for i := range rows {
		rows[i] = tbl.Row(i)
	}
	return rows
}

// reduceGroups reduces one aggregation for every group. Any failing group
// fails the whole aggregation.
func reduceGroups(groups []*group, agg aggregation) ([]interface{}, error) {
	out := make([]interface{}, len(groups))
	for g, grp := range groups {
		values := make([]interface{}, len(grp.rows))
		for i, row := range grp.rows {
			values[i] = row[agg.column]
		}
		result, err := table.Reduce(agg.function, values)
		if err != nil {
			return nil, fmt.Errorf("%w: %s(%s): %v", ErrConfiguration, agg.function, agg.column, err)
		}
		out[g] = result
	}
	return out, nil
}

// requestIndex finds the position of agg in the original request list.
func requestIndex(requests []AggregationRequest, agg aggregation, fallback int) int {
	for i, req := range requests {
		if req.Column == agg.column && req.OutputName() == agg.output {
			return i
		}
	}
	return fallback
}
