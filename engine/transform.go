package engine

import (
	"fmt"
	"strings"

	"github.com/vegasq/tabq/expr"
	"github.com/vegasq/tabq/table"
)

// stepFunc applies one step. It returns the new table, or nil when the step
// is skipped, and an error to record. A non-nil table together with an error
// means the step was applied with row-level data problems.
type stepFunc func(tbl *table.Table, p params) (*table.Table, error)

var stepFuncs = map[string]stepFunc{
	StepRename:           renameStep,
	StepDrop:             dropStep,
	StepTypeConvert:      typeConvertStep,
	StepFilter:           filterStep,
	StepSort:             sortStep,
	StepDerivedColumn:    derivedColumnStep,
	StepTimeIntelligence: timeIntelligenceStep,
}

// ApplyTransformations applies steps strictly in order. A failing step leaves
// the table unchanged and is reported as a diagnostic; it never aborts the
// remaining steps.
func ApplyTransformations(tbl *table.Table, steps []TransformationStep) (*table.Table, []Diagnostic) {
	diags := &diagnostics{stage: StageTransformation}

	for i, step := range steps {
		apply, ok := stepFuncs[strings.ToLower(strings.TrimSpace(step.Type))]
		if !ok {
			diags.add(i, configError("unknown step type %q", step.Type))
			continue
		}

		out, err := apply(tbl, params(step.Params))
		if err != nil {
			diags.add(i, fmt.Errorf("%s: %w", step.Type, err))
		}
		if out != nil {
			tbl = out
		}
	}

	return tbl, diags.list
}

func renameStep(tbl *table.Table, p params) (*table.Table, error) {
	mapping, err := p.strMap("columns")
	if err != nil {
		return nil, err
	}
	return tbl.Rename(mapping), nil
}

func dropStep(tbl *table.Table, p params) (*table.Table, error) {
	columns, err := p.strList("columns")
	if err != nil {
		return nil, err
	}
	return tbl.Drop(columns...), nil
}

// converters maps dtype names to value coercions.
var converters = map[string]func(interface{}) interface{}{
	"datetime": table.ToTime,
	"numeric":  table.ToNumber,
	"int":      table.ToInteger,
	"int64":    table.ToInteger,
	"integer":  table.ToInteger,
	"float":    table.ToFloat64,
	"float64":  table.ToFloat64,
	"str":      table.ToString,
	"string":   table.ToString,
	"object":   table.ToString,
	"bool":     table.ToBool,
	"boolean":  table.ToBool,
}

func typeConvertStep(tbl *table.Table, p params) (*table.Table, error) {
	column, err := p.str("column")
	if err != nil {
		return nil, err
	}
	dtype, err := p.str("dtype")
	if err != nil {
		return nil, err
	}
	convert, ok := converters[strings.ToLower(dtype)]
	if !ok {
		return nil, configError("unsupported dtype %q", dtype)
	}

	values, err := tbl.Column(column)
	if err != nil {
		return nil, configError("%v", err)
	}

	failed := 0
	converted := make([]interface{}, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		converted[i] = convert(v)
		if converted[i] == nil {
			failed++
		}
	}

	// numeric keeps one numeric kind per column
	if strings.EqualFold(dtype, "numeric") && table.ColumnKind(converted) == table.KindFloat {
		for i, v := range converted {
			if n, ok := v.(int64); ok {
				converted[i] = float64(n)
			}
		}
	}

	out, err := tbl.SetColumn(column, converted)
	if err != nil {
		return nil, err
	}
	if failed > 0 {
		return out, fmt.Errorf("%w: %d value(s) in %q could not be converted to %s and were set to null", ErrData, failed, column, dtype)
	}
	return out, nil
}

var transformFilterOps = map[string]bool{
	OpEq:       true,
	OpNe:       true,
	OpGt:       true,
	OpLt:       true,
	OpContains: true,
}

func filterStep(tbl *table.Table, p params) (*table.Table, error) {
	column, err := p.str("column")
	if err != nil {
		return nil, err
	}
	op, err := p.str("operator")
	if err != nil {
		return nil, err
	}
	if !transformFilterOps[strings.ToLower(op)] {
		return nil, configError("unsupported operator %q", op)
	}
	if !tbl.HasColumn(column) {
		return nil, configError("column %q not found", column)
	}

	test, err := compilePredicate(op, p["value"])
	if err != nil {
		return nil, err
	}
	return tbl.Filter(func(row table.Row) bool {
		return test(row[column])
	}), nil
}

func sortStep(tbl *table.Table, p params) (*table.Table, error) {
	column, err := p.str("column")
	if err != nil {
		return nil, err
	}
	ascending, err := p.boolean("ascending", true)
	if err != nil {
		return nil, err
	}
	if !tbl.HasColumn(column) {
		return nil, configError("column %q not found", column)
	}
	return sortTable(tbl, []sortKey{{column: column, desc: !ascending}}), nil
}

func derivedColumnStep(tbl *table.Table, p params) (*table.Table, error) {
	name, err := p.str("name")
	if err != nil {
		return nil, err
	}
	formula, err := p.str("formula")
	if err != nil {
		return nil, err
	}
	return addFormulaColumn(tbl, name, formula)
}

// addFormulaColumn evaluates formula and stores it under name, overwriting
// an existing column in place.
func addFormulaColumn(tbl *table.Table, name, formula string) (*table.Table, error) {
	e, err := expr.Parse(formula)
	if err != nil {
		return nil, err
	}
	values, err := e.Evaluate(tbl)
	if err != nil {
		return nil, err
	}
	return tbl.SetColumn(name, values)
}
