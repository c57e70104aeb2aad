package expr

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/vegasq/tabq/table"
)

func salesTable() *table.Table {
	return table.New([]string{"region", "revenue", "units", "price", "active", "day"}, []table.Row{
		{"region": "west", "revenue": int64(100), "units": int64(4), "price": 2.5, "active": true, "day": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"region": "east", "revenue": int64(50), "units": int64(0), "price": 1.5, "active": false, "day": time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"region": "west", "revenue": nil, "units": int64(6), "price": nil, "active": true, "day": nil},
	})
}

func evaluate(t *testing.T, formula string, tbl *table.Table) []interface{} {
	t.Helper()
	e, err := Parse(formula)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", formula, err)
	}
	values, err := e.Evaluate(tbl)
	if err != nil {
		t.Fatalf("Evaluate(%q) error = %v", formula, err)
	}
	return values
}

func sameValue(got, want interface{}) bool {
	gf, gok := got.(float64)
	wf, wok := want.(float64)
	if gok && wok {
		return math.Abs(gf-wf) < 1e-9
	}
	return got == want
}

func TestEvaluate_RowLevel(t *testing.T) {
	tests := []struct {
		name    string
		formula string
		want    []interface{}
	}{
		{"int arithmetic stays int", "revenue + units * 2", []interface{}{int64(108), int64(50), nil}},
		{"mixed arithmetic is float", "revenue * price", []interface{}{250.0, 75.0, nil}},
		{"division is float", "revenue / 4", []interface{}{25.0, 12.5, nil}},
		{"division by zero is null", "revenue / units", []interface{}{25.0, nil, nil}},
		{"power", "units ** 2", []interface{}{16.0, 0.0, 36.0}},
		{"unary minus", "-units", []interface{}{int64(-4), int64(0), int64(-6)}},
		{"string concatenation", "region + '-x'", []interface{}{"west-x", "east-x", "west-x"}},
		{"comparison", "revenue > 60", []interface{}{true, false, false}},
		{"null not equal", "revenue != 100", []interface{}{false, true, true}},
		{"string equality", "region == 'west'", []interface{}{true, false, true}},
		{"boolean logic", "active and units > 1", []interface{}{true, false, true}},
		{"negation", "not active", []interface{}{false, true, false}},
		{"or", "units == 0 or region == 'east'", []interface{}{false, true, false}},
		{"date comparison", "day >= '2024-01-15'", []interface{}{false, true, false}},
		{"constant broadcast", "1 + 2", []interface{}{int64(3), int64(3), int64(3)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluate(t, tt.formula, salesTable())
			if len(got) != len(tt.want) {
				t.Fatalf("got %d values, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if !sameValue(got[i], tt.want[i]) {
					t.Errorf("row %d: got %#v, want %#v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestEvaluate_LargeIntegerComparison(t *testing.T) {
	tbl := table.New([]string{"ts"}, []table.Row{
		{"ts": int64(1700000000)},
		{"ts": int64(1700000001)},
	})

	tests := []struct {
		formula string
		want    []interface{}
	}{
		{"ts == 1700000000", []interface{}{true, false}},
		{"ts != 1700000000", []interface{}{false, true}},
		{"ts > 1700000000", []interface{}{false, true}},
		{"ts <= 1700000000", []interface{}{true, false}},
		{"0.1 + 0.2 == 0.3", []interface{}{true, true}},
	}

	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			got := evaluate(t, tt.formula, tbl)
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("row %d: got %#v, want %#v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestEvaluate_Aggregates(t *testing.T) {
	tests := []struct {
		name    string
		formula string
		want    []interface{}
	}{
		{"ratio of sums is broadcast", "SUM(revenue) / SUM(units)", []interface{}{15.0, 15.0, 15.0}},
		{"share of total", "revenue / SUM(revenue)", []interface{}{100.0 / 150.0, 50.0 / 150.0, nil}},
		{"count ignores nulls", "COUNT(revenue)", []interface{}{int64(2), int64(2), int64(2)}},
		{"avg", "avg(units)", []interface{}{10.0 / 3.0, 10.0 / 3.0, 10.0 / 3.0}},
		{"aggregate over expression", "MAX(units * 2)", []interface{}{int64(12), int64(12), int64(12)}},
		{"median", "MEDIAN(units)", []interface{}{4.0, 4.0, 4.0}},
		{"std is sample", "STD(units)", []interface{}{math.Sqrt(28.0 / 3.0), math.Sqrt(28.0 / 3.0), math.Sqrt(28.0 / 3.0)}},
		{"min of strings", "MIN(region)", []interface{}{"east", "east", "east"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluate(t, tt.formula, salesTable())
			for i := range got {
				if !sameValue(got[i], tt.want[i]) {
					t.Errorf("row %d: got %#v, want %#v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestEvaluate_EmptyTable(t *testing.T) {
	empty := table.New([]string{"a"}, nil)
	got := evaluate(t, "SUM(a) / COUNT(a)", empty)
	if len(got) != 0 {
		t.Errorf("expected no values, got %v", got)
	}
}

func TestEvaluate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		formula string
		wantErr error
	}{
		{"unknown column", "missing + 1", ErrUnknownColumn},
		{"unknown column inside aggregate", "SUM(missing)", ErrUnknownColumn},
		{"string minus number", "region - 1", ErrTypeMismatch},
		{"string times string", "region * region", ErrTypeMismatch},
		{"ordering incomparable values", "region < 5", ErrTypeMismatch},
		{"sum of strings", "SUM(region)", table.ErrNonNumeric},
		{"negating a string", "-region", ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Parse(tt.formula)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			values, err := e.Evaluate(salesTable())
			if err == nil {
				t.Fatalf("Evaluate(%q) expected error, got %v", tt.formula, values)
			}
			if !errors.Is(err, tt.wantErr) || !errors.Is(err, ErrEvaluation) {
				t.Errorf("Evaluate() error = %v, want %v wrapped in ErrEvaluation", err, tt.wantErr)
			}
			if values != nil {
				t.Errorf("expected no partial result, got %v", values)
			}
		})
	}
}

func TestEvaluate_ColumnCheckBeforeRows(t *testing.T) {
	// A type error in row 0 must not mask the unknown column.
	e, err := Parse("region - 1 + missing")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	_, err = e.Evaluate(salesTable())
	if !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("Evaluate() error = %v, want ErrUnknownColumn", err)
	}
}
