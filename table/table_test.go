package table

import (
	"reflect"
	"testing"
)

func sampleTable() *Table {
	return New([]string{"a", "b", "c"}, []Row{
		{"a": int64(1), "b": "x", "c": 1.5},
		{"a": int64(2), "b": "y", "c": 2.5},
		{"a": int64(3), "b": "z", "c": nil},
	})
}

func TestNew_NormalizesRows(t *testing.T) {
	tbl := New([]string{"a", "b", "a"}, []Row{
		{"a": int64(1), "extra": "dropped"},
	})

	if got := tbl.Columns(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("Columns() = %v, want [a b]", got)
	}
	row := tbl.Row(0)
	if _, ok := row["extra"]; ok {
		t.Errorf("undeclared key should be dropped")
	}
	if v, ok := row["b"]; !ok || v != nil {
		t.Errorf("missing column should be present as nil, got %v (present=%v)", v, ok)
	}
}

func TestSetColumn(t *testing.T) {
	tests := []struct {
		name        string
		column      string
		values      []interface{}
		wantColumns []string
	}{
		{
			name:        "append new column",
			column:      "d",
			values:      []interface{}{int64(10), int64(20), int64(30)},
			wantColumns: []string{"a", "b", "c", "d"},
		},
		{
			name:        "overwrite keeps position",
			column:      "b",
			values:      []interface{}{"p", "q", "r"},
			wantColumns: []string{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := sampleTable()
			got, err := src.SetColumn(tt.column, tt.values)
			if err != nil {
				t.Fatalf("SetColumn() error = %v", err)
			}
			if !reflect.DeepEqual(got.Columns(), tt.wantColumns) {
				t.Errorf("Columns() = %v, want %v", got.Columns(), tt.wantColumns)
			}
			col, _ := got.Column(tt.column)
			if !reflect.DeepEqual(col, tt.values) {
				t.Errorf("Column(%q) = %v, want %v", tt.column, col, tt.values)
			}
			if src.HasColumn("d") {
				t.Errorf("source table was modified")
			}
		})
	}
}

func TestSetColumn_LengthMismatch(t *testing.T) {
	if _, err := sampleTable().SetColumn("d", []interface{}{1}); err == nil {
		t.Fatal("expected error for wrong value count")
	}
}

func TestRename(t *testing.T) {
	tests := []struct {
		name        string
		mapping     map[string]string
		wantColumns []string
		check       func(t *testing.T, tbl *Table)
	}{
		{
			name:        "simple rename",
			mapping:     map[string]string{"a": "alpha"},
			wantColumns: []string{"alpha", "b", "c"},
		},
		{
			name:        "unknown source ignored",
			mapping:     map[string]string{"missing": "x"},
			wantColumns: []string{"a", "b", "c"},
		},
		{
			name:        "simultaneous swap",
			mapping:     map[string]string{"a": "b", "b": "a"},
			wantColumns: []string{"b", "a", "c"},
			check: func(t *testing.T, tbl *Table) {
				if tbl.Row(0)["b"] != int64(1) || tbl.Row(0)["a"] != "x" {
					t.Errorf("swap produced %v", tbl.Row(0))
				}
			},
		},
		{
			name:        "shared target keeps first source",
			mapping:     map[string]string{"a": "x", "c": "x"},
			wantColumns: []string{"x", "b", "c"},
			check: func(t *testing.T, tbl *Table) {
				if tbl.Row(0)["x"] != int64(1) || tbl.Row(0)["c"] != 1.5 {
					t.Errorf("shared target produced %v", tbl.Row(0))
				}
			},
		},
		{
			name:        "target collides with existing column",
			mapping:     map[string]string{"c": "a"},
			wantColumns: []string{"b", "a"},
			check: func(t *testing.T, tbl *Table) {
				if tbl.Row(0)["a"] != 1.5 {
					t.Errorf("renamed column should replace existing one, got %v", tbl.Row(0)["a"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sampleTable().Rename(tt.mapping)
			if !reflect.DeepEqual(got.Columns(), tt.wantColumns) {
				t.Errorf("Columns() = %v, want %v", got.Columns(), tt.wantColumns)
			}
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}
}

func TestDrop(t *testing.T) {
	got := sampleTable().Drop("b", "missing")
	if !reflect.DeepEqual(got.Columns(), []string{"a", "c"}) {
		t.Errorf("Columns() = %v, want [a c]", got.Columns())
	}
	if _, ok := got.Row(0)["b"]; ok {
		t.Errorf("dropped column still present in row")
	}
}

func TestFilterSortHead(t *testing.T) {
	tbl := sampleTable()

	filtered := tbl.Filter(func(r Row) bool { return r["a"].(int64) >= 2 })
	if filtered.Len() != 2 {
		t.Fatalf("Filter() kept %d rows, want 2", filtered.Len())
	}

	sorted := tbl.SortStable(func(a, b Row) bool { return a["a"].(int64) > b["a"].(int64) })
	if sorted.Row(0)["a"] != int64(3) || tbl.Row(0)["a"] != int64(1) {
		t.Errorf("SortStable() did not sort a copy")
	}

	if got := tbl.Head(2).Len(); got != 2 {
		t.Errorf("Head(2).Len() = %d", got)
	}
	if got := tbl.Head(0).Len(); got != 3 {
		t.Errorf("Head(0) should not truncate, got %d rows", got)
	}
	if got := tbl.Head(10).Len(); got != 3 {
		t.Errorf("Head(10) = %d rows, want 3", got)
	}
}

func TestConcat(t *testing.T) {
	left := New([]string{"a"}, []Row{{"a": int64(1)}})
	right := New([]string{"a", "b"}, []Row{{"a": int64(2), "b": "x"}})

	got := Concat(left, right)
	if !reflect.DeepEqual(got.Columns(), []string{"a", "b"}) {
		t.Fatalf("Columns() = %v", got.Columns())
	}
	if got.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", got.Len())
	}
	if v, ok := got.Row(0)["b"]; !ok || v != nil {
		t.Errorf("missing column should be nil, got %v", v)
	}
}

func TestRows_ReturnsCopies(t *testing.T) {
	tbl := sampleTable()
	rows := tbl.Rows()
	rows[0]["a"] = "changed"
	if tbl.Row(0)["a"] != int64(1) {
		t.Errorf("Rows() must not expose internal maps")
	}
}
