package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/vegasq/tabq/engine"
)

func writeSales(t *testing.T, rows int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("id,region,units\n")
	for i := 0; i < rows; i++ {
		region := "west"
		if i%2 == 1 {
			region = "east"
		}
		fmt.Fprintf(&b, "%d,%s,%d\n", i, region, i*2)
	}
	path := filepath.Join(t.TempDir(), "sales.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func newService(t *testing.T, rows int) (*Service, *MemoryStore, string) {
	t.Helper()
	store := NewMemoryStore()
	svc := NewService(store, nil)
	ds, err := svc.Register(context.Background(), "sales", writeSales(t, rows))
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return svc, store, ds.ID
}

func TestRegister(t *testing.T) {
	svc, _, id := newService(t, 1)
	ds, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ds.Name != "sales" || ds.Transformations != "[]" || ds.Measures != "[]" || ds.UploadedAt.IsZero() {
		t.Errorf("registered dataset = %+v", ds)
	}

	tests := []struct {
		name string
		path string
	}{
		{"empty name", ""},
		{"missing file", filepath.Join(t.TempDir(), "missing.csv")},
		{"unsupported format", filepath.Join(t.TempDir(), "data.xlsx")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := "x"
			if tt.path == "" {
				name = ""
				tt.path = "data.csv"
			}
			if _, err := svc.Register(context.Background(), name, tt.path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestQuery_UsesSavedDefinitions(t *testing.T) {
	svc, _, id := newService(t, 6)
	ctx := context.Background()

	if err := svc.SaveTransformations(ctx, id, []engine.TransformationStep{
		{Type: engine.StepFilter, Params: map[string]interface{}{"column": "units", "operator": "gt", "value": 0}},
	}); err != nil {
		t.Fatalf("SaveTransformations() error = %v", err)
	}
	if err := svc.SaveMeasures(ctx, id, []engine.MeasureDefinition{
		{Name: "half", Formula: "units / 2"},
	}); err != nil {
		t.Fatalf("SaveMeasures() error = %v", err)
	}

	res, err := svc.Query(ctx, id, engine.QueryRequest{
		GroupBy:      []string{"region"},
		Aggregations: []engine.AggregationRequest{{Column: "half", Function: "sum"}},
		SortBy:       []engine.SortRequest{{Column: "region"}},
		Limit:        engine.DefaultLimit,
	})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	// units: 0 2 4 6 8 10; west = 4+8 (0 filtered), east = 2+6+10
	want := []map[string]interface{}{
		{"region": "east", "half_sum": 9.0},
		{"region": "west", "half_sum": 6.0},
	}
	if !reflect.DeepEqual(res.Data, want) {
		t.Errorf("Data = %v, want %v", res.Data, want)
	}
}

func TestPreviewLimits(t *testing.T) {
	svc, _, id := newService(t, 120)
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() (*engine.Result, error)
		want int
	}{
		{"preview default", func() (*engine.Result, error) { return svc.Preview(ctx, id, 0) }, DefaultPreviewLimit},
		{"preview explicit", func() (*engine.Result, error) { return svc.Preview(ctx, id, 7) }, 7},
		{"transformations", func() (*engine.Result, error) { return svc.PreviewTransformations(ctx, id, nil) }, DefaultEditPreviewLimit},
		{"measures", func() (*engine.Result, error) { return svc.PreviewMeasures(ctx, id, nil) }, DefaultEditPreviewLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.run()
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if res.TotalRows != tt.want {
				t.Errorf("TotalRows = %d, want %d", res.TotalRows, tt.want)
			}
		})
	}
}

func TestPreviewLimits_Override(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil, WithPreviewLimits(3, 2))
	ds, err := svc.Register(context.Background(), "sales", writeSales(t, 10))
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	res, err := svc.Preview(context.Background(), ds.ID, 0)
	if err != nil || res.TotalRows != 3 {
		t.Errorf("Preview() = %v, %v; want 3 rows", res, err)
	}
	res, err = svc.PreviewMeasures(context.Background(), ds.ID, nil)
	if err != nil || res.TotalRows != 2 {
		t.Errorf("PreviewMeasures() = %v, %v; want 2 rows", res, err)
	}
}

func TestPreviewTransformations_KeepsSavedMeasures(t *testing.T) {
	svc, _, id := newService(t, 3)
	ctx := context.Background()
	if err := svc.SaveMeasures(ctx, id, []engine.MeasureDefinition{{Name: "double", Formula: "units * 2"}}); err != nil {
		t.Fatalf("SaveMeasures() error = %v", err)
	}

	res, err := svc.PreviewTransformations(ctx, id, []engine.TransformationStep{
		{Type: engine.StepDrop, Params: map[string]interface{}{"columns": []interface{}{"region"}}},
	})
	if err != nil {
		t.Fatalf("PreviewTransformations() error = %v", err)
	}
	if !reflect.DeepEqual(res.Columns, []string{"id", "units", "double"}) {
		t.Errorf("Columns = %v", res.Columns)
	}
}

func TestPreviewMeasures_KeepsSavedTransformations(t *testing.T) {
	svc, _, id := newService(t, 3)
	ctx := context.Background()
	if err := svc.SaveTransformations(ctx, id, []engine.TransformationStep{
		{Type: engine.StepRename, Params: map[string]interface{}{"columns": map[string]interface{}{"units": "qty"}}},
	}); err != nil {
		t.Fatalf("SaveTransformations() error = %v", err)
	}

	res, err := svc.PreviewMeasures(ctx, id, []engine.MeasureDefinition{{Name: "neg", Formula: "-qty"}})
	if err != nil {
		t.Fatalf("PreviewMeasures() error = %v", err)
	}
	if !reflect.DeepEqual(res.Columns, []string{"id", "region", "qty", "neg"}) {
		t.Errorf("Columns = %v", res.Columns)
	}
	if len(res.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics: %v", res.Diagnostics)
	}
}

func TestMalformedSavedDefinitionsAreFatal(t *testing.T) {
	svc, store, id := newService(t, 2)
	ctx := context.Background()

	if err := store.UpdateMeasures(ctx, id, `[{"name": `); err != nil {
		t.Fatalf("UpdateMeasures() error = %v", err)
	}
	if _, err := svc.Query(ctx, id, engine.QueryRequest{}); !errors.Is(err, engine.ErrFatal) {
		t.Errorf("Query() error = %v, want ErrFatal", err)
	}
	if _, err := svc.PreviewTransformations(ctx, id, nil); !errors.Is(err, engine.ErrFatal) {
		t.Errorf("PreviewTransformations() error = %v, want ErrFatal", err)
	}
}

func TestUnknownDataset(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)
	ctx := context.Background()

	if _, err := svc.Query(ctx, "nope", engine.QueryRequest{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Query() error = %v, want ErrNotFound", err)
	}
	if err := svc.SaveMeasures(ctx, "nope", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("SaveMeasures() error = %v, want ErrNotFound", err)
	}
}
