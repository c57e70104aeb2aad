package dataset

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	older := &Dataset{ID: "a", Name: "older", FilePath: "a.csv", UploadedAt: base}
	newer := &Dataset{ID: "b", Name: "newer", FilePath: "b.csv", UploadedAt: base.Add(time.Hour)}
	for _, ds := range []*Dataset{older, newer} {
		if err := store.Create(ctx, ds); err != nil {
			t.Fatalf("Create(%s) error = %v", ds.ID, err)
		}
	}
	if err := store.Create(ctx, older); err == nil {
		t.Error("duplicate Create should fail")
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != "b" || list[1].ID != "a" {
		t.Errorf("List() should be newest first, got %v", list)
	}

	if err := store.UpdateTransformations(ctx, "a", `[{"type":"drop"}]`); err != nil {
		t.Fatalf("UpdateTransformations() error = %v", err)
	}
	got, err := store.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Transformations != `[{"type":"drop"}]` {
		t.Errorf("Transformations = %q", got.Transformations)
	}

	got.Name = "mutated"
	again, _ := store.Get(ctx, "a")
	if again.Name != "older" {
		t.Error("Get should return a copy")
	}
}
