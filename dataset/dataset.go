// Package dataset exposes the engine through stored dataset records.
//
// A Dataset names a file (or glob pattern) and carries its saved
// transformation steps and measures as JSON text. Service loads a record
// from a Store, decodes the saved definitions and runs one of the four
// invocation surfaces: Query, Preview, PreviewTransformations and
// PreviewMeasures.
//
// Example usage:
//
//	svc := dataset.NewService(store, engine.New())
//	ds, err := svc.Register(ctx, "sales", "/data/sales.csv")
//	res, err := svc.Query(ctx, ds.ID, req)
package dataset

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no dataset has the requested id
var ErrNotFound = errors.New("dataset not found")

// Dataset is a stored dataset record.
type Dataset struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	FilePath        string    `json:"file_path"`
	Transformations string    `json:"transformations"`
	Measures        string    `json:"measures"`
	UploadedAt      time.Time `json:"uploaded_at"`
}

// Store persists dataset records. Transformations and measures are kept as
// the JSON text they were saved with.
type Store interface {
	Get(ctx context.Context, id string) (*Dataset, error)
	Create(ctx context.Context, ds *Dataset) error
	List(ctx context.Context) ([]*Dataset, error)
	UpdateTransformations(ctx context.Context, id, transformations string) error
	UpdateMeasures(ctx context.Context, id, measures string) error
}
