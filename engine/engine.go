package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vegasq/tabq/reader"
	"github.com/vegasq/tabq/table"
)

// Loader loads the dataset at path into a table.
type Loader interface {
	Load(ctx context.Context, path string) (*table.Table, error)
}

// Engine runs queries and previews. It holds no per-invocation state and is
// safe for concurrent use.
type Engine struct {
	logger *zap.Logger
	loader Loader
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger diagnostics are reported to.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLoader replaces the dataset loader.
func WithLoader(loader Loader) Option {
	return func(e *Engine) {
		if loader != nil {
			e.loader = loader
		}
	}
}

// New creates an engine. Without options it logs nowhere and reads files
// through reader.Loader.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger: zap.NewNop(),
		loader: reader.Loader{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute loads the dataset at path and runs the full query pipeline.
func (e *Engine) Execute(ctx context.Context, path string, req QueryRequest, steps []TransformationStep, measures []MeasureDefinition) (*Result, error) {
	tbl, err := e.load(ctx, path)
	if err != nil {
		return nil, err
	}
	return e.ExecuteTable(tbl, req, steps, measures), nil
}

// Preview loads the dataset at path and runs transformations and measures,
// keeping at most limit rows.
func (e *Engine) Preview(ctx context.Context, path string, limit int, steps []TransformationStep, measures []MeasureDefinition) (*Result, error) {
	tbl, err := e.load(ctx, path)
	if err != nil {
		return nil, err
	}
	return e.PreviewTable(tbl, limit, steps, measures), nil
}

// ExecuteTable runs Transformation, Measure, Filter, Aggregation, Sort and
// Limit over an already loaded table.
func (e *Engine) ExecuteTable(tbl *table.Table, req QueryRequest, steps []TransformationStep, measures []MeasureDefinition) *Result {
	inv := e.newInvocation("execute")

	tbl = inv.stage(ApplyTransformations(tbl, steps))
	tbl = inv.stage(ApplyMeasures(tbl, measures))
	tbl = inv.stage(ApplyFilters(tbl, req.Filters))
	tbl = inv.stage(ApplyAggregations(tbl, req.GroupBy, req.Aggregations))
	tbl = inv.stage(ApplySort(tbl, req.SortBy))
	tbl = ApplyLimit(tbl, req.Limit)

	return inv.result(tbl)
}

// PreviewTable runs Transformation, Measure and Limit over an already loaded
// table.
func (e *Engine) PreviewTable(tbl *table.Table, limit int, steps []TransformationStep, measures []MeasureDefinition) *Result {
	inv := e.newInvocation("preview")

	tbl = inv.stage(ApplyTransformations(tbl, steps))
	tbl = inv.stage(ApplyMeasures(tbl, measures))
	tbl = ApplyLimit(tbl, limit)

	return inv.result(tbl)
}

func (e *Engine) load(ctx context.Context, path string) (*table.Table, error) {
	tbl, err := e.loader.Load(ctx, path)
	if err != nil {
		e.logger.Error("failed to load dataset", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: loading %s: %w", ErrFatal, path, err)
	}
	e.logger.Debug("dataset loaded",
		zap.String("path", path),
		zap.Int("rows", tbl.Len()),
		zap.Int("columns", len(tbl.Columns())),
	)
	return tbl, nil
}

// invocation accumulates the diagnostics of one Execute or Preview call.
type invocation struct {
	logger      *zap.Logger
	diagnostics []Diagnostic
}

func (e *Engine) newInvocation(kind string) *invocation {
	return &invocation{
		logger: e.logger.With(
			zap.String("invocation_id", uuid.NewString()),
			zap.String("invocation", kind),
		),
	}
}

func (r *invocation) stage(tbl *table.Table, diags []Diagnostic) *table.Table {
	for _, d := range diags {
		r.logger.Warn("pipeline diagnostic",
			zap.String("stage", string(d.Stage)),
			zap.Int("index", d.Index),
			zap.String("kind", string(d.Kind)),
			zap.String("message", d.Message),
		)
	}
	r.diagnostics = append(r.diagnostics, diags...)
	return tbl
}

func (r *invocation) result(tbl *table.Table) *Result {
	r.logger.Debug("invocation finished",
		zap.Int("rows", tbl.Len()),
		zap.Int("diagnostics", len(r.diagnostics)),
	)
	return &Result{
		Data:        tbl.Rows(),
		TotalRows:   tbl.Len(),
		Columns:     tbl.Columns(),
		Diagnostics: r.diagnostics,
	}
}
