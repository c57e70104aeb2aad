package engine

import (
	"errors"
	"fmt"

	"github.com/vegasq/tabq/expr"
)

var (
	// ErrConfiguration is returned when a step, measure, filter, aggregation
	// or sort key names a missing column or an unsupported operator,
	// function or type. It is never fatal.
	ErrConfiguration = errors.New("configuration error")

	// ErrData marks row-level coercion failures; the affected values become
	// null.
	ErrData = errors.New("data error")

	// ErrFatal fails the whole invocation: unreadable dataset or malformed
	// persisted definitions.
	ErrFatal = errors.New("fatal error")
)

// Stage names a pipeline stage in diagnostics.
type Stage string

const (
	StageTransformation Stage = "transformation"
	StageMeasure        Stage = "measure"
	StageFilter         Stage = "filter"
	StageAggregation    Stage = "aggregation"
	StageSort           Stage = "sort"
)

// Kind classifies a diagnostic.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindEvaluation    Kind = "evaluation"
	KindData          Kind = "data"
)

// Diagnostic is a non-fatal problem recorded while running the pipeline.
// Index is the position of the offending step, measure, condition,
// aggregation or sort key in its input list.
type Diagnostic struct {
	Stage   Stage  `json:"stage"`
	Index   int    `json:"index"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`

	err error
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s[%d]: %s", d.Stage, d.Index, d.Message)
}

// Unwrap exposes the underlying error for errors.Is.
func (d Diagnostic) Unwrap() error {
	return d.err
}

func newDiagnostic(stage Stage, index int, err error) Diagnostic {
	kind := KindConfiguration
	switch {
	case errors.Is(err, expr.ErrEvaluation):
		kind = KindEvaluation
	case errors.Is(err, ErrData):
		kind = KindData
	}
	return Diagnostic{Stage: stage, Index: index, Kind: kind, Message: err.Error(), err: err}
}

// configError wraps a message under ErrConfiguration.
func configError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// diagnostics collects diagnostics for one stage.
type diagnostics struct {
	stage Stage
	list  []Diagnostic
}

func (d *diagnostics) add(index int, err error) {
	d.list = append(d.list, newDiagnostic(d.stage, index, err))
}
