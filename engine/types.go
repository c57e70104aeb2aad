// Package engine runs the tabular pipeline over a table.Table.
//
// A query runs Transformation → Measure → Filter → Aggregation → Sort →
// Limit; a preview runs Transformation → Measure → Limit. Invalid steps,
// measures, conditions, aggregations and sort keys are skipped and reported
// as Diagnostics in the Result instead of failing the call. Only an
// unreadable dataset or malformed persisted definitions fail with ErrFatal.
//
// Example usage:
//
//	eng := engine.New(engine.WithLogger(logger))
//	res, err := eng.Execute(ctx, "sales.csv", req, steps, measures)
package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultLimit is the row limit of a QueryRequest decoded without one.
const DefaultLimit = 1000

// Transformation step types
const (
	StepRename           = "rename"
	StepDrop             = "drop"
	StepTypeConvert      = "type_convert"
	StepFilter           = "filter"
	StepSort             = "sort"
	StepDerivedColumn    = "derived_column"
	StepTimeIntelligence = "time_intelligence"
)

// Filter operators
const (
	OpEq       = "eq"
	OpNe       = "ne"
	OpGt       = "gt"
	OpLt       = "lt"
	OpGte      = "gte"
	OpLte      = "lte"
	OpIn       = "in"
	OpBetween  = "between"
	OpContains = "contains"
)

// Sort orders
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// TransformationStep is one data-preparation step.
type TransformationStep struct {
	Type   string                 `json:"type"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// MeasureDefinition adds or overwrites a column computed from a formula.
type MeasureDefinition struct {
	Name        string `json:"name"`
	Formula     string `json:"formula"`
	Description string `json:"description,omitempty"`
}

// FilterCondition is one conjunct of the query filter.
type FilterCondition struct {
	Column   string      `json:"column"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

// AggregationRequest reduces a column with a named function.
type AggregationRequest struct {
	Column   string `json:"column"`
	Function string `json:"function"`
}

// OutputName is the result column name, {column}_{function}.
func (a AggregationRequest) OutputName() string {
	return a.Column + "_" + strings.ToLower(strings.TrimSpace(a.Function))
}

// SortRequest is one sort key. An empty order means ascending.
type SortRequest struct {
	Column string `json:"column"`
	Order  string `json:"order,omitempty"`
}

// QueryRequest describes the query stages of an Execute call.
type QueryRequest struct {
	Filters      []FilterCondition    `json:"filters,omitempty"`
	GroupBy      []string             `json:"group_by,omitempty"`
	Aggregations []AggregationRequest `json:"aggregations,omitempty"`
	SortBy       []SortRequest        `json:"sort_by,omitempty"`
	Limit        int                  `json:"limit"`
}

// UnmarshalJSON decodes a request, defaulting an absent limit to
// DefaultLimit.
func (q *QueryRequest) UnmarshalJSON(data []byte) error {
	type plain QueryRequest
	decoded := plain{Limit: DefaultLimit}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*q = QueryRequest(decoded)
	return nil
}

// Result is the envelope returned by Execute and Preview.
type Result struct {
	Data        []map[string]interface{} `json:"data"`
	TotalRows   int                      `json:"total_rows"`
	Columns     []string                 `json:"columns"`
	Diagnostics []Diagnostic             `json:"diagnostics,omitempty"`
}

// DecodeSteps decodes a persisted JSON list of transformation steps. Empty
// text decodes to no steps.
func DecodeSteps(text string) ([]TransformationStep, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	var steps []TransformationStep
	if err := json.Unmarshal([]byte(text), &steps); err != nil {
		return nil, fmt.Errorf("%w: decoding transformations: %v", ErrFatal, err)
	}
	return steps, nil
}

// DecodeMeasures decodes a persisted JSON list of measures. Empty text
// decodes to no measures.
func DecodeMeasures(text string) ([]MeasureDefinition, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	var measures []MeasureDefinition
	if err := json.Unmarshal([]byte(text), &measures); err != nil {
		return nil, fmt.Errorf("%w: decoding measures: %v", ErrFatal, err)
	}
	return measures, nil
}

// EncodeSteps renders steps as persisted JSON text.
func EncodeSteps(steps []TransformationStep) (string, error) {
	if steps == nil {
		steps = []TransformationStep{}
	}
	data, err := json.Marshal(steps)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// EncodeMeasures renders measures as persisted JSON text.
func EncodeMeasures(measures []MeasureDefinition) (string, error) {
	if measures == nil {
		measures = []MeasureDefinition{}
	}
	data, err := json.Marshal(measures)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
