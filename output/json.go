package output

import (
	"encoding/json"
	"io"

	"github.com/vegasq/tabq/engine"
)

// JSONFormatter writes the whole result envelope as one JSON document
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON envelope formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// SetOutput sets the output writer
func (j *JSONFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// Format writes {data, total_rows, columns, diagnostics}
func (j *JSONFormatter) Format(res *engine.Result) error {
	columns := res.Columns
	if columns == nil {
		columns = []string{}
	}
	envelope := struct {
		Data        []orderedRow        `json:"data"`
		TotalRows   int                 `json:"total_rows"`
		Columns     []string            `json:"columns"`
		Diagnostics []engine.Diagnostic `json:"diagnostics,omitempty"`
	}{
		Data:        orderedRows(res),
		TotalRows:   res.TotalRows,
		Columns:     columns,
		Diagnostics: res.Diagnostics,
	}

	encoder := json.NewEncoder(j.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(envelope)
}

// JSONLFormatter outputs rows as JSON Lines format
type JSONLFormatter struct {
	writer io.Writer
}

// NewJSONLFormatter creates a new JSON Lines formatter
func NewJSONLFormatter(w io.Writer) *JSONLFormatter {
	return &JSONLFormatter{writer: w}
}

// SetOutput sets the output writer
func (j *JSONLFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// Format writes rows as JSON Lines (one JSON object per line)
func (j *JSONLFormatter) Format(res *engine.Result) error {
	encoder := json.NewEncoder(j.writer)
	for _, row := range orderedRows(res) {
		if err := encoder.Encode(row); err != nil {
			return err
		}
	}
	return nil
}
