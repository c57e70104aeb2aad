// Package output renders query results.
//
// Supported formats:
//   - json: the full result envelope {data, total_rows, columns, diagnostics}
//   - jsonl: one JSON object per row
//   - csv: header row plus one record per row
//   - table: a boxed text table for terminals
//
// Row keys and CSV columns always follow the result's column order.
//
// Example usage:
//
//	formatter, err := output.NewFormatter("csv", os.Stdout)
//	if err != nil {
//	    return err
//	}
//	if err := formatter.Format(res); err != nil {
//	    return err
//	}
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/vegasq/tabq/engine"
	"github.com/vegasq/tabq/table"
)

// Formatter defines the interface for output formatters.
type Formatter interface {
	// Format writes the result in the formatter's specific format
	Format(res *engine.Result) error

	// SetOutput changes the output writer
	SetOutput(w io.Writer)
}

// Formats lists the accepted format names.
var Formats = []string{"json", "jsonl", "csv", "table"}

// NewFormatter returns the formatter registered under name.
func NewFormatter(name string, w io.Writer) (Formatter, error) {
	switch strings.ToLower(name) {
	case "json":
		return NewJSONFormatter(w), nil
	case "jsonl":
		return NewJSONLFormatter(w), nil
	case "csv":
		return NewCSVFormatter(w), nil
	case "table":
		return NewTableFormatter(w), nil
	default:
		return nil, fmt.Errorf("invalid format %q (must be one of: %s)", name, strings.Join(Formats, ", "))
	}
}

// orderedRow marshals a row as a JSON object with keys in column order.
type orderedRow struct {
	columns []string
	row     map[string]interface{}
}

func (o orderedRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range o.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		value, err := json.Marshal(jsonValue(o.row[col]))
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// jsonValue maps table scalars to JSON-safe values. Non-finite floats
// become null; timestamps use the display format.
func jsonValue(v interface{}) interface{} {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		return val
	case time.Time:
		return table.FormatValue(val)
	default:
		return val
	}
}

func orderedRows(res *engine.Result) []orderedRow {
	rows := make([]orderedRow, len(res.Data))
	for i, row := range res.Data {
		rows[i] = orderedRow{columns: res.Columns, row: row}
	}
	return rows
}
