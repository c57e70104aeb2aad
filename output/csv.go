package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/vegasq/tabq/engine"
	"github.com/vegasq/tabq/table"
)

// CSVFormatter outputs rows as CSV format
type CSVFormatter struct {
	writer io.Writer
}

// NewCSVFormatter creates a new CSV formatter
func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{writer: w}
}

// SetOutput sets the output writer
func (c *CSVFormatter) SetOutput(w io.Writer) {
	c.writer = w
}

// Format writes a header row in column order followed by one record per row.
// A result without columns writes nothing.
func (c *CSVFormatter) Format(res *engine.Result) error {
	csvWriter := csv.NewWriter(c.writer)

	if len(res.Columns) > 0 {
		if err := csvWriter.Write(res.Columns); err != nil {
			return err
		}
	}

	record := make([]string, len(res.Columns))
	for _, row := range res.Data {
		for i, col := range res.Columns {
			record[i] = formatValue(row[col])
		}
		if err := csvWriter.Write(record); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}

// formatValue converts a value to string for CSV output
func formatValue(v interface{}) string {
	s, ok := v.(string)
	if !ok {
		return table.FormatValue(v)
	}

	// Prefix cells spreadsheets would treat as formulas
	if len(s) > 0 {
		switch s[0] {
		case '=', '+', '-', '@', '\t', '\r', '\n', '|':
			return "'" + strings.ReplaceAll(s, "'", "''")
		}
	}
	return s
}
