package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"

	"github.com/vegasq/tabq/engine"
	"github.com/vegasq/tabq/table"
)

// DefaultMaxCellWidth is the display width cells are truncated to
const DefaultMaxCellWidth = 40

// TableFormatter renders rows as a boxed text table
type TableFormatter struct {
	writer       io.Writer
	maxCellWidth int
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w, maxCellWidth: DefaultMaxCellWidth}
}

// SetOutput sets the output writer
func (t *TableFormatter) SetOutput(w io.Writer) {
	t.writer = w
}

// SetMaxCellWidth sets the display width cells are truncated to. Values
// <= 0 disable truncation.
func (t *TableFormatter) SetMaxCellWidth(width int) {
	t.maxCellWidth = width
}

// Format writes the rows followed by a row count line
func (t *TableFormatter) Format(res *engine.Result) error {
	tw := tablewriter.NewWriter(t.writer)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetHeader(res.Columns)

	for _, row := range res.Data {
		cells := make([]string, len(res.Columns))
		for i, col := range res.Columns {
			cells[i] = t.cell(row[col])
		}
		tw.Append(cells)
	}
	tw.Render()

	noun := "rows"
	if res.TotalRows == 1 {
		noun = "row"
	}
	_, err := fmt.Fprintf(t.writer, "(%d %s)\n", res.TotalRows, noun)
	return err
}

func (t *TableFormatter) cell(v interface{}) string {
	if v == nil {
		return "NULL"
	}
	s := strings.ReplaceAll(table.FormatValue(v), "\n", " ")
	if t.maxCellWidth > 0 && runewidth.StringWidth(s) > t.maxCellWidth {
		s = runewidth.Truncate(s, t.maxCellWidth, "...")
	}
	return s
}
