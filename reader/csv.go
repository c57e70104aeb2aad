package reader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vegasq/tabq/table"
)

// CSVReader reads delimited text with a header row into a table.
type CSVReader struct {
	file      *os.File
	delimiter rune
}

// NewCSVReader opens a delimited file. delimiter is usually ',' or '\t'.
func NewCSVReader(path string, delimiter rune) (*CSVReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return &CSVReader{file: file, delimiter: delimiter}, nil
}

// ReadAll reads every record and infers one type per column.
//
// Header names are trimmed; blank names become "Unnamed: N" and repeated
// names get a ".N" suffix. Short records are padded with empty cells.
func (r *CSVReader) ReadAll() (*table.Table, error) {
	cr := csv.NewReader(r.file)
	cr.Comma = r.delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("file has no header row")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	columns := headerNames(header)

	cells := make([][]string, len(columns))
	line := 1
	for {
		record, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		line++
		if len(record) > len(columns) {
			return nil, fmt.Errorf("record %d has %d fields, header has %d", line, len(record), len(columns))
		}
		for i := range columns {
			cell := ""
			if i < len(record) {
				cell = record[i]
			}
			cells[i] = append(cells[i], cell)
		}
	}

	rowCount := line - 1
	rows := make([]table.Row, rowCount)
	for i := range rows {
		rows[i] = make(table.Row, len(columns))
	}
	for c, col := range columns {
		values := table.InferColumn(cells[c])
		for i, v := range values {
			rows[i][col] = v
		}
	}

	return table.New(columns, rows), nil
}

// Close closes the underlying file. It is safe to call Close multiple times.
func (r *CSVReader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func headerNames(header []string) []string {
	names := make([]string, len(header))
	used := make(map[string]bool, len(header))
	for i, raw := range header {
		name := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s.%d", base, n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}
