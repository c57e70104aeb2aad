package reader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/parquet-go"

	"github.com/vegasq/tabq/table"
)

// ParquetReader reads a parquet file into a table.
//
// It maintains both an OS file handle and a parquet file handle to enable
// proper resource cleanup.
type ParquetReader struct {
	file   *os.File
	pqFile *parquet.File
}

// NewParquetReader opens and validates a parquet file.
//
// Example:
//
//	r, err := NewParquetReader("data.parquet")
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
func NewParquetReader(path string) (*ParquetReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	return &ParquetReader{file: file, pqFile: pqFile}, nil
}

// leaf describes one leaf column of the parquet schema.
type leaf struct {
	name    string
	convert func(parquet.Value) interface{}
}

// ReadAll reads every row into memory. Columns follow the schema's leaf
// order; nested fields use dot notation.
func (r *ParquetReader) ReadAll() (*table.Table, error) {
	schema := r.pqFile.Schema()
	leaves := schemaLeaves(schema)

	columns := make([]string, len(leaves))
	for i, l := range leaves {
		columns[i] = l.name
	}

	reader := parquet.NewReader(r.pqFile)
	defer func() { _ = reader.Close() }()

	var rows []table.Row
	buf := make([]parquet.Row, 128)
	for {
		n, err := reader.ReadRows(buf)
		for _, pqRow := range buf[:n] {
			rows = append(rows, convertRow(pqRow, leaves))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if n == 0 {
			break
		}
	}

	return table.New(columns, rows), nil
}

// Schema returns the parquet file schema.
func (r *ParquetReader) Schema() *parquet.Schema {
	return r.pqFile.Schema()
}

// Close closes the underlying file. It is safe to call Close multiple times.
func (r *ParquetReader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func schemaLeaves(schema *parquet.Schema) []leaf {
	paths := schema.Columns()
	leaves := make([]leaf, len(paths))
	for i, path := range paths {
		l := leaf{name: strings.Join(path, "."), convert: convertValue}
		if col, ok := schema.Lookup(path...); ok {
			l.convert = leafConverter(col.Node)
		}
		leaves[i] = l
	}
	return leaves
}

// convertRow maps a parquet row to a table row. Repeated leaves become
// lists.
func convertRow(pqRow parquet.Row, leaves []leaf) table.Row {
	row := make(table.Row, len(leaves))
	repeated := make(map[int][]interface{})

	for _, v := range pqRow {
		idx := v.Column()
		if idx < 0 || idx >= len(leaves) {
			continue
		}
		value := leaves[idx].convert(v)
		if _, seen := row[leaves[idx].name]; seen {
			if _, ok := repeated[idx]; !ok {
				repeated[idx] = []interface{}{row[leaves[idx].name]}
			}
			repeated[idx] = append(repeated[idx], value)
			continue
		}
		row[leaves[idx].name] = value
	}

	for idx, values := range repeated {
		row[leaves[idx].name] = table.Normalize(values)
	}
	return row
}

// leafConverter picks a value conversion from the leaf's logical type.
func leafConverter(node parquet.Node) func(parquet.Value) interface{} {
	typ := node.Type()
	if typ == nil {
		return convertValue
	}
	logical := typ.LogicalType()
	if logical == nil {
		return convertValue
	}

	switch {
	case logical.Timestamp != nil:
		unit := time.Millisecond
		switch {
		case logical.Timestamp.Unit.Micros != nil:
			unit = time.Microsecond
		case logical.Timestamp.Unit.Nanos != nil:
			unit = time.Nanosecond
		}
		return func(v parquet.Value) interface{} {
			if v.IsNull() || v.Kind() != parquet.Int64 {
				return convertValue(v)
			}
			return time.Unix(0, v.Int64()*int64(unit)).UTC()
		}
	case logical.Date != nil:
		return func(v parquet.Value) interface{} {
			if v.IsNull() || v.Kind() != parquet.Int32 {
				return convertValue(v)
			}
			return time.Unix(int64(v.Int32())*86400, 0).UTC()
		}
	case logical.UUID != nil:
		return func(v parquet.Value) interface{} {
			if v.IsNull() {
				return nil
			}
			id, err := uuid.FromBytes(v.ByteArray())
			if err != nil {
				return convertValue(v)
			}
			return id.String()
		}
	}
	return convertValue
}

// convertValue maps a physical parquet value to a table scalar.
func convertValue(v parquet.Value) interface{} {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return fmt.Sprintf("%v", v)
	}
}
