package reader

import (
	"fmt"

	"github.com/segmentio/parquet-go"

	"github.com/vegasq/tabq/table"
)

// SchemaInfo describes one column of a dataset file.
//
// Type is the table kind the column loads as. PhysicalType and LogicalType
// are only set for Parquet files.
type SchemaInfo struct {
	Name         string     `json:"name"`
	Type         table.Kind `json:"type"`
	PhysicalType string     `json:"physical_type,omitempty"`
	LogicalType  string     `json:"logical_type,omitempty"`
	Nullable     bool       `json:"nullable"`
	Repeated     bool       `json:"repeated,omitempty"`
}

// ExtractSchemaInfo describes the columns of a dataset file.
//
// Parquet schemas are read from the file footer without loading rows; nested
// fields use dot notation. Delimited files are loaded and their inferred
// column kinds reported.
func ExtractSchemaInfo(path string) ([]SchemaInfo, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	if format != FormatParquet {
		tbl, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		return tableSchema(tbl), nil
	}

	r, err := NewParquetReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer func() { _ = r.Close() }()

	var infos []SchemaInfo
	for _, field := range r.Schema().Fields() {
		infos = append(infos, fieldInfo(field, "", false)...)
	}
	return infos, nil
}

func tableSchema(tbl *table.Table) []SchemaInfo {
	columns := tbl.Columns()
	infos := make([]SchemaInfo, 0, len(columns))
	for _, col := range columns {
		values, _ := tbl.Column(col)
		nullable := false
		for _, v := range values {
			if v == nil {
				nullable = true
				break
			}
		}
		infos = append(infos, SchemaInfo{
			Name:     col,
			Type:     table.ColumnKind(values),
			Nullable: nullable,
		})
	}
	return infos
}

// fieldInfo flattens a field into leaf descriptions, propagating the
// repeated flag of parent groups.
func fieldInfo(field parquet.Field, prefix string, parentRepeated bool) []SchemaInfo {
	name := field.Name()
	if prefix != "" {
		name = prefix + "." + name
	}
	repeated := parentRepeated || field.Repeated()

	if children := field.Fields(); len(children) > 0 {
		var infos []SchemaInfo
		for _, child := range children {
			infos = append(infos, fieldInfo(child, name, repeated)...)
		}
		return infos
	}

	return []SchemaInfo{{
		Name:         name,
		Type:         loadedKind(field, repeated),
		PhysicalType: physicalType(field),
		LogicalType:  logicalType(field),
		Nullable:     field.Optional(),
		Repeated:     repeated,
	}}
}

// loadedKind reports the table kind a leaf is converted to on load.
func loadedKind(field parquet.Field, repeated bool) table.Kind {
	if repeated {
		return table.KindString
	}
	typ := field.Type()
	if typ == nil {
		return table.KindMixed
	}
	if lt := typ.LogicalType(); lt != nil && (lt.Timestamp != nil || lt.Date != nil) {
		return table.KindDatetime
	}

	switch typ.Kind() {
	case parquet.Boolean:
		return table.KindBool
	case parquet.Int32, parquet.Int64:
		return table.KindInteger
	case parquet.Float, parquet.Double:
		return table.KindFloat
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return table.KindString
	default:
		return table.KindMixed
	}
}

func physicalType(field parquet.Field) string {
	if field.Type() == nil {
		return "GROUP"
	}

	switch field.Type().Kind() {
	case parquet.Boolean:
		return "BOOLEAN"
	case parquet.Int32:
		return "INT32"
	case parquet.Int64:
		return "INT64"
	case parquet.Int96:
		return "INT96"
	case parquet.Float:
		return "FLOAT"
	case parquet.Double:
		return "DOUBLE"
	case parquet.ByteArray:
		return "BYTE_ARRAY"
	case parquet.FixedLenByteArray:
		return "FIXED_LEN_BYTE_ARRAY"
	default:
		return "UNKNOWN"
	}
}

func logicalType(field parquet.Field) string {
	if field.Type() == nil {
		return ""
	}
	lt := field.Type().LogicalType()
	if lt == nil {
		return ""
	}
	return lt.String()
}
