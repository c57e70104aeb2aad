package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vegasq/tabq/engine"
	"github.com/vegasq/tabq/reader"
	"github.com/vegasq/tabq/table"
)

var schemaColumns = []string{
	"name", "type", "physical_type", "logical_type", "nullable",
	"missing", "missing_percent", "unique", "samples",
	"mean", "median", "std", "min", "max", "q25", "q75",
}

// runSchema prints one row per column combining the file schema with a
// profile of the loaded values.
func (a *app) runSchema(ctx context.Context) error {
	schemaPath, err := a.schemaFile()
	if err != nil {
		return err
	}
	infos, err := reader.ExtractSchemaInfo(schemaPath)
	if err != nil {
		return err
	}
	byName := make(map[string]reader.SchemaInfo, len(infos))
	for _, info := range infos {
		byName[info.Name] = info
	}

	tbl, err := reader.Loader{Workers: a.cfg.ReadWorkers}.Load(ctx, a.opts.file)
	if err != nil {
		return err
	}

	profiles := engine.Profile(tbl)
	res := &engine.Result{
		Columns:   schemaColumns,
		Data:      make([]map[string]interface{}, 0, len(profiles)),
		TotalRows: len(profiles),
	}
	for _, p := range profiles {
		res.Data = append(res.Data, schemaRow(p, byName[p.Name]))
	}
	return a.write(res)
}

// schemaFile resolves the file whose schema is shown. Glob patterns use their
// first match.
func (a *app) schemaFile() (string, error) {
	if !reader.IsGlob(a.opts.file) {
		return a.opts.file, nil
	}
	matches, err := filepath.Glob(a.opts.file)
	if err != nil {
		return "", fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: %s", reader.ErrNoMatches, a.opts.file)
	}
	if len(matches) > 1 {
		fmt.Fprintf(a.stderr, "# Showing schema from: %s (%d files matched)\n", matches[0], len(matches))
	}
	return matches[0], nil
}

func schemaRow(p engine.ColumnProfile, info reader.SchemaInfo) map[string]interface{} {
	samples := make([]string, len(p.Samples))
	for i, s := range p.Samples {
		samples[i] = table.FormatValue(s)
	}

	row := map[string]interface{}{
		"name":            p.Name,
		"type":            string(p.Type),
		"physical_type":   nil,
		"logical_type":    nil,
		"nullable":        p.Missing > 0 || info.Nullable,
		"missing":         int64(p.Missing),
		"missing_percent": p.MissingPercent,
		"unique":          int64(p.Unique),
		"samples":         strings.Join(samples, ", "),
	}
	if info.PhysicalType != "" {
		row["physical_type"] = info.PhysicalType
	}
	if info.LogicalType != "" {
		row["logical_type"] = info.LogicalType
	}

	for _, col := range []string{"mean", "median", "std", "min", "max", "q25", "q75"} {
		row[col] = nil
	}
	if s := p.Stats; s != nil {
		row["mean"] = s.Mean
		row["median"] = s.Median
		row["min"] = s.Min
		row["max"] = s.Max
		row["q25"] = s.Q25
		row["q75"] = s.Q75
		if s.Std != nil {
			row["std"] = *s.Std
		}
	}
	return row
}
