// Package reader loads dataset files into tables.
//
// CSV and TSV files are read with a header row and per-column type
// inference; Parquet files keep their physical types, with DATE and
// TIMESTAMP columns converted to time.Time. A glob pattern reads every
// matching file in parallel and tags rows with a "_file" column.
//
// # Basic Usage
//
//	tbl, err := reader.ReadFile("sales.csv")
//	if err != nil {
//	    return err
//	}
//
// # Multi-file Operations
//
//	tbl, err := reader.Loader{Workers: 8}.Load(ctx, "data/2024-*.parquet")
//	if err != nil {
//	    return err
//	}
//
// # Schema Introspection
//
//	cols, err := reader.ExtractSchemaInfo("sales.parquet")
//	for _, c := range cols {
//	    fmt.Printf("%s: %s\n", c.Name, c.Type)
//	}
package reader
