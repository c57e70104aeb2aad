package reader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vegasq/tabq/table"
)

const (
	// MaxFiles limits how many files a glob pattern may match
	MaxFiles = 1000

	// DefaultWorkers is the number of files read in parallel for globs
	DefaultWorkers = 4

	// FileColumn is added to rows read through a glob pattern
	FileColumn = "_file"
)

// Format is a supported dataset file format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatTSV     Format = "tsv"
	FormatParquet Format = "parquet"
)

var (
	// ErrUnsupportedFormat is returned for file extensions no reader handles
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrNoMatches is returned when a glob pattern matches no file
	ErrNoMatches = errors.New("no files match pattern")

	// ErrTooManyFiles is returned when a glob pattern matches more than MaxFiles
	ErrTooManyFiles = errors.New("glob pattern matched too many files")
)

// DetectFormat picks the format from the file extension. Files without a
// known extension are read as CSV.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".pq":
		return FormatParquet, nil
	case ".tsv", ".tab":
		return FormatTSV, nil
	case ".csv", ".txt", "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ReadFile loads a single file into a table.
func ReadFile(path string) (*table.Table, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatParquet:
		r, err := NewParquetReader(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = r.Close() }()
		return r.ReadAll()
	default:
		delimiter := ','
		if format == FormatTSV {
			delimiter = '\t'
		}
		r, err := NewCSVReader(path, delimiter)
		if err != nil {
			return nil, err
		}
		defer func() { _ = r.Close() }()
		return r.ReadAll()
	}
}

// IsGlob reports whether path contains glob wildcards.
func IsGlob(path string) bool {
	return strings.ContainsAny(path, "*?[")
}

// Loader loads dataset resources. The zero value reads globs with
// DefaultWorkers.
type Loader struct {
	Workers int
}

// Load reads a file, or every file matching a glob pattern.
func (l Loader) Load(ctx context.Context, path string) (*table.Table, error) {
	if !IsGlob(path) {
		return ReadFile(path)
	}
	return ReadMultipleFiles(ctx, path, l.Workers)
}

// ReadMultipleFiles reads all files matching a glob pattern.
//
// Files are read in parallel with at most workers goroutines (DefaultWorkers
// when workers <= 0) and concatenated in match order. Each row is tagged with
// a "_file" column holding its source path. Any failing file fails the
// whole read.
func ReadMultipleFiles(ctx context.Context, pattern string, workers int) (*table.Table, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatches, pattern)
	}
	if len(matches) > MaxFiles {
		return nil, fmt.Errorf("%w (%d), maximum is %d", ErrTooManyFiles, len(matches), MaxFiles)
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}

	tables := make([]*table.Table, len(matches))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range matches {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tbl, err := ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			tagged := make([]interface{}, tbl.Len())
			for j := range tagged {
				tagged[j] = path
			}
			tables[i], err = tbl.SetColumn(FileColumn, tagged)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return table.Concat(tables...), nil
}
