package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/vegasq/tabq/dataset"
	"github.com/vegasq/tabq/engine"
	"github.com/vegasq/tabq/internal/config"
	"github.com/vegasq/tabq/output"
	"github.com/vegasq/tabq/reader"
)

// options holds the parsed command line.
type options struct {
	query        string
	steps        string
	measures     string
	format       string
	limit        int
	preview      bool
	schema       bool
	register     string
	save         bool
	dbPath       string
	datasetID    string
	listDatasets bool
	file         string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func newFlagSet(opts *options, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("tabq", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.query, "q", "", "Query request JSON (e.g., '{\"group_by\":[\"region\"],\"aggregations\":[{\"column\":\"sales\",\"function\":\"sum\"}]}')")
	fs.StringVar(&opts.steps, "t", "", "JSON file with a list of transformation steps")
	fs.StringVar(&opts.measures, "m", "", "JSON file with a list of measure definitions")
	fs.StringVar(&opts.format, "f", "json", "Output format: json, jsonl, csv, table")
	fs.IntVar(&opts.limit, "limit", 0, "Limit number of rows (0 = configured default)")
	fs.BoolVar(&opts.preview, "preview", false, "Preview rows after transformations and measures only")
	fs.BoolVar(&opts.schema, "schema", false, "Show schema and column profile instead of data")
	fs.StringVar(&opts.register, "register", "", "Register the file as a dataset with this name")
	fs.BoolVar(&opts.save, "save", false, "Save -t/-m definitions to the dataset given by -dataset")
	fs.StringVar(&opts.dbPath, "db", "", "Dataset database path (default $TABQ_DB_PATH or tabq.db)")
	fs.StringVar(&opts.datasetID, "dataset", "", "Run against a registered dataset id")
	fs.BoolVar(&opts.listDatasets, "list", false, "List registered datasets")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: tabq [options] <file>\n")
		fmt.Fprintf(stderr, "       tabq [options] -dataset <id>\n\n")
		fmt.Fprintf(stderr, "Query, transform and profile CSV, TSV and Parquet files.\n\n")
		fmt.Fprintf(stderr, "IMPORTANT: All flags must come BEFORE file arguments.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  tabq data.csv\n")
		fmt.Fprintf(stderr, "  tabq -f table -limit 20 'logs/2024-*.parquet'\n")
		fmt.Fprintf(stderr, "  tabq -q '{\"filters\":[{\"column\":\"age\",\"operator\":\"gt\",\"value\":30}]}' data.parquet\n")
		fmt.Fprintf(stderr, "  tabq -preview -t steps.json -m measures.json data.csv\n")
		fmt.Fprintf(stderr, "  tabq -schema data.parquet\n")
		fmt.Fprintf(stderr, "  tabq -register sales data.csv\n")
		fmt.Fprintf(stderr, "  tabq -dataset <id> -save -m measures.json\n")
	}
	return fs
}

// run executes the command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := newFlagSet(&opts, stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if fs.NArg() >= 1 {
		opts.file = fs.Arg(0)
	}

	if err := validate(opts); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, errMissingFile) {
			fmt.Fprintln(stderr)
			fs.Usage()
		}
		return 1
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "Error loading configuration: %v\n", err)
		return 1
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(stderr, "Error creating logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	a := &app{
		opts:   opts,
		cfg:    cfg,
		logger: logger,
		stdout: stdout,
		stderr: stderr,
		engine: engine.New(
			engine.WithLogger(logger),
			engine.WithLoader(reader.Loader{Workers: cfg.ReadWorkers}),
		),
	}
	if err := a.run(context.Background()); err != nil {
		reportError(stderr, opts, err)
		return 1
	}
	return 0
}

var errMissingFile = errors.New("missing file argument")

func validate(opts options) error {
	if opts.limit < 0 {
		return fmt.Errorf("-limit must be non-negative, got %d", opts.limit)
	}
	if _, err := output.NewFormatter(opts.format, io.Discard); err != nil {
		return err
	}
	if opts.schema && (opts.query != "" || opts.preview) {
		return errors.New("-schema cannot be combined with -q or -preview")
	}
	if opts.preview && opts.query != "" {
		return errors.New("-preview and -q cannot be used together")
	}
	if opts.register != "" && opts.datasetID != "" {
		return errors.New("-register and -dataset cannot be used together")
	}
	if opts.save {
		if opts.datasetID == "" {
			return errors.New("-save requires -dataset")
		}
		if opts.steps == "" && opts.measures == "" {
			return errors.New("-save requires -t or -m")
		}
	}
	if opts.datasetID != "" && opts.schema {
		return errors.New("-schema needs a file argument, not -dataset")
	}
	if opts.listDatasets || opts.datasetID != "" {
		return nil
	}
	if opts.file == "" {
		return errMissingFile
	}
	return nil
}

func reportError(stderr io.Writer, opts options, err error) {
	var pathErr *os.PathError
	switch {
	case errors.As(err, &pathErr) && errors.Is(err, os.ErrNotExist):
		fmt.Fprintf(stderr, "Error: file '%s' not found\n", pathErr.Path)
		fmt.Fprintf(stderr, "Please check the file path and try again.\n")
	case errors.Is(err, dataset.ErrNotFound):
		fmt.Fprintf(stderr, "Error: dataset '%s' not found\n", opts.datasetID)
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
}

// app carries the state of one command invocation.
type app struct {
	opts   options
	cfg    *config.Config
	logger *zap.Logger
	engine *engine.Engine
	stdout io.Writer
	stderr io.Writer
}

func (a *app) run(ctx context.Context) error {
	steps, measures, err := a.definitions()
	if err != nil {
		return err
	}

	switch {
	case a.opts.listDatasets, a.opts.register != "", a.opts.datasetID != "":
		return a.runDataset(ctx, steps, measures)
	case a.opts.schema:
		return a.runSchema(ctx)
	case a.opts.preview:
		res, err := a.engine.Preview(ctx, a.opts.file, a.previewLimit(), steps, measures)
		if err != nil {
			return err
		}
		return a.write(res)
	default:
		req, err := a.queryRequest()
		if err != nil {
			return err
		}
		res, err := a.engine.Execute(ctx, a.opts.file, req, steps, measures)
		if err != nil {
			return err
		}
		return a.write(res)
	}
}

// definitions reads the -t and -m files. Absent flags give nil lists.
func (a *app) definitions() ([]engine.TransformationStep, []engine.MeasureDefinition, error) {
	var steps []engine.TransformationStep
	var measures []engine.MeasureDefinition

	if a.opts.steps != "" {
		data, err := os.ReadFile(a.opts.steps)
		if err != nil {
			return nil, nil, fmt.Errorf("reading transformations: %w", err)
		}
		if steps, err = engine.DecodeSteps(string(data)); err != nil {
			return nil, nil, err
		}
	}
	if a.opts.measures != "" {
		data, err := os.ReadFile(a.opts.measures)
		if err != nil {
			return nil, nil, fmt.Errorf("reading measures: %w", err)
		}
		if measures, err = engine.DecodeMeasures(string(data)); err != nil {
			return nil, nil, err
		}
	}
	return steps, measures, nil
}

// queryRequest decodes -q, falling back to the configured query limit.
// -limit overrides both.
func (a *app) queryRequest() (engine.QueryRequest, error) {
	req := engine.QueryRequest{Limit: a.cfg.QueryLimit}
	if a.opts.query != "" {
		if err := json.Unmarshal([]byte(a.opts.query), &req); err != nil {
			return req, fmt.Errorf("parsing query request: %w", err)
		}
	}
	if a.opts.limit > 0 {
		req.Limit = a.opts.limit
	}
	return req, nil
}

func (a *app) previewLimit() int {
	if a.opts.limit > 0 {
		return a.opts.limit
	}
	return a.cfg.PreviewLimit
}

func (a *app) write(res *engine.Result) error {
	formatter, err := output.NewFormatter(a.opts.format, a.stdout)
	if err != nil {
		return err
	}
	if err := formatter.Format(res); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	// The json envelope already carries diagnostics
	if !strings.EqualFold(a.opts.format, "json") {
		for _, d := range res.Diagnostics {
			fmt.Fprintf(a.stderr, "Warning: %s\n", d.Error())
		}
	}
	return nil
}
