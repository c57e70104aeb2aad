package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/segmentio/parquet-go"
)

// TestRow defines a simple test data structure
type TestRow struct {
	ID     int64   `parquet:"id"`
	Name   string  `parquet:"name"`
	Age    int64   `parquet:"age"`
	Salary float64 `parquet:"salary"`
}

// createTestParquetFile creates a temporary parquet file with test data
func createTestParquetFile(t *testing.T, dir, filename string, rows []TestRow) string {
	t.Helper()
	testFile := filepath.Join(dir, filename)

	f, err := os.Create(testFile)
	if err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	writer := parquet.NewGenericWriter[TestRow](f)
	if _, err := writer.Write(rows); err != nil {
		t.Fatalf("failed to write test data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("failed to close file: %v", err)
	}

	return testFile
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// setupEnv isolates configuration from the caller's environment.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TABQ_DB_PATH", filepath.Join(dir, "tabq.db"))
	t.Setenv("TABQ_LOG_LEVEL", "error")
	t.Setenv("TABQ_LOG_FORMAT", "console")
	t.Setenv("TABQ_QUERY_LIMIT", "")
	t.Setenv("TABQ_PREVIEW_LIMIT", "")
	t.Setenv("TABQ_EDIT_PREVIEW_LIMIT", "")
	t.Setenv("TABQ_READ_WORKERS", "")
	return dir
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

type envelope struct {
	Data        []map[string]interface{} `json:"data"`
	TotalRows   int                      `json:"total_rows"`
	Columns     []string                 `json:"columns"`
	Diagnostics []map[string]interface{} `json:"diagnostics"`
}

func decodeEnvelope(t *testing.T, out string) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		t.Fatalf("output is not a JSON envelope: %v\n%s", err, out)
	}
	return env
}

func TestRun_QueryParquet(t *testing.T) {
	dir := setupEnv(t)
	testFile := createTestParquetFile(t, dir, "test.parquet", []TestRow{
		{ID: 1, Name: "Alice", Age: 30, Salary: 50000.0},
		{ID: 2, Name: "Bob", Age: 25, Salary: 45000.0},
		{ID: 3, Name: "Charlie", Age: 35, Salary: 60000.0},
	})

	code, stdout, stderr := runCLI(t,
		"-q", `{"filters":[{"column":"age","operator":"gte","value":30}],"sort_by":[{"column":"salary","order":"desc"}]}`,
		testFile)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}

	env := decodeEnvelope(t, stdout)
	if env.TotalRows != 2 || env.Data[0]["name"] != "Charlie" || env.Data[1]["name"] != "Alice" {
		t.Errorf("unexpected result: %+v", env)
	}
	wantColumns := []string{"id", "name", "age", "salary"}
	if strings.Join(env.Columns, ",") != strings.Join(wantColumns, ",") {
		t.Errorf("Columns = %v, want %v", env.Columns, wantColumns)
	}
}

func TestRun_AggregateCSVOutput(t *testing.T) {
	dir := setupEnv(t)
	file := writeTestFile(t, dir, "sales.csv", "region,units\nwest,1\neast,2\nwest,3\n")

	code, stdout, stderr := runCLI(t, "-f", "csv",
		"-q", `{"group_by":["region"],"aggregations":[{"column":"units","function":"sum"}]}`,
		file)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	want := "region,units_sum\nwest,4\neast,2\n"
	if stdout != want {
		t.Errorf("output = %q, want %q", stdout, want)
	}
}

func TestRun_LimitAndDiagnostics(t *testing.T) {
	dir := setupEnv(t)
	file := writeTestFile(t, dir, "data.csv", "x\n1\n2\n3\n4\n")

	code, stdout, stderr := runCLI(t, "-f", "jsonl", "-limit", "2",
		"-q", `{"sort_by":[{"column":"missing"}]}`, file)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	if lines := strings.Split(strings.TrimSpace(stdout), "\n"); len(lines) != 2 {
		t.Errorf("got %d lines, want 2:\n%s", len(lines), stdout)
	}
	if !strings.Contains(stderr, "Warning: sort[0]") {
		t.Errorf("diagnostics should be reported on stderr, got %q", stderr)
	}
}

func TestRun_PreviewWithDefinitions(t *testing.T) {
	dir := setupEnv(t)
	file := writeTestFile(t, dir, "data.csv", "a,b\n1,2\n3,4\n")
	steps := writeTestFile(t, dir, "steps.json", `[{"type":"rename","params":{"columns":{"a":"first"}}}]`)
	measures := writeTestFile(t, dir, "measures.json", `[{"name":"total","formula":"first + b"}]`)

	code, stdout, stderr := runCLI(t, "-preview", "-t", steps, "-m", measures, file)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	env := decodeEnvelope(t, stdout)
	if strings.Join(env.Columns, ",") != "first,b,total" {
		t.Errorf("Columns = %v", env.Columns)
	}
	if env.Data[1]["total"] != 7.0 {
		t.Errorf("total = %v, want 7", env.Data[1]["total"])
	}
}

func TestRun_SchemaMode(t *testing.T) {
	dir := setupEnv(t)
	testFile := createTestParquetFile(t, dir, "test.parquet", []TestRow{
		{ID: 1, Name: "Alice", Age: 30, Salary: 50000.0},
		{ID: 2, Name: "Bob", Age: 25, Salary: 45000.0},
	})

	code, stdout, stderr := runCLI(t, "-schema", testFile)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	env := decodeEnvelope(t, stdout)
	if env.TotalRows != 4 {
		t.Fatalf("TotalRows = %d, want 4", env.TotalRows)
	}
	age := env.Data[2]
	if age["name"] != "age" || age["physical_type"] != "INT64" || age["mean"] != 27.5 || age["unique"] != 2.0 {
		t.Errorf("age row = %v", age)
	}
	name := env.Data[1]
	if name["samples"] != "Alice, Bob" || name["mean"] != nil {
		t.Errorf("name row = %v", name)
	}
}

func TestRun_DatasetWorkflow(t *testing.T) {
	dir := setupEnv(t)
	file := writeTestFile(t, dir, "sales.csv", "region,units\nwest,1\neast,2\nwest,3\n")
	measures := writeTestFile(t, dir, "measures.json", `[{"name":"double","formula":"units * 2"}]`)

	code, stdout, stderr := runCLI(t, "-register", "sales", file)
	if code != 0 {
		t.Fatalf("register exit code = %d, stderr = %s", code, stderr)
	}
	registered := decodeEnvelope(t, stdout)
	id, _ := registered.Data[0]["id"].(string)
	if id == "" {
		t.Fatalf("register should print the dataset id, got %s", stdout)
	}

	if code, _, stderr = runCLI(t, "-dataset", id, "-save", "-m", measures); code != 0 {
		t.Fatalf("save exit code = %d, stderr = %s", code, stderr)
	}

	code, stdout, stderr = runCLI(t, "-dataset", id,
		"-q", `{"aggregations":[{"column":"double","function":"sum"}]}`)
	if code != 0 {
		t.Fatalf("query exit code = %d, stderr = %s", code, stderr)
	}
	env := decodeEnvelope(t, stdout)
	if env.Data[0]["double_sum"] != 12.0 {
		t.Errorf("double_sum = %v, want 12", env.Data[0]["double_sum"])
	}

	code, stdout, stderr = runCLI(t, "-dataset", id, "-preview", "-limit", "1")
	if code != 0 {
		t.Fatalf("preview exit code = %d, stderr = %s", code, stderr)
	}
	env = decodeEnvelope(t, stdout)
	if env.TotalRows != 1 || strings.Join(env.Columns, ",") != "region,units,double" {
		t.Errorf("preview = %+v", env)
	}

	code, stdout, _ = runCLI(t, "-list")
	if code != 0 || !strings.Contains(stdout, id) {
		t.Errorf("list should include %s, got %s", id, stdout)
	}
}

func TestRun_Errors(t *testing.T) {
	dir := setupEnv(t)
	file := writeTestFile(t, dir, "data.csv", "x\n1\n")

	tests := []struct {
		name       string
		args       []string
		wantStderr string
	}{
		{"missing file argument", []string{}, "missing file argument"},
		{"negative limit", []string{"-limit", "-1", file}, "-limit must be non-negative"},
		{"bad format", []string{"-f", "xml", file}, "invalid format"},
		{"schema with query", []string{"-schema", "-q", "{}", file}, "-schema cannot be combined"},
		{"save without dataset", []string{"-save", "-m", "m.json"}, "-save requires -dataset"},
		{"file not found", []string{filepath.Join(dir, "nope.csv")}, "not found"},
		{"malformed query", []string{"-q", "{", file}, "parsing query request"},
		{"unknown dataset", []string{"-dataset", "nope"}, "dataset 'nope' not found"},
		{"malformed measures file", []string{"-m", writeTestFile(t, dir, "bad.json", "{"), file}, "fatal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.args...)
			if code != 1 {
				t.Errorf("exit code = %d, want 1", code)
			}
			if !strings.Contains(stderr, tt.wantStderr) {
				t.Errorf("stderr = %q, want it to contain %q", stderr, tt.wantStderr)
			}
		})
	}
}
