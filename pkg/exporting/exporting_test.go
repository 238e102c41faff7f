package exporting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(prompt string) Record {
	return Record{
		"timestamp":         "2024-05-01 10:00:00",
		"model":             "qwen2.5:0.5b",
		"prompt":            prompt,
		"response":          "hello",
		"tokens_per_second": 8.5,
		"eval_count":        int64(17),
		"done":              true,
	}
}

func TestOrderedKeys(t *testing.T) {
	keys := OrderedKeys(Record{
		"zeta":      1,
		"response":  "r",
		"alpha":     2,
		"timestamp": "t",
		"prompt":    "p",
	})
	assert.Equal(t, []string{"timestamp", "prompt", "response", "alpha", "zeta"}, keys)
}

func TestFlattenRecord(t *testing.T) {
	flat := FlattenRecord(Record{
		"model": "m",
		"resource_usage": map[string]interface{}{
			"avg_power_w": 4.2,
		},
		"gpus": []interface{}{"a", "b"},
	})

	assert.Equal(t, "m", flat["model"])
	assert.Equal(t, 4.2, flat["resource_usage_avg_power_w"])
	assert.Equal(t, `["a","b"]`, flat["gpus"+JSONSuffix])
	assert.NotContains(t, flat, "resource_usage")

	already := Record{"a": 1}
	assert.Equal(t, already, FlattenRecord(already))
	assert.Nil(t, FlattenRecord(nil))
}

func TestFormatValueParseValue(t *testing.T) {
	tests := []struct {
		in   interface{}
		text string
		back interface{}
	}{
		{int64(42), "42", int64(42)},
		{1.5, "1.5", 1.5},
		{true, "true", true},
		{"qwen", "qwen", "qwen"},
	}
	for _, tt := range tests {
		text := FormatValue(tt.in)
		assert.Equal(t, tt.text, text)
		assert.Equal(t, tt.back, parseValue(text))
	}
	assert.Equal(t, "", FormatValue(nil))
}

func TestToTime(t *testing.T) {
	ts, ok := ToTime("2024-05-01 10:00:00")
	require.True(t, ok)
	assert.Equal(t, 10, ts.Hour())

	ts, ok = ToTime(int64(1700000000))
	require.True(t, ok)
	assert.Equal(t, int64(1700000000), ts.Unix())

	ts, ok = ToTime(float64(1700000000 * int64(time.Second)))
	require.True(t, ok)
	assert.Equal(t, int64(1700000000), ts.Unix())

	_, ok = ToTime("not a time")
	assert.False(t, ok)
}

func TestGetByPath(t *testing.T) {
	for path, name := range map[string]string{
		"a.csv":     "csv",
		"a.TSV":     "tsv",
		"a.ndjson":  "jsonl",
		"a.parquet": "parquet",
		"a.db":      "sqlite",
	} {
		f, ok := GetByPath(path)
		require.True(t, ok, path)
		assert.Equal(t, name, f.Name())
	}

	_, ok := GetByPath("a.xlsx")
	assert.False(t, ok)
	assert.Equal(t, ".parquet", GetExtension("parquet"))
	assert.Equal(t, ".csv", GetExtension("unknown"))
}

func TestCSVAppendWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics_log.csv")

	e, err := NewExporter(path, "csv")
	require.NoError(t, err)
	require.NoError(t, e.Write(sampleRecord("first")))
	require.NoError(t, e.Close())

	// Reopening appends under the existing header.
	e, err = NewExporter(path, "")
	require.NoError(t, err)
	assert.Equal(t, "csv", e.Format())
	rec := sampleRecord("second")
	rec["extra_column"] = 1
	require.NoError(t, e.Write(rec))
	require.NoError(t, e.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp,model,prompt,response,done,eval_count,tokens_per_second", lines[0])
	assert.NotContains(t, lines[2], "extra_column")

	records, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "first", records[0]["prompt"])
	assert.Equal(t, "second", records[1]["prompt"])
	assert.Equal(t, 8.5, records[1]["tokens_per_second"])
	assert.Equal(t, int64(17), records[1]["eval_count"])
}

func TestTSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.tsv")
	require.NoError(t, SaveRecords(path, []Record{sampleRecord("a, b")}))

	records, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a, b", records[0]["prompt"])
}

func TestDelimitedKeepsTextColumns(t *testing.T) {
	for _, ext := range []string{".csv", ".tsv"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "log"+ext)
			rec := sampleRecord("42")
			rec["response"] = "true"
			require.NoError(t, SaveRecords(path, []Record{rec}))

			records, err := LoadRecords(path)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, "42", records[0]["prompt"])
			assert.Equal(t, "true", records[0]["response"])
			assert.Equal(t, int64(17), records[0]["eval_count"])
			assert.Equal(t, true, records[0]["done"])
		})
	}
}

func TestJSONLAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "log.jsonl")

	for _, p := range []string{"one", "two"} {
		e, err := NewExporter(path, "jsonl")
		require.NoError(t, err)
		require.NoError(t, e.Write(sampleRecord(p)))
		require.NoError(t, e.Close())
	}

	records, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "two", records[1]["prompt"])
	assert.Equal(t, 17.0, records[1]["eval_count"])
}

func TestParquetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.parquet")

	e, err := NewExporter(path, "parquet")
	require.NoError(t, err)
	require.NoError(t, e.WriteBatch([]Record{sampleRecord("a"), sampleRecord("b")}))
	require.NoError(t, e.Close())

	records, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[1]["prompt"])
	assert.Equal(t, int64(17), records[1]["eval_count"])
	assert.Equal(t, 8.5, records[1]["tokens_per_second"])
	assert.Equal(t, true, records[1]["done"])
}

func TestParquetReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.parquet")

	for _, p := range []string{"one", "two"} {
		e, err := NewExporter(path, "")
		require.NoError(t, err)
		require.NoError(t, e.Write(sampleRecord(p)))
		require.NoError(t, e.Close())
	}

	records, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "one", records[0]["prompt"])
	assert.Equal(t, "two", records[1]["prompt"])
	assert.Equal(t, int64(17), records[0]["eval_count"])
}

func TestParquetReadableAfterFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.parquet")

	e, err := NewExporter(path, "parquet")
	require.NoError(t, err)
	for _, p := range []string{"a", "b", "c"} {
		require.NoError(t, e.Write(sampleRecord(p)))
	}

	// No Close: the file must already be complete.
	records, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "c", records[2]["prompt"])

	rec := sampleRecord("d")
	rec["new_column"] = 1.5
	delete(rec, "done")
	require.NoError(t, e.Write(rec))
	require.NoError(t, e.Close())

	records, err = LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, 1.5, records[3]["new_column"])
	assert.NotContains(t, records[0], "new_column")
	assert.NotContains(t, records[3], "done")
	assert.Equal(t, true, records[0]["done"])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestParquetOpenRejectsCorruptLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.parquet")
	require.NoError(t, os.WriteFile(path, []byte("not parquet"), 0644))

	_, err := NewExporter(path, "")
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "not parquet", string(data))
}

func TestSQLiteAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.db")

	for _, p := range []string{"one", "two"} {
		e, err := NewExporter(path, "sqlite")
		require.NoError(t, err)
		require.NoError(t, e.Write(sampleRecord(p)))
		require.NoError(t, e.Close())
	}

	records, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "one", records[0]["prompt"])
	assert.Equal(t, int64(17), records[1]["eval_count"])
	assert.Equal(t, 8.5, records[1]["tokens_per_second"])
	assert.Equal(t, true, records[1]["done"])
}

func TestNewExporterUnsupported(t *testing.T) {
	_, err := NewExporter(filepath.Join(t.TempDir(), "log.csv"), "xlsx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = LoadRecords("log.xlsx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestWriteStatic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics_log.csv")
	e, err := NewExporter(path, "csv")
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.WriteStatic(Record{"hostname": "box"}))
	assert.Equal(t, strings.TrimSuffix(path, ".csv")+"_static.json", e.StaticPath())

	data, err := os.ReadFile(e.StaticPath())
	require.NoError(t, err)
	var got Record
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "box", got["hostname"])
}
