package exporting

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"
)

func init() {
	Register(parquetFormat{})
}

// parquetFormat writes one optional column per key seen in the log.
// Parquet footers cannot be extended in place, so every flush rewrites the
// whole file.
type parquetFormat struct{}

func (parquetFormat) Name() string         { return "parquet" }
func (parquetFormat) Extensions() []string { return []string{".parquet"} }

func (parquetFormat) Load(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("invalid parquet file: %w", err)
	}

	fields := pf.Schema().Fields()
	records := make([]Record, 0, pf.NumRows())
	for _, rg := range pf.RowGroups() {
		got, err := readRowGroup(rg, fields)
		records = append(records, got...)
		if err != nil {
			return records, err
		}
	}
	return records, nil
}

func readRowGroup(rg parquet.RowGroup, fields []parquet.Field) ([]Record, error) {
	rows := rg.Rows()
	defer rows.Close()

	var out []Record
	buf := make([]parquet.Row, 64)
	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			rec := make(Record, len(fields))
			for _, v := range row {
				if c := v.Column(); c >= 0 && c < len(fields) && !v.IsNull() {
					rec[fields[c].Name()] = fromParquetValue(v)
				}
			}
			out = append(out, rec)
		}
		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("failed to read rows: %w", err)
		}
	}
}

func fromParquetValue(v parquet.Value) interface{} {
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
	}
	return v.String()
}

// Open loads the rows of an existing log so that they are carried into every
// rewrite. A file that is present but unreadable is an error, never replaced.
func (f parquetFormat) Open(path string) (LogWriter, error) {
	w := &parquetWriter{path: path}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	case info.Size() > 0:
		w.rows, err = f.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read existing %s: %w", path, err)
		}
		w.flushed = len(w.rows)
	}
	return w, nil
}

// parquetWriter keeps every row of the log in memory. Flush writes the full
// log to a temporary file and renames it over path, so the file on disk is
// always a complete parquet file.
type parquetWriter struct {
	path    string
	rows    []Record
	flushed int
}

func (w *parquetWriter) Write(record Record) error {
	w.rows = append(w.rows, record)
	return nil
}

// Flush is a no-op when nothing was written since the last flush.
func (w *parquetWriter) Flush() error {
	if w.flushed == len(w.rows) {
		return nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(w.path), "."+filepath.Base(w.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary log: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}
	if err := writeParquet(tmp, w.rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", w.path, err)
	}
	w.flushed = len(w.rows)
	return nil
}

func (w *parquetWriter) Close() error {
	return w.Flush()
}

// parquetColumns returns the union of keys, sorted to match the leaf order of
// parquet.Group. A column's kind is taken from its first non-nil value.
func parquetColumns(rows []Record) ([]string, []valueKind) {
	kinds := make(map[string]valueKind)
	for _, r := range rows {
		for k, v := range r {
			if _, seen := kinds[k]; !seen {
				kinds[k] = ""
			}
			if kinds[k] == "" && v != nil {
				kinds[k] = kindOf(v)
			}
		}
	}

	columns := make([]string, 0, len(kinds))
	for k := range kinds {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	out := make([]valueKind, len(columns))
	for i, name := range columns {
		out[i] = kinds[name]
		if out[i] == "" {
			out[i] = kindString
		}
	}
	return columns, out
}

func writeParquet(dst io.Writer, rows []Record) error {
	columns, kinds := parquetColumns(rows)
	group := make(parquet.Group, len(columns))
	for i, name := range columns {
		group[name] = parquetNode(kinds[i])
	}
	pw := parquet.NewWriter(dst,
		parquet.NewSchema("inference_report", group),
		parquet.Compression(&parquet.Snappy),
	)

	batch := make([]parquet.Row, 0, len(rows))
	for _, record := range rows {
		row := make(parquet.Row, len(columns))
		for i, name := range columns {
			v, ok := parquetValue(kinds[i], record[name])
			if ok && record[name] != nil {
				row[i] = v.Level(0, 1, i)
			} else {
				row[i] = parquet.NullValue().Level(0, 0, i)
			}
		}
		batch = append(batch, row)
	}
	if _, err := pw.WriteRows(batch); err != nil {
		pw.Close()
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to write parquet footer: %w", err)
	}
	return nil
}

func parquetNode(kind valueKind) parquet.Node {
	switch kind {
	case kindInt:
		return parquet.Optional(parquet.Int(64))
	case kindFloat:
		return parquet.Optional(parquet.Leaf(parquet.DoubleType))
	case kindBool:
		return parquet.Optional(parquet.Leaf(parquet.BooleanType))
	}
	return parquet.Optional(parquet.String())
}

// parquetValue coerces val to the column's kind; a value that does not fit
// is stored as null.
func parquetValue(kind valueKind, val interface{}) (parquet.Value, bool) {
	switch kind {
	case kindBool:
		if b, ok := val.(bool); ok {
			return parquet.BooleanValue(b), true
		}
	case kindInt:
		if i, ok := ToInt64(val); ok {
			return parquet.Int64Value(i), true
		}
		if f, ok := ToFloat64Ok(val); ok {
			return parquet.Int64Value(int64(f)), true
		}
	case kindFloat:
		if f, ok := ToFloat64Ok(val); ok {
			return parquet.DoubleValue(f), true
		}
	default:
		return parquet.ByteArrayValue([]byte(FormatValue(val))), true
	}
	return parquet.Value{}, false
}
