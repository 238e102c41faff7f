package exporting

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

func init() {
	Register(delimitedFormat{name: "csv", ext: ".csv", comma: ','})
	Register(delimitedFormat{name: "tsv", ext: ".tsv", comma: '\t'})
}

// delimitedFormat is a CSV-style log. The header is written once, when the
// file is new; an existing header fixes the column order and keys outside
// it are dropped.
type delimitedFormat struct {
	name  string
	ext   string
	comma rune
}

func (f delimitedFormat) Name() string         { return f.name }
func (f delimitedFormat) Extensions() []string { return []string{f.ext} }

func (f delimitedFormat) reader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = f.comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

// Load maps every row onto the header. Empty cells are left out and the
// leading text columns are never parsed as numbers.
func (f delimitedFormat) Load(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rows, err := f.reader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	header := rows[0]
	text := make(map[string]bool, len(LeadingColumns))
	for _, k := range LeadingColumns {
		text[k] = true
	}
	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(Record, len(header))
		for i, cell := range row {
			switch {
			case i >= len(header) || cell == "":
			case text[header[i]]:
				rec[header[i]] = cell
			default:
				rec[header[i]] = parseValue(cell)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// header returns the first row of an existing log, or nil for a missing or
// empty file.
func (f delimitedFormat) header(path string) ([]string, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	row, err := f.reader(file).Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	return row, nil
}

func (f delimitedFormat) Open(path string) (LogWriter, error) {
	columns, err := f.header(path)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	cw := csv.NewWriter(file)
	cw.Comma = f.comma
	return &delimitedWriter{file: file, csv: cw, columns: columns}, nil
}

type delimitedWriter struct {
	file    *os.File
	csv     *csv.Writer
	columns []string
}

func (w *delimitedWriter) Write(record Record) error {
	if w.columns == nil {
		w.columns = OrderedKeys(record)
		if err := w.csv.Write(w.columns); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	row := make([]string, len(w.columns))
	for i, col := range w.columns {
		row[i] = FormatValue(record[col])
	}
	return w.csv.Write(row)
}

func (w *delimitedWriter) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}

func (w *delimitedWriter) Close() error {
	ferr := w.Flush()
	if err := w.file.Close(); ferr == nil {
		ferr = err
	}
	return ferr
}
