package exporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Exporter appends report records to one output file. Each Write is
// flushed, leaving a complete log on disk between requests.
type Exporter struct {
	path    string
	format  string
	writer  LogWriter
	flatten bool
	mu      sync.Mutex
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithFlatten controls whether nested values are flattened before writing.
// It is enabled by default.
func WithFlatten(enabled bool) ExporterOption {
	return func(e *Exporter) {
		e.flatten = enabled
	}
}

// NewExporter creates an exporter for path. An empty format is inferred
// from the file extension.
func NewExporter(path, format string, opts ...ExporterOption) (*Exporter, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var (
		f  Format
		ok bool
	)
	if format == "" {
		f, ok = GetByPath(path)
	} else {
		f, ok = Get(format)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	writer, err := f.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report log: %w", err)
	}

	e := &Exporter{
		path:    path,
		format:  f.Name(),
		writer:  writer,
		flatten: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Path returns the output file path.
func (e *Exporter) Path() string {
	return e.path
}

// Format returns the output format name.
func (e *Exporter) Format() string {
	return e.format
}

// Write writes and flushes a single record.
func (e *Exporter) Write(record Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.flatten {
		record = FlattenRecord(record)
	}
	if err := e.writer.Write(record); err != nil {
		return err
	}
	return e.writer.Flush()
}

// WriteBatch writes and flushes multiple records.
func (e *Exporter) WriteBatch(records []Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, r := range records {
		if e.flatten {
			r = FlattenRecord(r)
		}
		if err := e.writer.Write(r); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return e.writer.Flush()
}

// Close finalizes and closes the exporter.
func (e *Exporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writer.Close()
}

// StaticPath returns the path of the JSON side file written by WriteStatic.
func (e *Exporter) StaticPath() string {
	ext := filepath.Ext(e.path)
	return strings.TrimSuffix(e.path, ext) + "_static.json"
}

// WriteStatic writes host information to a JSON file beside the log.
func (e *Exporter) WriteStatic(record Record) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal static info: %w", err)
	}
	return os.WriteFile(e.StaticPath(), data, 0644)
}
