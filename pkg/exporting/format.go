// Package exporting persists inference reports in several file formats.
package exporting

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Record is one flattened report row.
type Record = map[string]interface{}

// ErrUnsupportedFormat is returned for unknown format names or extensions.
var ErrUnsupportedFormat = errors.New("exporting: unsupported format")

// Format is one on-disk encoding of the report log.
type Format interface {
	Name() string
	Extensions() []string
	// Load returns every record stored at path, in write order.
	Load(path string) ([]Record, error)
	// Open prepares path for writing. Appending formats keep existing rows.
	Open(path string) (LogWriter, error)
}

// LogWriter receives records for one open log. Callers serialize access.
type LogWriter interface {
	Write(record Record) error
	Flush() error
	Close() error
}

// formats holds registered formats in registration order.
var formats []Format

// Register adds a format. Later registrations win on name or extension
// clashes.
func Register(f Format) {
	formats = append(formats, f)
}

func lookup(match func(Format) bool) (Format, bool) {
	for i := len(formats) - 1; i >= 0; i-- {
		if match(formats[i]) {
			return formats[i], true
		}
	}
	return nil, false
}

// Get returns a format by name.
func Get(name string) (Format, bool) {
	return lookup(func(f Format) bool {
		return strings.EqualFold(f.Name(), name)
	})
}

// GetByPath returns the format owning the file's extension.
func GetByPath(path string) (Format, bool) {
	ext := filepath.Ext(path)
	if ext == "" {
		return nil, false
	}
	return lookup(func(f Format) bool {
		for _, e := range f.Extensions() {
			if strings.EqualFold(e, ext) {
				return true
			}
		}
		return false
	})
}

// GetExtension returns the preferred extension for a format name, ".csv"
// for unknown names.
func GetExtension(name string) string {
	if f, ok := Get(name); ok && len(f.Extensions()) > 0 {
		return f.Extensions()[0]
	}
	return ".csv"
}

// LoadRecords reads a report log, choosing the format by extension.
func LoadRecords(path string) ([]Record, error) {
	f, ok := GetByPath(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	records, err := f.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return records, nil
}

// SaveRecords appends records to the log at path, choosing the format by
// extension.
func SaveRecords(path string, records []Record) error {
	f, ok := GetByPath(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	w, err := f.Open(path)
	if err != nil {
		return err
	}
	for i, r := range records {
		if err := w.Write(r); err != nil {
			_ = w.Close()
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return w.Close()
}
