package exporting

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// maxJSONLine bounds a single report line; responses can be long.
const maxJSONLine = 16 << 20

func init() {
	Register(jsonlFormat{})
}

// jsonlFormat writes one JSON object per line, appending to existing logs.
type jsonlFormat struct{}

func (jsonlFormat) Name() string         { return "jsonl" }
func (jsonlFormat) Extensions() []string { return []string{".jsonl", ".ndjson"} }

// Load skips blank and malformed lines so a torn final write does not hide
// the rest of the log.
func (jsonlFormat) Load(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 64<<10), maxJSONLine)

	var records []Record
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec Record
		if json.Unmarshal(line, &rec) == nil {
			records = append(records, rec)
		}
	}
	return records, sc.Err()
}

func (jsonlFormat) Open(path string) (LogWriter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	buf := bufio.NewWriter(file)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &jsonlWriter{file: file, buf: buf, enc: enc}, nil
}

type jsonlWriter struct {
	file *os.File
	buf  *bufio.Writer
	enc  *json.Encoder
}

// Write relies on Encoder terminating every value with a newline.
func (w *jsonlWriter) Write(record Record) error {
	if err := w.enc.Encode(record); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return nil
}

func (w *jsonlWriter) Flush() error {
	return w.buf.Flush()
}

func (w *jsonlWriter) Close() error {
	ferr := w.buf.Flush()
	if err := w.file.Close(); ferr == nil {
		ferr = err
	}
	return ferr
}
