// Package graphing renders per-metric charts across logged inference reports.
package graphing

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"InferenceMeter/pkg/exporting"

	"go.uber.org/zap"
)

// Supported output formats.
const (
	FormatHTML = "html"
	FormatPNG  = "png"
)

// HTMLFileName is the page written for FormatHTML.
const HTMLFileName = "inference-metrics.html"

// Generator creates visualizations from a report log.
type Generator struct {
	inputPath string
	outputDir string
	format    string
	log       *zap.Logger
}

// NewGenerator creates a new graph generator.
func NewGenerator(inputPath, outputDir, format string, log *zap.Logger) (*Generator, error) {
	if inputPath == "" {
		return nil, fmt.Errorf("input path is required")
	}
	if outputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	switch format {
	case "":
		format = FormatHTML
	case FormatHTML, FormatPNG:
	default:
		return nil, fmt.Errorf("unsupported graph format: %s", format)
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Generator{
		inputPath: inputPath,
		outputDir: outputDir,
		format:    format,
		log:       log,
	}, nil
}

// Generate renders the log and returns the written files.
func (g *Generator) Generate() ([]string, error) {
	records, err := exporting.LoadRecords(g.inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrNotEnoughData, len(records))
	}

	sortByTime(records)
	series := BuildSeries(records)

	if err := os.MkdirAll(g.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var paths []string
	if g.format == FormatPNG {
		paths, err = RenderPNG(g.outputDir, series)
		if err != nil {
			return paths, err
		}
	} else {
		path := filepath.Join(g.outputDir, HTMLFileName)
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
		n, err := RenderHTML(f, "Inference Metrics", series, g.loadStatic())
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, err
		}
		g.log.Debug("rendered charts", zap.Int("charts", n))
		paths = []string{path}
	}

	g.log.Info("generated graphs",
		zap.String("input", g.inputPath),
		zap.String("output_dir", g.outputDir),
		zap.Int("records", len(records)),
		zap.Int("files", len(paths)),
	)
	return paths, nil
}

// loadStatic reads the host description written beside the log, if any.
func (g *Generator) loadStatic() *StaticInfoData {
	ext := filepath.Ext(g.inputPath)
	path := strings.TrimSuffix(g.inputPath, ext) + "_static.json"

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		g.log.Warn("failed to read static info", zap.String("path", path), zap.Error(err))
		return nil
	}

	var info exporting.Record
	if err := json.Unmarshal(data, &info); err != nil {
		g.log.Warn("failed to parse static info", zap.String("path", path), zap.Error(err))
		return nil
	}
	return ParseStaticInfo(info)
}
