// Package config provides configuration management for the meter.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds all meter configuration options.
type Config struct {
	// Sampling settings
	Interval   time.Duration `mapstructure:"interval"`
	BasePowerW float64       `mapstructure:"base-power"`
	MaxPowerW  float64       `mapstructure:"max-power"`
	Probe      string        `mapstructure:"probe"`
	ProcRoot   string        `mapstructure:"proc-root"`

	// Model server
	Model          string        `mapstructure:"model"`
	Endpoint       string        `mapstructure:"endpoint"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
	RetryCount     int           `mapstructure:"retries"`

	// HTTP server
	Port int `mapstructure:"port"`

	// Output settings
	OutputPath   string `mapstructure:"output"`
	OutputFormat string `mapstructure:"format"`

	// Graph settings
	GraphDir    string `mapstructure:"graph-dir"`
	GraphFormat string `mapstructure:"graph-format"`

	// Logging
	LogLevel string `mapstructure:"log-level"`
	LogFile  string `mapstructure:"log-file"`

	// System identification
	UUID     string `mapstructure:"uuid"`
	Hostname string `mapstructure:"hostname"`
	GPUs     bool   `mapstructure:"nvidia"`
}

// Default configuration values.
const (
	DefaultInterval    = time.Second
	DefaultBasePowerW  = 2.7
	DefaultMaxPowerW   = 6.7
	DefaultProbe       = "gopsutil"
	DefaultProcRoot    = "/proc"
	DefaultModel       = "qwen2.5:0.5b-instruct-q8_0"
	DefaultEndpoint    = "http://localhost:11434/api/generate"
	DefaultPort        = 5000
	DefaultOutputPath  = "metrics_log.csv"
	DefaultFormat      = "csv"
	DefaultGraphDir    = "graphs"
	DefaultGraphFormat = "html"
	DefaultLogLevel    = "info"
)

// New creates a Config with default values.
func New() *Config {
	hostname, _ := os.Hostname()

	return &Config{
		Interval:     DefaultInterval,
		BasePowerW:   DefaultBasePowerW,
		MaxPowerW:    DefaultMaxPowerW,
		Probe:        DefaultProbe,
		ProcRoot:     DefaultProcRoot,
		Model:        DefaultModel,
		Endpoint:     DefaultEndpoint,
		Port:         DefaultPort,
		OutputPath:   DefaultOutputPath,
		OutputFormat: DefaultFormat,
		GraphDir:     DefaultGraphDir,
		GraphFormat:  DefaultGraphFormat,
		LogLevel:     DefaultLogLevel,
		Hostname:     hostname,
		UUID:         uuid.NewString(),
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Interval < time.Millisecond {
		return fmt.Errorf("interval must be at least 1ms, got %v", c.Interval)
	}

	if c.BasePowerW < 0 {
		return fmt.Errorf("base power cannot be negative, got %v", c.BasePowerW)
	}

	if c.MaxPowerW < c.BasePowerW {
		return fmt.Errorf("max power (%v) must not be below base power (%v)", c.MaxPowerW, c.BasePowerW)
	}

	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout cannot be negative, got %v", c.RequestTimeout)
	}

	if c.RetryCount < 0 {
		return fmt.Errorf("retries cannot be negative, got %d", c.RetryCount)
	}

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if c.Model == "" {
		return fmt.Errorf("model is required")
	}

	if !strings.HasPrefix(c.Endpoint, "http://") && !strings.HasPrefix(c.Endpoint, "https://") {
		return fmt.Errorf("invalid endpoint: %q", c.Endpoint)
	}

	if !contains(ValidProbes(), c.Probe) {
		return fmt.Errorf("invalid probe: %s (valid: %s)", c.Probe, strings.Join(ValidProbes(), ", "))
	}

	if c.OutputPath != "" && !contains(ValidOutputFormats(), c.OutputFormat) {
		return fmt.Errorf("invalid output format: %s (valid: %s)", c.OutputFormat, strings.Join(ValidOutputFormats(), ", "))
	}

	if !contains(ValidGraphFormats(), c.GraphFormat) {
		return fmt.Errorf("invalid graph format: %s (valid: %s)", c.GraphFormat, strings.Join(ValidGraphFormats(), ", "))
	}

	if dir := filepath.Dir(c.OutputPath); c.OutputPath != "" && dir != "." {
		if info, err := os.Stat(dir); err == nil && !info.IsDir() {
			return fmt.Errorf("output directory is not a directory: %s", dir)
		}
	}

	return nil
}

// ValidOutputFormats returns the list of supported output formats.
func ValidOutputFormats() []string {
	return []string{"csv", "tsv", "jsonl", "parquet", "sqlite"}
}

// ValidGraphFormats returns the list of supported graph formats.
func ValidGraphFormats() []string {
	return []string{"html", "png"}
}

// ValidProbes returns the list of supported host probes.
func ValidProbes() []string {
	return []string{"gopsutil", "procfs"}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// ApplyDefaults fills in any missing values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Interval == 0 {
		c.Interval = DefaultInterval
	}
	if c.BasePowerW == 0 && c.MaxPowerW == 0 {
		c.BasePowerW, c.MaxPowerW = DefaultBasePowerW, DefaultMaxPowerW
	}
	if c.Probe == "" {
		c.Probe = DefaultProbe
	}
	if c.ProcRoot == "" {
		c.ProcRoot = DefaultProcRoot
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.OutputFormat == "" {
		c.OutputFormat = formatFromPath(c.OutputPath)
	}
	if c.GraphDir == "" {
		c.GraphDir = DefaultGraphDir
	}
	if c.GraphFormat == "" {
		c.GraphFormat = DefaultGraphFormat
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Hostname == "" {
		c.Hostname, _ = os.Hostname()
	}
	if c.UUID == "" {
		c.UUID = uuid.NewString()
	}
}

// formatFromPath guesses the output format from a file extension.
func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv":
		return "tsv"
	case ".jsonl":
		return "jsonl"
	case ".parquet":
		return "parquet"
	case ".db", ".sqlite":
		return "sqlite"
	default:
		return DefaultFormat
	}
}
