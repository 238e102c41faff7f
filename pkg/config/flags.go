package config

import (
	"github.com/spf13/cobra"
)

// AddSamplingFlags adds resource sampling flags to a command.
func (c *Config) AddSamplingFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.DurationVar(&c.Interval, "interval", c.Interval, "Sampling interval")
	flags.Float64Var(&c.BasePowerW, "base-power", c.BasePowerW, "Estimated idle power draw in watts")
	flags.Float64Var(&c.MaxPowerW, "max-power", c.MaxPowerW, "Estimated full-load power draw in watts")
	flags.StringVar(&c.Probe, "probe", c.Probe, "Host probe (gopsutil, procfs)")
	flags.StringVar(&c.ProcRoot, "proc-root", c.ProcRoot, "procfs mount point for the procfs probe")
}

// AddModelFlags adds model server flags to a command.
func (c *Config) AddModelFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&c.Model, "model", "m", c.Model, "Model name sent to the generate endpoint")
	flags.StringVar(&c.Endpoint, "endpoint", c.Endpoint, "Generate endpoint URL")
	flags.DurationVar(&c.RequestTimeout, "request-timeout", c.RequestTimeout, "Generate request timeout (0 waits forever)")
	flags.IntVar(&c.RetryCount, "retries", c.RetryCount, "Retries on transport errors")
}

// AddServerFlags adds HTTP server flags to a command.
func (c *Config) AddServerFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntVarP(&c.Port, "port", "p", c.Port, "HTTP server port")
}

// AddOutputFlags adds report output flags to a command.
func (c *Config) AddOutputFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&c.OutputPath, "output", "o", c.OutputPath, "Report log file (empty disables logging)")
	// An empty format is inferred from the output extension.
	flags.StringVarP(&c.OutputFormat, "format", "f", "", "Report log format (csv, tsv, jsonl, parquet, sqlite)")
}

// AddGraphFlags adds graph generation flags to a command.
func (c *Config) AddGraphFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&c.GraphDir, "graph-dir", c.GraphDir, "Graph output directory")
	flags.StringVar(&c.GraphFormat, "graph-format", c.GraphFormat, "Graph format (html, png)")
}

// AddLogFlags adds logging flags to a command.
func (c *Config) AddLogFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&c.LogFile, "log-file", c.LogFile, "Rotated log file (empty logs to stdout)")
}

// AddSystemFlags adds system identification flags to a command.
func (c *Config) AddSystemFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&c.UUID, "uuid", c.UUID, "Meter instance UUID")
	flags.StringVar(&c.Hostname, "hostname", c.Hostname, "Hostname override")
	flags.BoolVar(&c.GPUs, "nvidia", c.GPUs, "Describe NVIDIA GPUs through NVML")
}
