// Package cmd provides the CLI command implementations.
package cmd

import (
	"fmt"
	"os"

	"InferenceMeter/pkg/config"
	"InferenceMeter/pkg/logging"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with all subcommands. Every
// subcommand gets its own Config so flags never leak between them.
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "infmeter",
		Short: "Energy and efficiency meter for local LLM inference",
		Long: `InferenceMeter samples host CPU, memory and estimated power while an
Ollama model generates, then derives per-request efficiency metrics.

Commands:
  serve      Run the HTTP service exposing POST /process_prompt
  run        Meter a single prompt and print the report
  bench      Replay the canned prompt set against a running service
  snapshot   Describe the host and take one resource reading
  graph      Render charts from a report log`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ./configs/config.yaml)")

	root.AddCommand(
		NewServeCmd(&configPath),
		NewRunCmd(&configPath),
		NewBenchCmd(),
		NewSnapshotCmd(&configPath),
		NewGraphCmd(&configPath),
	)

	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads cfg for cmd and builds its logger.
func setup(cmd *cobra.Command, cfg *config.Config, configPath string) (*logging.Logger, error) {
	if err := cfg.Load(configPath, cmd); err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	return log, nil
}
