package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"InferenceMeter/pkg/config"
	"InferenceMeter/pkg/exporting"
	"InferenceMeter/pkg/logging"
	"InferenceMeter/pkg/profiling"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRunCmd creates the run subcommand.
func NewRunCmd(configPath *string) *cobra.Command {
	cfg := config.New()

	cmd := &cobra.Command{
		Use:     "run <prompt>",
		Aliases: []string{"r"},
		Short:   "Meter a single prompt without the HTTP service",
		Long: `Send one prompt to the model server, sample the host while it generates
and print the report as JSON. The report is also appended to the log
unless --output is empty.

Example:
  infmeter run "What is the capital of France?"
  infmeter run -o "" --interval 200ms "Write a haiku"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := setup(cmd, cfg, *configPath)
			if err != nil {
				return err
			}
			defer logging.Flush(log.Logger)

			return runOnce(cmd.Context(), cfg, log.Logger, strings.Join(args, " "), cmd.OutOrStdout())
		},
	}

	cfg.AddSamplingFlags(cmd)
	cfg.AddModelFlags(cmd)
	cfg.AddOutputFlags(cmd)
	cfg.AddSystemFlags(cmd)
	cfg.AddLogFlags(cmd)

	return cmd
}

// runOnce meters prompt and prints the report. A report log that cannot be
// finalized fails the command even after the report was printed.
func runOnce(ctx context.Context, cfg *config.Config, log *zap.Logger, prompt string, out io.Writer) (err error) {
	if prompt == "" {
		return fmt.Errorf("prompt is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	opts := []profiling.Option{profiling.WithLogger(log)}
	if cfg.OutputPath != "" {
		exp, oerr := exporting.NewExporter(cfg.OutputPath, cfg.OutputFormat)
		if oerr != nil {
			return fmt.Errorf("failed to create exporter: %w", oerr)
		}
		defer func() {
			if cerr := exp.Close(); cerr != nil {
				log.Error("failed to close report log", zap.Error(cerr))
				if err == nil {
					err = fmt.Errorf("failed to close report log: %w", cerr)
				}
			}
		}()
		opts = append(opts, profiling.WithSink(exp))
	}

	profiler, err := newProfiler(cfg, newGenerator(cfg), opts...)
	if err != nil {
		return err
	}

	report, err := profiler.Profile(ctx, prompt)
	if err != nil {
		return err
	}
	return writeJSON(out, report)
}
