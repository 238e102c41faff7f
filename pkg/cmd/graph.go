package cmd

import (
	"fmt"
	"os"

	"InferenceMeter/pkg/config"
	"InferenceMeter/pkg/graphing"
	"InferenceMeter/pkg/logging"

	"github.com/spf13/cobra"
)

// NewGraphCmd creates the graph subcommand.
func NewGraphCmd(configPath *string) *cobra.Command {
	cfg := config.New()

	cmd := &cobra.Command{
		Use:     "graph [report-log]",
		Aliases: []string{"g"},
		Short:   "Render charts from a report log",
		Long: `Render one chart per metric across every logged request. HTML output is
a single echarts page headed by the host description; PNG output writes
one image per metric.

Supported input formats: csv, tsv, jsonl, parquet, sqlite

Example:
  infmeter graph
  infmeter graph runs/metrics.parquet --graph-format png --graph-dir out`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := setup(cmd, cfg, *configPath)
			if err != nil {
				return err
			}
			defer logging.Flush(log.Logger)

			input := cfg.OutputPath
			if len(args) == 1 {
				input = args[0]
			}
			if _, err := os.Stat(input); err != nil {
				return fmt.Errorf("input file not found: %s", input)
			}

			gen, err := graphing.NewGenerator(input, cfg.GraphDir, cfg.GraphFormat, log.Logger)
			if err != nil {
				return fmt.Errorf("failed to create generator: %w", err)
			}
			paths, err := gen.Generate()
			if err != nil {
				return fmt.Errorf("failed to generate graphs: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated %d file(s) in: %s\n", len(paths), cfg.GraphDir)
			return nil
		},
	}

	cfg.AddOutputFlags(cmd)
	cfg.AddGraphFlags(cmd)
	cfg.AddLogFlags(cmd)

	return cmd
}
