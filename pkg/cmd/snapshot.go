package cmd

import (
	"fmt"
	"io"
	"time"

	"InferenceMeter/pkg/collecting"
	"InferenceMeter/pkg/config"
	"InferenceMeter/pkg/exporting"
	"InferenceMeter/pkg/logging"
	"InferenceMeter/pkg/probing"
	"InferenceMeter/pkg/sampling"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewSnapshotCmd creates the snapshot subcommand.
func NewSnapshotCmd(configPath *string) *cobra.Command {
	cfg := config.New()

	cmd := &cobra.Command{
		Use:     "snapshot",
		Aliases: []string{"ss"},
		Short:   "Describe the host and take one resource reading",
		Long: `Print the static host description together with one CPU, memory and
estimated power reading taken over a single sampling interval.

Example:
  infmeter snapshot
  infmeter snapshot --nvidia --interval 500ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := setup(cmd, cfg, *configPath)
			if err != nil {
				return err
			}
			defer logging.Flush(log.Logger)

			manager := collecting.NewManager(collecting.Options{
				ProcRoot: cfg.ProcRoot,
				UUID:     cfg.UUID,
				GPUs:     cfg.GPUs,
			}, log.Logger)
			defer manager.Close()

			probe, err := probing.New(cfg.Probe, cfg.ProcRoot)
			if err != nil {
				return err
			}
			return snapshot(cfg, manager.CollectStatic(), probe, log.Logger, cmd.OutOrStdout())
		},
	}

	cfg.AddSamplingFlags(cmd)
	cfg.AddSystemFlags(cmd)
	cfg.AddLogFlags(cmd)

	return cmd
}

// snapshot reads probe twice, one interval apart, and prints the reading
// merged into static.
func snapshot(cfg *config.Config, static exporting.Record, probe probing.Probe, log *zap.Logger, out io.Writer) error {
	if _, err := probe.CPUPercent(); err != nil {
		return fmt.Errorf("failed to read cpu: %w", err)
	}
	time.Sleep(cfg.Interval)

	cpuPct, err := probe.CPUPercent()
	if err != nil {
		return fmt.Errorf("failed to read cpu: %w", err)
	}
	memMB, err := probe.MemoryUsedMB()
	if err != nil {
		return fmt.Errorf("failed to read memory: %w", err)
	}
	power := sampling.PowerModel{BaseW: cfg.BasePowerW, MaxW: cfg.MaxPowerW}.Estimate(cpuPct)

	result := make(exporting.Record, len(static)+4)
	for k, v := range static {
		result[k] = v
	}
	result["timestamp"] = time.Now().Format(exporting.TimestampLayout)
	result["cpu_percent"] = cpuPct
	result["memory_mb"] = memMB
	result["power_w"] = power

	log.Debug("snapshot taken",
		zap.Float64("cpu_percent", cpuPct),
		zap.Float64("memory_mb", memMB),
		zap.Float64("power_w", power),
	)
	return writeJSON(out, result)
}
