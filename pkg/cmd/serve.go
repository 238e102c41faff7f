package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"InferenceMeter/pkg/collecting"
	"InferenceMeter/pkg/config"
	"InferenceMeter/pkg/exporting"
	"InferenceMeter/pkg/logging"
	"InferenceMeter/pkg/profiling"
	"InferenceMeter/pkg/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd(configPath *string) *cobra.Command {
	cfg := config.New()

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Run the metering HTTP service",
		Long: `Run an HTTP service that forwards prompts to Ollama and meters each call.

Endpoints:
  POST /process_prompt   Meter one prompt, returns the full report
  GET  /health           Liveness
  GET  /info             Model, endpoint and uptime
  GET  /static           Host description
  GET  /metrics          Prometheus metrics
  GET  /ws/ticks         Live sample ticks (websocket)

Example:
  infmeter serve --port 5000 --model qwen2.5:0.5b-instruct-q8_0
  infmeter serve -o runs/metrics.parquet --probe procfs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := setup(cmd, cfg, *configPath)
			if err != nil {
				return err
			}
			defer logging.Flush(log.Logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, log.Logger)
		},
	}

	cfg.AddSamplingFlags(cmd)
	cfg.AddModelFlags(cmd)
	cfg.AddServerFlags(cmd)
	cfg.AddOutputFlags(cmd)
	cfg.AddSystemFlags(cmd)
	cfg.AddLogFlags(cmd)

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	manager := collecting.NewManager(collecting.Options{
		ProcRoot: cfg.ProcRoot,
		UUID:     cfg.UUID,
		GPUs:     cfg.GPUs,
	}, log)
	defer manager.Close()
	static := manager.CollectStatic()

	hub := server.NewHub(log)
	defer hub.Close()

	opts := []profiling.Option{
		profiling.WithLogger(log),
		profiling.WithTickObserver(hub.Publish),
	}

	if cfg.OutputPath != "" {
		exp, err := exporting.NewExporter(cfg.OutputPath, cfg.OutputFormat)
		if err != nil {
			return fmt.Errorf("failed to create exporter: %w", err)
		}
		defer func() {
			if err := exp.Close(); err != nil {
				log.Error("failed to close report log", zap.Error(err))
			}
		}()
		if err := exp.WriteStatic(static); err != nil {
			log.Warn("failed to write static info", zap.Error(err))
		}
		opts = append(opts, profiling.WithSink(exp))
		log.Info("logging reports",
			zap.String("path", exp.Path()),
			zap.String("format", exp.Format()),
		)
	}

	profiler, err := newProfiler(cfg, newGenerator(cfg), opts...)
	if err != nil {
		return err
	}

	srv := server.New(profiler, server.Options{
		Port:     cfg.Port,
		Static:   static,
		Hub:      hub,
		Logger:   log,
		Endpoint: cfg.Endpoint,
	})
	return srv.Run(ctx)
}
