package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"InferenceMeter/pkg/config"
	"InferenceMeter/pkg/ollama"
	"InferenceMeter/pkg/probing"
	"InferenceMeter/pkg/profiling"
	"InferenceMeter/pkg/sampling"
)

// samplingConfig converts the flags into a sampler configuration.
func samplingConfig(cfg *config.Config) sampling.Config {
	return sampling.Config{
		Interval: cfg.Interval,
		Power: sampling.PowerModel{
			BaseW: cfg.BasePowerW,
			MaxW:  cfg.MaxPowerW,
		},
	}
}

// newGenerator builds the model server client.
func newGenerator(cfg *config.Config) *ollama.Client {
	return ollama.NewClient(ollama.Config{
		Endpoint:   cfg.Endpoint,
		Model:      cfg.Model,
		Timeout:    cfg.RequestTimeout,
		RetryCount: cfg.RetryCount,
	})
}

// probeFactory returns a factory for the configured probe. The probe name is
// validated up front so that a typo fails at startup, not per request.
func probeFactory(cfg *config.Config) (profiling.ProbeFactory, error) {
	if _, err := probing.New(cfg.Probe, cfg.ProcRoot); err != nil {
		return nil, err
	}
	name, root := cfg.Probe, cfg.ProcRoot
	return func() (probing.Probe, error) {
		return probing.New(name, root)
	}, nil
}

// newProfiler wires the generator, probe factory and sampler settings.
func newProfiler(cfg *config.Config, gen profiling.Generator, opts ...profiling.Option) (*profiling.Profiler, error) {
	probes, err := probeFactory(cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]profiling.Option{profiling.WithHost(cfg.Hostname)}, opts...)
	return profiling.New(samplingConfig(cfg), gen, probes, opts...), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
