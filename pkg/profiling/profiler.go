// Package profiling meters a single inference call: it samples the host while
// the model generates, then derives the efficiency metrics for the call.
package profiling

import (
	"context"
	"fmt"
	"time"

	"InferenceMeter/pkg/exporting"
	"InferenceMeter/pkg/logging"
	"InferenceMeter/pkg/metrics"
	"InferenceMeter/pkg/ollama"
	"InferenceMeter/pkg/probing"
	"InferenceMeter/pkg/sampling"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Generator issues one blocking inference call.
type Generator interface {
	Model() string
	Generate(ctx context.Context, prompt string) (*ollama.GenerateResponse, error)
}

// ProbeFactory builds a fresh probe for every call so that CPU baselines are
// never shared between concurrent requests.
type ProbeFactory func() (probing.Probe, error)

// Sink persists one flattened report.
type Sink interface {
	Write(record exporting.Record) error
}

// TickObserver receives every sample taken for a request.
type TickObserver func(requestID string, tick sampling.Tick)

// Option configures a Profiler.
type Option func(*Profiler)

// WithLogger sets the base logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Profiler) {
		if l != nil {
			p.log = l
		}
	}
}

// WithSink sets where reports are persisted. Sink failures are logged only.
func WithSink(s Sink) Option {
	return func(p *Profiler) {
		p.sink = s
	}
}

// WithTickObserver streams sampler ticks to fn.
func WithTickObserver(fn TickObserver) Option {
	return func(p *Profiler) {
		p.onTick = fn
	}
}

// WithHost sets the host name stamped on every report.
func WithHost(host string) Option {
	return func(p *Profiler) {
		p.host = host
	}
}

// Profiler runs Sampler, Generator and deriver for each prompt.
type Profiler struct {
	cfg    sampling.Config
	gen    Generator
	probes ProbeFactory
	sink   Sink
	onTick TickObserver
	host   string
	log    *zap.Logger
	now    func() time.Time
}

// New creates a profiler.
func New(cfg sampling.Config, gen Generator, probes ProbeFactory, opts ...Option) *Profiler {
	p := &Profiler{
		cfg:    cfg,
		gen:    gen,
		probes: probes,
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Model returns the model served by the generator.
func (p *Profiler) Model() string {
	return p.gen.Model()
}

// Profile samples the host while prompt is generated. Upstream errors are
// returned wrapped; *ollama.StatusError survives errors.As.
func (p *Profiler) Profile(ctx context.Context, prompt string) (*Report, error) {
	reqID := uuid.NewString()
	log := logging.WithRequestID(logging.FromContext(ctx, p.log), reqID)

	probe, err := p.probes()
	if err != nil {
		return nil, fmt.Errorf("create probe: %w", err)
	}

	opts := []sampling.Option{sampling.WithLogger(log)}
	if p.onTick != nil {
		opts = append(opts, sampling.WithObserver(func(t sampling.Tick) {
			p.onTick(reqID, t)
		}))
	}
	sampler := sampling.New(p.cfg, probe, opts...)

	if err := sampler.Start(p.cfg.Interval); err != nil {
		return nil, fmt.Errorf("start sampler: %w", err)
	}

	start := p.now()
	resp, err := p.gen.Generate(ctx, prompt)
	end := p.now()
	wall := end.Sub(start)
	sampler.Stop()

	if err != nil {
		log.Warn("inference failed", zap.Error(err), zap.Duration("elapsed", wall))
		return nil, fmt.Errorf("generate: %w", err)
	}

	counters := resp.Counters()
	resources := metrics.NewResourceUsage(sampler)
	report := &Report{
		RequestID: reqID,
		Timestamp: end,
		Host:      p.host,
		Model:     p.gen.Model(),
		Prompt:    prompt,
		Response:  resp.Response,
		WallClock: wall.Seconds(),
		Ollama:    metrics.NewOllamaMetrics(counters),
		Resources: resources,
		Derived: metrics.Derive(metrics.Inputs{
			Counters:  counters,
			Resources: resources,
			WallClock: wall,
		}),
	}

	log.Info("inference metered",
		zap.String("model", report.Model),
		zap.Duration("elapsed", wall),
		zap.Int("samples", resources.SampleCount),
		zap.Float64("tokens_per_second", report.Ollama.TokensPerSecond),
		zap.Float64("avg_power_w", resources.AvgPowerW),
	)

	if p.sink != nil {
		if err := p.sink.Write(report.Record()); err != nil {
			log.Error("failed to persist report", zap.Error(err))
		}
	}

	return report, nil
}
