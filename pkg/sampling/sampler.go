// Package sampling records CPU, memory and estimated power while an
// inference call is in flight.
package sampling

import (
	"errors"
	"sync"
	"time"

	"InferenceMeter/pkg/probing"

	"go.uber.org/zap"
)

var (
	// ErrRunning is returned by Start on a sampler that is already running.
	ErrRunning = errors.New("sampling: sampler already running")

	// ErrStopped is returned by Start on a sampler that has been stopped.
	ErrStopped = errors.New("sampling: sampler already stopped")
)

// Config holds the sampling interval and power bounds.
type Config struct {
	Interval time.Duration
	Power    PowerModel
}

// Tick is one appended sample.
type Tick struct {
	Time       time.Time `json:"time"`
	Index      int       `json:"index"`
	CPUPercent float64   `json:"cpu_percent"`
	MemoryMB   float64   `json:"memory_mb"`
	PowerW     float64   `json:"power_w"`
}

// Observer is called after every appended tick, outside the series lock.
type Observer func(Tick)

// Option configures a Sampler.
type Option func(*Sampler)

// WithLogger sets the logger used for tick read failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *Sampler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithObserver registers fn to receive every tick.
func WithObserver(fn Observer) Option {
	return func(s *Sampler) {
		s.observer = fn
	}
}

type state int

const (
	idle state = iota
	running
	stopped
)

// Sampler periodically records host readings on a background goroutine. A
// Sampler covers exactly one window: Start once, Stop once, then read.
type Sampler struct {
	cfg      Config
	probe    probing.Probe
	log      *zap.Logger
	observer Observer

	mu    sync.RWMutex
	cpu   []float64
	mem   []float64
	power []float64

	runMu sync.Mutex
	state state
	stop  chan struct{}
	done  chan struct{}
}

// New creates a sampler reading from probe.
func New(cfg Config, probe probing.Probe, opts ...Option) *Sampler {
	s := &Sampler{
		cfg:   cfg,
		probe: probe,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EstimatePower maps CPU utilisation to watts using the configured bounds.
func (s *Sampler) EstimatePower(cpuPercent float64) float64 {
	return s.cfg.Power.Estimate(cpuPercent)
}

// Start takes a warm-up CPU reading and launches the sampling loop. A
// non-positive interval falls back to the configured one.
func (s *Sampler) Start(interval time.Duration) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	switch s.state {
	case running:
		return ErrRunning
	case stopped:
		return ErrStopped
	}

	if interval <= 0 {
		interval = s.cfg.Interval
	}
	if interval <= 0 {
		interval = time.Second
	}

	if _, err := s.probe.CPUPercent(); err != nil {
		s.log.Warn("warm-up cpu read failed", zap.Error(err))
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.state = running
	go s.loop(interval, s.stop, s.done)
	return nil
}

// Stop signals the loop and waits for it to exit. No sample is appended
// after Stop returns. Stop on a sampler that is not running is a no-op.
func (s *Sampler) Stop() {
	s.runMu.Lock()
	if s.state != running {
		s.runMu.Unlock()
		return
	}
	stop, done := s.stop, s.done
	s.state = stopped
	s.runMu.Unlock()

	close(stop)
	<-done
}

func (s *Sampler) loop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		default:
		}

		s.tick()

		timer.Reset(interval)
		select {
		case <-stop:
			return
		case <-timer.C:
		}
	}
}

// tick reads one sample. Read errors are logged and the tick is skipped.
func (s *Sampler) tick() {
	cpuPct, err := s.probe.CPUPercent()
	if err != nil {
		s.log.Error("cpu read failed, skipping tick", zap.Error(err))
		return
	}
	memMB, err := s.probe.MemoryUsedMB()
	if err != nil {
		s.log.Error("memory read failed, skipping tick", zap.Error(err))
		return
	}
	powerW := s.EstimatePower(cpuPct)

	s.mu.Lock()
	s.cpu = append(s.cpu, cpuPct)
	s.mem = append(s.mem, memMB)
	s.power = append(s.power, powerW)
	n := len(s.cpu)
	s.mu.Unlock()

	if s.observer != nil {
		s.observer(Tick{
			Time:       time.Now(),
			Index:      n - 1,
			CPUPercent: cpuPct,
			MemoryMB:   memMB,
			PowerW:     powerW,
		})
	}
}

// Len returns the number of recorded ticks.
func (s *Sampler) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cpu)
}

// Series returns a copy of the requested series.
func (s *Sampler) Series(k Kind) []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var src []float64
	switch k {
	case CPU:
		src = s.cpu
	case Memory:
		src = s.mem
	case Power:
		src = s.power
	}
	out := make([]float64, len(src))
	copy(out, src)
	return out
}

// Stats summarises the requested series at call time.
func (s *Sampler) Stats(k Kind) Stats {
	return Summarize(s.Series(k))
}

func (s *Sampler) AvgCPU() float64       { return s.Stats(CPU).Avg }
func (s *Sampler) PeakCPU() float64      { return s.Stats(CPU).Peak }
func (s *Sampler) StdDevCPU() float64    { return s.Stats(CPU).StdDev }
func (s *Sampler) AvgMemMB() float64     { return s.Stats(Memory).Avg }
func (s *Sampler) PeakMemMB() float64    { return s.Stats(Memory).Peak }
func (s *Sampler) StdDevMemory() float64 { return s.Stats(Memory).StdDev }
func (s *Sampler) AvgPower() float64     { return s.Stats(Power).Avg }
func (s *Sampler) PeakPower() float64    { return s.Stats(Power).Peak }
func (s *Sampler) MinPower() float64     { return s.Stats(Power).Min }
func (s *Sampler) StdDevPower() float64  { return s.Stats(Power).StdDev }
