package collecting

import (
	"sync"

	"InferenceMeter/pkg/exporting"

	"go.uber.org/zap"
)

// Manager runs every collector concurrently and merges their output.
type Manager struct {
	collectors []Collector
	log        *zap.Logger

	mu     sync.RWMutex
	static exporting.Record
}

// Options select the optional collectors.
type Options struct {
	ProcRoot string
	UUID     string
	GPUs     bool
}

// NewManager builds the default collector set. A missing NVML library only
// disables the GPU collector.
func NewManager(opts Options, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	cs := []Collector{
		NewHost(opts.UUID),
		NewCPU(opts.ProcRoot, ""),
		NewMemory(),
	}
	if opts.GPUs {
		if g, err := NewGPUs(); err != nil {
			log.Info("nvidia collector disabled", zap.Error(err))
		} else {
			cs = append(cs, g)
		}
	}
	m := NewManagerWith(log, cs...)
	log.Debug("initialized collectors", zap.Strings("collectors", m.CollectorNames()))
	return m
}

// NewManagerWith wraps an explicit collector list.
func NewManagerWith(log *zap.Logger, cs ...Collector) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{collectors: cs, log: log}
}

// CollectStatic gathers and caches the host description. Failing
// collectors are logged and left out.
func (m *Manager) CollectStatic() exporting.Record {
	results := make([]exporting.Record, len(m.collectors))

	var wg sync.WaitGroup
	wg.Add(len(m.collectors))
	for i, c := range m.collectors {
		go func(i int, col Collector) {
			defer wg.Done()
			rec, err := col.CollectStatic()
			if err != nil {
				m.log.Warn("static collection failed", zap.String("collector", col.Name()), zap.Error(err))
				return
			}
			results[i] = rec
		}(i, c)
	}
	wg.Wait()

	merged := make(exporting.Record)
	for _, rec := range results {
		for k, v := range rec {
			merged[k] = v
		}
	}

	m.mu.Lock()
	m.static = merged
	m.mu.Unlock()
	return merged
}

// Static returns the last collected description, or nil.
func (m *Manager) Static() exporting.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.static
}

// CollectorNames lists active collectors in order.
func (m *Manager) CollectorNames() []string {
	names := make([]string, len(m.collectors))
	for i, c := range m.collectors {
		names[i] = c.Name()
	}
	return names
}

// Close releases every collector.
func (m *Manager) Close() {
	for _, c := range m.collectors {
		if err := c.Close(); err != nil {
			m.log.Warn("error closing collector", zap.String("collector", c.Name()), zap.Error(err))
		}
	}
}
