package probing

import (
	"fmt"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostProbe reads utilisation through gopsutil. It computes CPU deltas from
// cpu.Times itself instead of cpu.Percent, whose baseline is package global.
type HostProbe struct {
	mu   sync.Mutex
	prev cpuTimes
}

// NewHostProbe creates a gopsutil backed probe.
func NewHostProbe() *HostProbe {
	return &HostProbe{}
}

func (p *HostProbe) CPUPercent() (float64, error) {
	times, err := cpu.Times(false)
	if err != nil {
		return 0, fmt.Errorf("cpu times: %w", err)
	}
	if len(times) == 0 {
		return 0, ErrNoCPU
	}

	t := times[0]
	idle := t.Idle + t.Iowait
	total := t.User + t.Nice + t.System + t.Idle + t.Iowait + t.Irq + t.Softirq + t.Steal
	cur := cpuTimes{busy: total - idle, total: total, valid: true}

	p.mu.Lock()
	defer p.mu.Unlock()

	pct := percentSince(p.prev, cur)
	p.prev = cur
	return pct, nil
}

func (p *HostProbe) MemoryUsedMB() (float64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("virtual memory: %w", err)
	}
	if vm.Total == 0 {
		return 0, ErrNoMemory
	}
	if vm.Available > vm.Total {
		return 0, nil
	}
	return float64(vm.Total-vm.Available) / BytesPerMB, nil
}
