package probing

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// ProcProbe reads /proc/stat and /proc/meminfo under a configurable root.
type ProcProbe struct {
	root string
	mu   sync.Mutex
	prev cpuTimes
}

// NewProcProbe creates a probe reading from root, usually "/proc".
func NewProcProbe(root string) *ProcProbe {
	if root == "" {
		root = "/proc"
	}
	return &ProcProbe{root: root}
}

func (p *ProcProbe) CPUPercent() (float64, error) {
	cur, err := readStat(filepath.Join(p.root, "stat"))
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pct := percentSince(p.prev, cur)
	p.prev = cur
	return pct, nil
}

func (p *ProcProbe) MemoryUsedMB() (float64, error) {
	kv, err := FileKV(filepath.Join(p.root, "meminfo"), ":")
	if err != nil {
		return 0, err
	}

	total, okTotal := kv["MemTotal"]
	avail, okAvail := kv["MemAvailable"]
	if !okTotal || !okAvail {
		return 0, ErrNoMemory
	}

	totalKB, err := ParseUint64(strings.TrimSuffix(total, " kB"))
	if err != nil {
		return 0, err
	}
	availKB, err := ParseUint64(strings.TrimSuffix(avail, " kB"))
	if err != nil {
		return 0, err
	}
	if availKB > totalKB {
		return 0, nil
	}
	return float64(totalKB-availKB) / 1024, nil
}

// readStat parses the aggregate "cpu" line: user nice system idle iowait irq
// softirq steal. Idle time is idle + iowait.
func readStat(path string) (cpuTimes, error) {
	lines, err := FileLines(path)
	if err != nil {
		return cpuTimes{}, err
	}

	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 5 || fields[0] != "cpu" {
			continue
		}

		var vals [8]uint64
		for i := 0; i < len(vals) && i+1 < len(fields); i++ {
			v, err := ParseUint64(fields[i+1])
			if err != nil {
				return cpuTimes{}, fmt.Errorf("%s: %w", path, err)
			}
			vals[i] = v
		}

		var total uint64
		for _, v := range vals {
			total += v
		}
		idle := vals[3] + vals[4]
		return cpuTimes{
			busy:  float64(total - idle),
			total: float64(total),
			valid: true,
		}, nil
	}
	return cpuTimes{}, ErrNoCPU
}
