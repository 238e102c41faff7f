package probing

import (
	"fmt"
)

// BytesPerMB converts byte counts to megabytes.
const BytesPerMB = 1024 * 1024

// Probe reads host utilisation. Each instance keeps its own CPU baseline, so
// CPUPercent reports the average utilisation since the previous call on the
// same instance. The first call establishes the baseline and returns 0.
type Probe interface {
	CPUPercent() (float64, error)
	MemoryUsedMB() (float64, error)
}

// New builds a probe by name: "gopsutil" or "procfs". root is the procfs
// mount point and is only used by the procfs probe.
func New(name, root string) (Probe, error) {
	switch name {
	case "gopsutil", "":
		return NewHostProbe(), nil
	case "procfs":
		return NewProcProbe(root), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProbe, name)
	}
}

// cpuTimes is one reading of cumulative busy and total time.
type cpuTimes struct {
	busy  float64
	total float64
	valid bool
}

// percentSince returns utilisation between prev and cur in [0, 100].
func percentSince(prev, cur cpuTimes) float64 {
	if !prev.valid {
		return 0
	}
	dTotal := cur.total - prev.total
	dBusy := cur.busy - prev.busy
	if dTotal <= 0 || dBusy < 0 {
		return 0
	}
	pct := dBusy / dTotal * 100
	if pct > 100 {
		return 100
	}
	return pct
}
