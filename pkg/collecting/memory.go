package collecting

import (
	"fmt"

	"InferenceMeter/pkg/exporting"

	"github.com/shirou/gopsutil/v3/mem"
)

// Memory reports installed RAM and swap.
type Memory struct{}

func NewMemory() *Memory       { return &Memory{} }
func (c *Memory) Name() string { return "memory" }
func (c *Memory) Close() error { return nil }

func (c *Memory) CollectStatic() (exporting.Record, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("virtual memory: %w", err)
	}
	rec := exporting.Record{
		"memory_total_bytes": vm.Total,
		"memory_total_mb":    float64(vm.Total) / bytesPerMegaByte,
	}
	if swap, err := mem.SwapMemory(); err == nil {
		rec["swap_total_bytes"] = swap.Total
	}
	return rec, nil
}
