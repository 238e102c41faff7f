package metrics

import (
	"InferenceMeter/pkg/sampling"
)

// StatsSource provides per-series statistics, typically a stopped Sampler.
type StatsSource interface {
	Stats(k sampling.Kind) sampling.Stats
}

// ResourceUsage is the resource_usage section of a report.
type ResourceUsage struct {
	AvgCPUPercent  float64 `json:"avg_cpu_usage_percent"`
	PeakCPUPercent float64 `json:"peak_cpu_usage_percent"`
	CPUStdDev      float64 `json:"cpu_std_dev"`
	AvgRAMMB       float64 `json:"avg_ram_usage_mb"`
	PeakRAMMB      float64 `json:"peak_ram_usage_mb"`
	AvgPowerW      float64 `json:"avg_power_w"`
	PeakPowerW     float64 `json:"peak_power_w"`
	MinPowerW      float64 `json:"min_power_w"`
	MemStdDev      float64 `json:"mem_std_dev"`
	PowerStdDev    float64 `json:"power_std_dev"`
	SampleCount    int     `json:"sample_count"`
}

// NewResourceUsage reads the aggregates of every series from src.
func NewResourceUsage(src StatsSource) ResourceUsage {
	cpu := src.Stats(sampling.CPU)
	mem := src.Stats(sampling.Memory)
	power := src.Stats(sampling.Power)

	return ResourceUsage{
		AvgCPUPercent:  cpu.Avg,
		PeakCPUPercent: cpu.Peak,
		CPUStdDev:      cpu.StdDev,
		AvgRAMMB:       mem.Avg,
		PeakRAMMB:      mem.Peak,
		AvgPowerW:      power.Avg,
		PeakPowerW:     power.Peak,
		MinPowerW:      power.Min,
		MemStdDev:      mem.StdDev,
		PowerStdDev:    power.StdDev,
		SampleCount:    cpu.Count,
	}
}
