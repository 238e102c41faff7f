package graphing

import (
	"bytes"
	"encoding/json"
	"fmt"

	"InferenceMeter/pkg/exporting"
)

// StaticInfoData is the host description shown above the charts.
type StaticInfoData struct {
	UUID          string
	Hostname      string
	Platform      string
	BootTime      int64
	NumProcessors int
	CPUType       string
	CPUCache      string
	KernelInfo    string
	TimeSynced    bool
	TimeOffset    float64
	TimeMaxError  float64

	MemoryTotal int64
	SwapTotal   int64

	GPUCount      int
	DriverVersion string
	CUDAVersion   string
	GPUs          []GPUData
}

// GPUData describes one NVIDIA device.
type GPUData struct {
	Index               int
	Name                string
	UUID                string
	Brand               string
	Architecture        string
	CUDACapabilityMajor int
	CUDACapabilityMinor int
	MemoryTotalBytes    int64
	PowerDefaultLimitMw int
	VBIOSVersion        string
}

func (d *StaticInfoData) sections() []infoSection {
	system := infoSection{Title: "System"}
	system.add("Hostname", d.Hostname)
	system.add("Platform", d.Platform)
	system.add("Boot Time", unixTime(d.BootTime))
	system.add("Processors", d.NumProcessors)
	system.add("CPU", d.CPUType)
	system.add("CPU Cache", d.CPUCache)
	system.add("Kernel", d.KernelInfo)
	system.add("Time Synced", d.TimeSynced)
	system.add("Time Offset", seconds(d.TimeOffset))
	system.add("Time Max Error", seconds(d.TimeMaxError))

	memory := infoSection{Title: "Memory"}
	memory.add("Total", humanBytes(d.MemoryTotal))
	memory.add("Swap", humanBytes(d.SwapTotal))

	out := []infoSection{system, memory}
	if d.GPUCount == 0 {
		return out
	}

	nvidia := infoSection{Title: "NVIDIA"}
	nvidia.add("GPUs", d.GPUCount)
	nvidia.add("Driver", d.DriverVersion)
	nvidia.add("CUDA", d.CUDAVersion)
	out = append(out, nvidia)

	for _, g := range d.GPUs {
		s := infoSection{Title: fmt.Sprintf("GPU %d: %s", g.Index, g.Name)}
		s.add("UUID", g.UUID)
		s.add("Brand", g.Brand)
		s.add("Architecture", g.Architecture)
		if g.CUDACapabilityMajor > 0 {
			s.add("CUDA Capability", fmt.Sprintf("%d.%d", g.CUDACapabilityMajor, g.CUDACapabilityMinor))
		}
		s.add("Memory", humanBytes(g.MemoryTotalBytes))
		s.add("Default Power Limit", milliwatts(g.PowerDefaultLimitMw))
		s.add("VBIOS", g.VBIOSVersion)
		out = append(out, s)
	}
	return out
}

// renderStaticInfoHTML renders the host header placed after <body>.
func renderStaticInfoHTML(data *StaticInfoData) (string, error) {
	var buf bytes.Buffer
	err := headerTemplate.Execute(&buf, struct {
		ID       string
		Sections []infoSection
	}{data.UUID, data.sections()})
	if err != nil {
		return "", fmt.Errorf("failed to render host header: %w", err)
	}
	return buf.String(), nil
}

// ParseStaticInfo reads the record written by the static collectors. It
// returns nil for an empty record.
func ParseStaticInfo(info exporting.Record) *StaticInfoData {
	if len(info) == 0 {
		return nil
	}
	r := recordView(info)

	data := &StaticInfoData{
		UUID:          r.str("uuid"),
		Hostname:      r.str("hostname"),
		Platform:      r.str("platform"),
		BootTime:      r.integer("boot_time"),
		NumProcessors: int(r.integer("num_processors")),
		CPUType:       r.str("cpu_type"),
		CPUCache:      r.str("cpu_cache"),
		KernelInfo:    r.str("kernel_info"),
		TimeSynced:    r.flag("time_synced"),
		TimeOffset:    r.number("time_offset_seconds"),
		TimeMaxError:  r.number("time_max_error_seconds"),
		MemoryTotal:   r.integer("memory_total_bytes"),
		SwapTotal:     r.integer("swap_total_bytes"),
		GPUCount:      int(r.integer("nvidia_gpu_count")),
		DriverVersion: r.str("nvidia_driver_version"),
		CUDAVersion:   r.str("nvidia_cuda_version"),
	}

	var gpus []map[string]interface{}
	if raw := r.str("nvidia_gpus" + exporting.JSONSuffix); raw != "" && json.Unmarshal([]byte(raw), &gpus) == nil {
		for _, m := range gpus {
			g := recordView(m)
			data.GPUs = append(data.GPUs, GPUData{
				Index:               int(g.integer("index")),
				Name:                g.str("name"),
				UUID:                g.str("uuid"),
				Brand:               g.str("brand"),
				Architecture:        g.str("architecture"),
				CUDACapabilityMajor: int(g.integer("cuda_capability_major")),
				CUDACapabilityMinor: int(g.integer("cuda_capability_minor")),
				MemoryTotalBytes:    g.integer("memory_total_bytes"),
				PowerDefaultLimitMw: int(g.integer("power_default_limit_mw")),
				VBIOSVersion:        g.str("vbios_version"),
			})
		}
	}
	return data
}

// recordView reads loosely typed values from decoded JSON or log rows.
type recordView map[string]interface{}

func (r recordView) str(key string) string {
	s, _ := r[key].(string)
	return s
}

func (r recordView) number(key string) float64 {
	return exporting.ToFloat64(r[key])
}

func (r recordView) integer(key string) int64 {
	return int64(r.number(key))
}

func (r recordView) flag(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}
