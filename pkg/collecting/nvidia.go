package collecting

import (
	"encoding/json"
	"errors"
	"fmt"

	"InferenceMeter/pkg/exporting"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// GPUInfo is the static description of one NVIDIA device.
type GPUInfo struct {
	Index               int    `json:"index"`
	Name                string `json:"name"`
	UUID                string `json:"uuid"`
	Brand               string `json:"brand,omitempty"`
	Architecture        string `json:"architecture,omitempty"`
	CudaCapabilityMajor int    `json:"cuda_capability_major"`
	CudaCapabilityMinor int    `json:"cuda_capability_minor"`
	MemoryTotalBytes    int64  `json:"memory_total_bytes"`
	PowerDefaultLimitMw int    `json:"power_default_limit_mw"`
	VbiosVersion        string `json:"vbios_version,omitempty"`
}

// GPUs lists NVIDIA devices through NVML.
type GPUs struct {
	devices []nvml.Device
}

// NewGPUs initialises NVML. It returns an error when the library or any
// device is missing; callers skip the collector in that case.
func NewGPUs() (*GPUs, error) {
	if ret := nvml.Init(); !errors.Is(ret, nvml.SUCCESS) {
		return nil, fmt.Errorf("failed to initialize NVML: %s", nvml.ErrorString(ret))
	}

	count, ret := nvml.DeviceGetCount()
	if !errors.Is(ret, nvml.SUCCESS) || count == 0 {
		nvml.Shutdown()
		return nil, fmt.Errorf("no NVIDIA devices found")
	}

	g := &GPUs{devices: make([]nvml.Device, 0, count)}
	for i := 0; i < count; i++ {
		if d, ret := nvml.DeviceGetHandleByIndex(i); errors.Is(ret, nvml.SUCCESS) {
			g.devices = append(g.devices, d)
		}
	}
	return g, nil
}

func (g *GPUs) Name() string { return "nvidia" }

func (g *GPUs) Close() error {
	if ret := nvml.Shutdown(); !errors.Is(ret, nvml.SUCCESS) {
		return fmt.Errorf("nvml shutdown: %s", nvml.ErrorString(ret))
	}
	return nil
}

func (g *GPUs) CollectStatic() (exporting.Record, error) {
	rec := exporting.Record{"nvidia_gpu_count": len(g.devices)}

	if v, ret := nvml.SystemGetDriverVersion(); errors.Is(ret, nvml.SUCCESS) {
		rec["nvidia_driver_version"] = v
	}
	if v, ret := nvml.SystemGetCudaDriverVersion(); errors.Is(ret, nvml.SUCCESS) {
		rec["nvidia_cuda_version"] = fmt.Sprintf("%d.%d", v/1000, (v%1000)/10)
	}

	gpus := make([]GPUInfo, 0, len(g.devices))
	for i, d := range g.devices {
		gpus = append(gpus, deviceInfo(d, i))
	}
	data, err := json.Marshal(gpus)
	if err != nil {
		return nil, fmt.Errorf("marshal gpus: %w", err)
	}
	rec["nvidia_gpus"+exporting.JSONSuffix] = string(data)
	return rec, nil
}

func capture[T any](call func() (T, nvml.Return), dst *T) {
	if val, ret := call(); errors.Is(ret, nvml.SUCCESS) {
		*dst = val
	}
}

func deviceInfo(device nvml.Device, index int) GPUInfo {
	gpu := GPUInfo{Index: index}

	capture(device.GetName, &gpu.Name)
	capture(device.GetUUID, &gpu.UUID)
	capture(device.GetVbiosVersion, &gpu.VbiosVersion)

	if brand, ret := device.GetBrand(); errors.Is(ret, nvml.SUCCESS) {
		gpu.Brand = brandToString(brand)
	}
	if arch, ret := device.GetArchitecture(); errors.Is(ret, nvml.SUCCESS) {
		gpu.Architecture = archToString(arch)
	}
	if major, minor, ret := device.GetCudaComputeCapability(); errors.Is(ret, nvml.SUCCESS) {
		gpu.CudaCapabilityMajor, gpu.CudaCapabilityMinor = major, minor
	}
	if mem, ret := device.GetMemoryInfo(); errors.Is(ret, nvml.SUCCESS) {
		gpu.MemoryTotalBytes = int64(mem.Total)
	}
	if limit, ret := device.GetPowerManagementDefaultLimit(); errors.Is(ret, nvml.SUCCESS) {
		gpu.PowerDefaultLimitMw = int(limit)
	}
	return gpu
}

func enumToString[T comparable](val T, mapping map[T]string) string {
	if str, ok := mapping[val]; ok {
		return str
	}
	return fmt.Sprintf("Unknown(%v)", val)
}

func archToString(arch nvml.DeviceArchitecture) string {
	return enumToString(arch, map[nvml.DeviceArchitecture]string{
		nvml.DEVICE_ARCH_KEPLER:  "Kepler",
		nvml.DEVICE_ARCH_MAXWELL: "Maxwell",
		nvml.DEVICE_ARCH_PASCAL:  "Pascal",
		nvml.DEVICE_ARCH_VOLTA:   "Volta",
		nvml.DEVICE_ARCH_TURING:  "Turing",
		nvml.DEVICE_ARCH_AMPERE:  "Ampere",
		nvml.DEVICE_ARCH_ADA:     "Ada",
		nvml.DEVICE_ARCH_HOPPER:  "Hopper",
	})
}

func brandToString(brand nvml.BrandType) string {
	return enumToString(brand, map[nvml.BrandType]string{
		nvml.BRAND_UNKNOWN:     "Unknown",
		nvml.BRAND_QUADRO:      "Quadro",
		nvml.BRAND_TESLA:       "Tesla",
		nvml.BRAND_GEFORCE:     "GeForce",
		nvml.BRAND_TITAN:       "Titan",
		nvml.BRAND_NVIDIA_RTX:  "NvidiaRTX",
		nvml.BRAND_NVIDIA:      "Nvidia",
		nvml.BRAND_GEFORCE_RTX: "GeForceRTX",
	})
}
