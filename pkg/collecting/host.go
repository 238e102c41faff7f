package collecting

import (
	"fmt"
	"runtime"

	"InferenceMeter/pkg/exporting"

	"github.com/shirou/gopsutil/v3/host"
)

// Host reports operating system identity and boot time.
type Host struct {
	uuid string
}

// NewHost creates a host collector. id identifies this meter instance.
func NewHost(id string) *Host { return &Host{uuid: id} }
func (c *Host) Name() string { return "host" }
func (c *Host) Close() error { return nil }

func (c *Host) CollectStatic() (exporting.Record, error) {
	info, err := host.Info()
	if err != nil {
		return nil, fmt.Errorf("host info: %w", err)
	}
	rec := exporting.Record{
		"hostname":       info.Hostname,
		"os":             info.OS,
		"platform":       distro(info),
		"kernel_arch":    info.KernelArch,
		"boot_time":      info.BootTime,
		"virtualization": info.VirtualizationSystem,
		"host_id":        info.HostID,
		"go_runtime":     runtime.Version(),
	}
	if c.uuid != "" {
		rec["uuid"] = c.uuid
	}
	return rec, nil
}

func distro(info *host.InfoStat) string {
	if info.Platform == "" {
		return runtime.GOOS
	}
	if info.PlatformVersion == "" {
		return info.Platform
	}
	return info.Platform + " " + info.PlatformVersion
}
