package collecting

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"InferenceMeter/pkg/exporting"
	"InferenceMeter/pkg/probing"

	"github.com/shirou/gopsutil/v3/cpu"
	"golang.org/x/sys/unix"
)

// CPU reports processor model, cache layout, kernel and clock sync state.
type CPU struct {
	procRoot string
	sysRoot  string
}

// NewCPU creates a CPU collector reading the given proc and sys roots.
func NewCPU(procRoot, sysRoot string) *CPU {
	if procRoot == "" {
		procRoot = procDir
	}
	if sysRoot == "" {
		sysRoot = sysCPUDir
	}
	return &CPU{procRoot: procRoot, sysRoot: sysRoot}
}

func (c *CPU) Name() string { return "cpu" }
func (c *CPU) Close() error { return nil }

func (c *CPU) CollectStatic() (exporting.Record, error) {
	rec := exporting.Record{
		"num_processors": runtime.NumCPU(),
		"cpu_type":       c.cpuType(),
		"cpu_cache":      cpuCache(c.sysRoot),
		"kernel_info":    kernelInfo(),
	}

	synced, offset, maxErr := ntpInfo()
	rec["time_synced"] = synced
	rec["time_offset_seconds"] = offset
	rec["time_max_error_seconds"] = maxErr
	return rec, nil
}

// cpuType prefers gopsutil and falls back to cpuinfo under procRoot.
func (c *CPU) cpuType() string {
	if c.procRoot == procDir {
		if infos, err := cpu.Info(); err == nil && len(infos) > 0 && infos[0].ModelName != "" {
			return infos[0].ModelName
		}
	}

	lines, err := probing.FileLines(filepath.Join(c.procRoot, "cpuinfo"))
	if err != nil {
		return unknownValue
	}
	for _, line := range lines {
		if strings.HasPrefix(line, "model name") || strings.HasPrefix(line, "Model") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				return strings.TrimSpace(parts[1])
			}
		}
	}
	return unknownValue
}

// cpuCache summarises the unique caches under root, e.g. "L1d:32K L2:1M".
func cpuCache(root string) string {
	result := make(map[string]int64)
	seen := make(map[string]bool)

	dirs, _ := filepath.Glob(filepath.Join(root, "cpu*", "cache", "index*"))
	for _, dir := range dirs {
		level := readTrimmed(filepath.Join(dir, "level"))
		cType := readTrimmed(filepath.Join(dir, "type"))
		sizeStr := readTrimmed(filepath.Join(dir, "size"))
		shared := readTrimmed(filepath.Join(dir, "shared_cpu_map"))

		cacheID := fmt.Sprintf("L%s-%s-%s", level, cType, shared)
		if seen[cacheID] || level == "" || sizeStr == "" {
			continue
		}
		seen[cacheID] = true

		var size int64
		var unit rune
		_, _ = fmt.Sscanf(sizeStr, "%d%c", &size, &unit)
		switch unit {
		case 'K':
			size *= bytesPerKilobyte
		case 'M':
			size *= bytesPerMegaByte
		}

		suffix := ""
		if level == "1" {
			switch cType {
			case "Data":
				suffix = "d"
			case "Instruction":
				suffix = "i"
			}
		}
		result["L"+level+suffix] += size
	}

	var parts []string
	for _, label := range []string{"L1d", "L1i", "L2", "L3", "L4"} {
		size, ok := result[label]
		if !ok || size <= 0 {
			continue
		}
		if size >= bytesPerMegaByte {
			parts = append(parts, fmt.Sprintf("%s:%dM", label, size/bytesPerMegaByte))
		} else {
			parts = append(parts, fmt.Sprintf("%s:%dK", label, size/bytesPerKilobyte))
		}
	}
	return strings.Join(parts, " ")
}

func readTrimmed(path string) string {
	v, err := probing.File(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}

func kernelInfo() string {
	var uname unix.Utsname
	if err := unix.Uname(&uname); err != nil {
		return ""
	}
	return fmt.Sprintf("%s %s %s %s %s",
		unix.ByteSliceToString(uname.Sysname[:]),
		unix.ByteSliceToString(uname.Nodename[:]),
		unix.ByteSliceToString(uname.Release[:]),
		unix.ByteSliceToString(uname.Version[:]),
		unix.ByteSliceToString(uname.Machine[:]))
}

func ntpInfo() (bool, float64, float64) {
	tx := &unix.Timex{}
	state, err := unix.Adjtimex(tx)
	if err != nil {
		return false, 0, 0
	}
	return state != unix.TIME_ERROR,
		float64(tx.Offset) / 1_000_000.0,
		float64(tx.Maxerror) / 1_000_000.0
}
