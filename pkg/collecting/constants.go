package collecting

const (
	procDir          = "/proc"
	sysCPUDir        = "/sys/devices/system/cpu"
	bytesPerKilobyte = 1024
	bytesPerMegaByte = 1048576
	unknownValue     = "unknown"
)
