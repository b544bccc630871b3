package util

import (
	"bufio"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// SystemInfo contains information about the host system.
type SystemInfo struct {
	Hostname string
	NumCPU   int
	OS       string
	Arch     string
}

// GetSystemInfo collects system information.
func GetSystemInfo() SystemInfo {
	hostname, _ := os.Hostname()
	return SystemInfo{
		Hostname: hostname,
		NumCPU:   runtime.NumCPU(),
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
	}
}

// AvailableMemoryBytes returns MemAvailable from /proc/meminfo.
// Returns 0 if memory cannot be determined.
func AvailableMemoryBytes() uint64 {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == "MemAvailable:" {
			kb, err := strconv.ParseUint(fields[1], 10, 64)
			if err == nil {
				return kb * 1024
			}
		}
	}
	return 0
}

// MaxWorkersForMemory returns how many concurrent encodes of perWorkerBytes
// fit into memFraction of available memory. Returns at least 1.
func MaxWorkersForMemory(perWorkerBytes uint64, memFraction float64) int {
	available := AvailableMemoryBytes()
	if available == 0 || perWorkerBytes == 0 {
		return 1
	}

	usable := uint64(float64(available) * memFraction)
	if usable < perWorkerBytes {
		return 1
	}
	return max(int(usable/perWorkerBytes), 1)
}

// LogicalCores returns the number of logical CPU cores.
func LogicalCores() int {
	return runtime.NumCPU()
}

// PhysicalCores returns the number of physical CPU cores, falling back to
// half the logical count when topology cannot be read.
func PhysicalCores() int {
	switch runtime.GOOS {
	case "linux":
		if cores := physicalCoresLinux(); cores > 0 {
			return cores
		}
	case "darwin":
		if cores := physicalCoresDarwin(); cores > 0 {
			return cores
		}
	}
	if logical := LogicalCores(); logical > 1 {
		return logical / 2
	}
	return 1
}

// physicalCoresLinux counts unique package:core pairs in sysfs topology.
func physicalCoresLinux() int {
	cpuDir := "/sys/devices/system/cpu"
	entries, err := os.ReadDir(cpuDir)
	if err != nil {
		return 0
	}

	coreIDs := make(map[string]struct{})
	for _, entry := range entries {
		name := entry.Name()
		suffix, ok := strings.CutPrefix(name, "cpu")
		if !ok || suffix == "" {
			continue
		}
		if _, err := strconv.Atoi(suffix); err != nil {
			continue
		}

		core, err := os.ReadFile(filepath.Join(cpuDir, name, "topology", "core_id"))
		if err != nil {
			continue
		}
		key := strings.TrimSpace(string(core))
		if pkg, err := os.ReadFile(filepath.Join(cpuDir, name, "topology", "physical_package_id")); err == nil {
			key = strings.TrimSpace(string(pkg)) + ":" + key
		}
		coreIDs[key] = struct{}{}
	}
	return len(coreIDs)
}
