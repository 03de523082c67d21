package runtime

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/coney-io/coney/pkg/types"
)

// GetStats reads the container's cgroup v2 pseudo-files and reports
// CPU time and memory usage. Stats are best-effort telemetry: a
// missing file or a parse failure degrades the value to zero instead
// of failing the query. Values are recomputed fresh on every call.
func (r *CLIRuntime) GetStats(containerID string) *types.ContainerStats {
	cgroupDir := filepath.Join(r.cfg.CgroupRoot, containerID)

	var cpuUsage uint64
	if data, err := os.ReadFile(filepath.Join(cgroupDir, "cpu.stat")); err == nil {
		cpuUsage = parseCPUUsage(string(data))
	}

	var memUsage uint64
	if data, err := os.ReadFile(filepath.Join(cgroupDir, "memory.current")); err == nil {
		if v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64); err == nil {
			memUsage = v
		}
	}

	return &types.ContainerStats{
		ContainerID:      containerID,
		CPUUsageNs:       cpuUsage,
		MemoryUsageBytes: memUsage,
	}
}

// parseCPUUsage extracts the usage_usec field from a cgroup v2
// cpu.stat document and converts microseconds to nanoseconds
func parseCPUUsage(content string) uint64 {
	for _, line := range strings.Split(content, "\n") {
		if !strings.HasPrefix(line, "usage_usec") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0
		}
		usec, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0
		}
		return usec * 1000
	}
	return 0
}
