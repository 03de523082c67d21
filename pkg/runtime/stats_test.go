package runtime

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/coney-io/coney/pkg/config"
)

func newStatsRuntime(t *testing.T) (*CLIRuntime, string) {
	t.Helper()
	cgroupRoot := t.TempDir()
	return &CLIRuntime{cfg: &config.Config{CgroupRoot: cgroupRoot}}, cgroupRoot
}

func writeCgroupFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create cgroup dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestGetStats(t *testing.T) {
	rt, cgroupRoot := newStatsRuntime(t)
	dir := filepath.Join(cgroupRoot, "web-1")

	writeCgroupFile(t, dir, "cpu.stat", "usage_usec 12345\nuser_usec 8000\nsystem_usec 4345\n")
	writeCgroupFile(t, dir, "memory.current", "2048\n")

	stats := rt.GetStats("web-1")
	if stats.ContainerID != "web-1" {
		t.Errorf("expected container id web-1, got %s", stats.ContainerID)
	}
	if stats.CPUUsageNs != 12345000 {
		t.Errorf("expected 12345000 ns, got %d", stats.CPUUsageNs)
	}
	if stats.MemoryUsageBytes != 2048 {
		t.Errorf("expected 2048 bytes, got %d", stats.MemoryUsageBytes)
	}
}

func TestGetStatsMissingCgroup(t *testing.T) {
	rt, _ := newStatsRuntime(t)

	stats := rt.GetStats("ghost")
	if stats.CPUUsageNs != 0 || stats.MemoryUsageBytes != 0 {
		t.Errorf("expected zero stats for missing cgroup, got %+v", stats)
	}
}

func TestGetStatsMalformedFiles(t *testing.T) {
	rt, cgroupRoot := newStatsRuntime(t)
	dir := filepath.Join(cgroupRoot, "web-1")

	writeCgroupFile(t, dir, "cpu.stat", "no usable fields here\n")
	writeCgroupFile(t, dir, "memory.current", "not-a-number\n")

	stats := rt.GetStats("web-1")
	if stats.CPUUsageNs != 0 || stats.MemoryUsageBytes != 0 {
		t.Errorf("expected zero stats for malformed files, got %+v", stats)
	}
}

func TestParseCPUUsage(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    uint64
	}{
		{"typical", "usage_usec 12345\nuser_usec 8000\nsystem_usec 4345\n", 12345000},
		{"usage not first", "user_usec 8000\nusage_usec 500\n", 500000},
		{"missing field", "user_usec 8000\nsystem_usec 4345\n", 0},
		{"malformed value", "usage_usec abc\n", 0},
		{"truncated line", "usage_usec\n", 0},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseCPUUsage(tt.content); got != tt.want {
				t.Errorf("parseCPUUsage() = %d, want %d", got, tt.want)
			}
		})
	}
}
