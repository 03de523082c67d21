package bundle

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/coney-io/coney/pkg/types"
)

// CgroupParent is the cgroup path prefix applied to every bundle so
// the stats collector can locate a container's cgroup
// deterministically under <cgroup_root>/<id>.
const CgroupParent = "/coney"

// cfsPeriod is the CFS scheduler period, in microseconds, used to
// translate a CPU core request into a quota
const cfsPeriod = 100000

// ErrNoContainerConfig is returned by Build when no container
// configuration was supplied
var ErrNoContainerConfig = errors.New("bundle: no container config")

// Builder assembles an OCI bundle: a config.json runtime spec plus a
// rootfs directory. When the rootfs has already been linked in by the
// caller, SkipRootfsSetup leaves it alone.
type Builder struct {
	bundlePath  string
	containerID string
	cfg         *types.ContainerConfig
	cpuCores    float64
	memoryMB    int64
	skipRootfs  bool
}

// NewBuilder creates a builder for the given bundle directory
func NewBuilder(bundlePath string) *Builder {
	return &Builder{bundlePath: bundlePath}
}

// WithContainerID sets the container identifier used for the cgroup
// path and hostname
func (b *Builder) WithContainerID(id string) *Builder {
	b.containerID = id
	return b
}

// WithContainerConfig sets the container configuration
func (b *Builder) WithContainerConfig(cfg *types.ContainerConfig) *Builder {
	b.cfg = cfg
	return b
}

// WithCPULimit applies a CPU limit in cores
func (b *Builder) WithCPULimit(cores float64) *Builder {
	b.cpuCores = cores
	return b
}

// WithMemoryLimit applies a memory limit in megabytes
func (b *Builder) WithMemoryLimit(mb int64) *Builder {
	b.memoryMB = mb
	return b
}

// SkipRootfsSetup marks the rootfs as already prepared
func (b *Builder) SkipRootfsSetup() *Builder {
	b.skipRootfs = true
	return b
}

// Build writes config.json into the bundle directory, creating the
// rootfs directory first unless it was skipped
func (b *Builder) Build() error {
	if b.cfg == nil {
		return ErrNoContainerConfig
	}

	if !b.skipRootfs {
		if err := os.MkdirAll(filepath.Join(b.bundlePath, "rootfs"), 0755); err != nil {
			return fmt.Errorf("failed to create rootfs dir: %w", err)
		}
	}

	spec := b.generateSpec()

	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal spec: %w", err)
	}

	configPath := filepath.Join(b.bundlePath, "config.json")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config.json: %w", err)
	}

	return nil
}

func (b *Builder) generateSpec() *specs.Spec {
	args := append(append([]string{}, b.cfg.Command...), b.cfg.Args...)
	if len(args) == 0 {
		args = []string{"/bin/sh"}
	}

	hostname := b.cfg.Name
	if b.containerID != "" {
		hostname = b.containerID
	}

	spec := &specs.Spec{
		Version: specs.Version,
		Process: &specs.Process{
			Terminal:        false,
			User:            specs.User{UID: 0, GID: 0},
			Args:            args,
			Env:             append([]string{"PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"}, b.cfg.Env...),
			Cwd:             "/",
			NoNewPrivileges: true,
		},
		Root: &specs.Root{
			Path: "rootfs",
		},
		Hostname: hostname,
		Mounts:   defaultMounts(),
		Linux: &specs.Linux{
			CgroupsPath: filepath.Join(CgroupParent, b.containerID),
			Namespaces: []specs.LinuxNamespace{
				{Type: specs.PIDNamespace},
				{Type: specs.IPCNamespace},
				{Type: specs.UTSNamespace},
				{Type: specs.MountNamespace},
			},
			Resources: b.resources(),
		},
		Annotations: b.cfg.Labels,
	}

	return spec
}

// resources translates the strictly-positive resource requests into
// OCI cgroup settings; nil when nothing was requested
func (b *Builder) resources() *specs.LinuxResources {
	if b.cpuCores <= 0 && b.memoryMB <= 0 {
		return nil
	}

	res := &specs.LinuxResources{}

	if b.cpuCores > 0 {
		quota := int64(b.cpuCores * cfsPeriod)
		period := uint64(cfsPeriod)
		res.CPU = &specs.LinuxCPU{
			Quota:  &quota,
			Period: &period,
		}
	}

	if b.memoryMB > 0 {
		limit := b.memoryMB * 1024 * 1024
		res.Memory = &specs.LinuxMemory{
			Limit: &limit,
		}
	}

	return res
}

func defaultMounts() []specs.Mount {
	return []specs.Mount{
		{
			Destination: "/proc",
			Type:        "proc",
			Source:      "proc",
		},
		{
			Destination: "/dev",
			Type:        "tmpfs",
			Source:      "tmpfs",
			Options:     []string{"nosuid", "strictatime", "mode=755", "size=65536k"},
		},
		{
			Destination: "/dev/pts",
			Type:        "devpts",
			Source:      "devpts",
			Options:     []string{"nosuid", "noexec", "newinstance", "ptmxmode=0666", "mode=0620"},
		},
		{
			Destination: "/sys",
			Type:        "sysfs",
			Source:      "sysfs",
			Options:     []string{"nosuid", "noexec", "nodev", "ro"},
		},
	}
}
