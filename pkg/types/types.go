package types

import "time"

// ContainerConfig describes a container the orchestrator wants to run
type ContainerConfig struct {
	Name      string
	Image     string
	Command   []string
	Args      []string
	Env       []string
	Labels    map[string]string
	Resources ResourceRequests
}

// ResourceRequests holds the resource requests for a container.
// Zero values mean "no limit requested".
type ResourceRequests struct {
	CPUCores float64 // Cores (e.g., 0.5 = 50% of one core)
	MemoryMB int64   // Megabytes
}

// CreateOptions carries placement information for container creation
type CreateOptions struct {
	NodeID string
}

// ContainerState is the engine's registry entry for a container.
// It is a best-effort mirror of the low-level runtime's view: the
// runtime remains the source of truth while it knows the container.
type ContainerState struct {
	ID         string
	NodeID     string
	BundlePath string
	Status     string
	PID        int
	CreatedAt  time.Time
}

// Well-known status strings mirroring the OCI runtime vocabulary
const (
	StatusCreating = "creating"
	StatusCreated  = "created"
	StatusRunning  = "running"
	StatusStopped  = "stopped"
	StatusUnknown  = "unknown"
)

// ContainerStatus is a per-container status record returned by status
// and listing operations. A failed status query degrades to an entry
// with State "unknown" and Error set, rather than failing the caller.
type ContainerStatus struct {
	ID       string
	State    string
	PID      int
	ExitCode int
	Error    string
}

// RuntimeState is the state document reported by the OCI runtime's
// `state` subcommand.
type RuntimeState struct {
	OCIVersion  string            `json:"ociVersion"`
	ID          string            `json:"id"`
	Status      string            `json:"status"`
	PID         int               `json:"pid,omitempty"`
	Bundle      string            `json:"bundle"`
	Annotations map[string]string `json:"annotations,omitempty"`
	Created     string            `json:"created,omitempty"`
}

// LogEntry is a single parsed line from a container's log file
type LogEntry struct {
	Timestamp string `json:"timestamp"` // RFC3339
	Stream    string `json:"stream"`    // "stdout" or "stderr"
	Message   string `json:"message"`
}

// Log stream tags
const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"
)

// LogOptions configures a log query.
//
// Since and Until are RFC3339 timestamps and the bounds are inclusive:
// an entry with Timestamp equal to either bound is returned. Entries
// whose timestamps do not parse are excluded from bounded queries.
type LogOptions struct {
	Tail       int // Last N lines; 0 returns everything
	Timestamps bool
	Since      string
	Until      string
	Follow     bool
}

// ContainerStats reports point-in-time resource usage for a container.
// Values are recomputed on every query and degrade to zero when the
// kernel files are missing or unreadable.
type ContainerStats struct {
	ContainerID      string
	CPUUsageNs       uint64
	MemoryUsageBytes uint64
}
