package runtime

import (
	"context"

	"github.com/coney-io/coney/pkg/types"
)

// Runtime is the container runtime capability the orchestrator's
// control plane programs against. Backends are interchangeable: the
// CLI-driven OCI runtime (CLIRuntime), the containerd client
// (ContainerdRuntime), and the in-memory MockRuntime all implement it.
type Runtime interface {
	// InitNode idempotently prepares node-local state (bundle
	// directory, node index entry) before containers are placed on
	// the node. Safe to call repeatedly.
	InitNode(ctx context.Context, nodeID string) error

	// CreateContainer materializes and starts a container, returning
	// its generated identifier. On any failure no registry entry is
	// created; partial on-disk artifacts are cleaned up by
	// RemoveContainer, not by this path.
	CreateContainer(ctx context.Context, config *types.ContainerConfig, opts *types.CreateOptions) (string, error)

	// StopContainer performs a graceful-then-forceful shutdown with a
	// bounded wait. It never blocks indefinitely and is a no-op for
	// containers that are already stopped or gone.
	StopContainer(ctx context.Context, containerID string) error

	// RemoveContainer force-deletes the container from the backend
	// and erases its bundle directory and registry bookkeeping.
	// Removing an already-removed container is not an error.
	RemoveContainer(ctx context.Context, containerID string) error

	// GetContainerStatus reports the container's live status,
	// falling back to cached state when the backend has forgotten
	// the container.
	GetContainerStatus(ctx context.Context, containerID string) (*types.ContainerStatus, error)

	// ListContainers reports the status of every container on the
	// node. One container's query failure degrades that entry rather
	// than failing the listing.
	ListContainers(ctx context.Context, nodeID string) ([]*types.ContainerStatus, error)
}

// ImageResolver resolves an image reference to a local root filesystem
// path. Implemented by pkg/image.
type ImageResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

var (
	_ Runtime = (*CLIRuntime)(nil)
	_ Runtime = (*MockRuntime)(nil)
	_ Runtime = (*ContainerdRuntime)(nil)
)
