package runtime

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/containerd/containerd"
	"github.com/containerd/containerd/cio"
	"github.com/containerd/containerd/namespaces"
	"github.com/containerd/containerd/oci"
	"github.com/google/uuid"

	"github.com/coney-io/coney/pkg/types"
)

const (
	// DefaultNamespace is the containerd namespace for Coney
	DefaultNamespace = "coney"

	// DefaultSocketPath is the default containerd socket
	DefaultSocketPath = "/run/containerd/containerd.sock"

	// nodeLabel records which node a container belongs to
	nodeLabel = "io.coney.node"

	// cfsPeriod is the CFS scheduler period used when translating a
	// CPU core request into a quota
	cfsPeriod = 100000
)

// ContainerdRuntime is the native-library Runtime backend: instead of
// shelling out to an OCI runtime binary it drives containerd over its
// client API. Registry bookkeeping lives in containerd itself; node
// membership is tracked with a container label.
type ContainerdRuntime struct {
	client      *containerd.Client
	namespace   string
	stopTimeout time.Duration
}

// NewContainerdRuntime connects to containerd
func NewContainerdRuntime(socketPath string, stopTimeout time.Duration) (*ContainerdRuntime, error) {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}

	client, err := containerd.New(socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to containerd: %w", err)
	}

	return &ContainerdRuntime{
		client:      client,
		namespace:   DefaultNamespace,
		stopTimeout: stopTimeout,
	}, nil
}

// Close closes the containerd client connection
func (r *ContainerdRuntime) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// InitNode is a no-op for the containerd backend: the namespace is
// created lazily and node membership is label-based
func (r *ContainerdRuntime) InitNode(ctx context.Context, nodeID string) error {
	return nil
}

// CreateContainer pulls the image, creates a container with the node
// label and resource limits, and starts its task
func (r *ContainerdRuntime) CreateContainer(ctx context.Context, cfg *types.ContainerConfig, opts *types.CreateOptions) (string, error) {
	ctx = namespaces.WithNamespace(ctx, r.namespace)

	containerID := fmt.Sprintf("%s-%s", cfg.Name, uuid.New().String())

	image, err := r.client.Pull(ctx, cfg.Image, containerd.WithPullUnpack)
	if err != nil {
		return "", fmt.Errorf("failed to pull image %s: %w", cfg.Image, err)
	}

	specOpts := []oci.SpecOpts{
		oci.WithImageConfig(image),
		oci.WithEnv(cfg.Env),
	}
	if len(cfg.Command) > 0 {
		specOpts = append(specOpts, oci.WithProcessArgs(append(cfg.Command, cfg.Args...)...))
	}
	if cfg.Resources.CPUCores > 0 {
		quota := int64(cfg.Resources.CPUCores * cfsPeriod)
		specOpts = append(specOpts, oci.WithCPUCFS(quota, cfsPeriod))
	}
	if cfg.Resources.MemoryMB > 0 {
		specOpts = append(specOpts, oci.WithMemoryLimit(uint64(cfg.Resources.MemoryMB)*1024*1024))
	}

	container, err := r.client.NewContainer(
		ctx,
		containerID,
		containerd.WithImage(image),
		containerd.WithNewSnapshot(containerID+"-snapshot", image),
		containerd.WithNewSpec(specOpts...),
		containerd.WithContainerLabels(map[string]string{nodeLabel: opts.NodeID}),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}

	task, err := container.NewTask(ctx, cio.NullIO)
	if err != nil {
		return "", fmt.Errorf("failed to create task: %w", err)
	}

	if err := task.Start(ctx); err != nil {
		return "", fmt.Errorf("failed to start task: %w", err)
	}

	return containerID, nil
}

// StopContainer sends SIGTERM, waits up to the stop timeout, then
// escalates to SIGKILL. Containers without a running task are already
// stopped and the call is a no-op.
func (r *ContainerdRuntime) StopContainer(ctx context.Context, containerID string) error {
	ctx = namespaces.WithNamespace(ctx, r.namespace)

	container, err := r.client.LoadContainer(ctx, containerID)
	if err != nil {
		// Container gone: already stopped
		return nil
	}

	task, err := container.Task(ctx, nil)
	if err != nil {
		// No task: not running
		return nil
	}

	stopCtx, cancel := context.WithTimeout(ctx, r.stopTimeout)
	defer cancel()

	if err := task.Kill(stopCtx, syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal task: %w", err)
	}

	statusC, err := task.Wait(stopCtx)
	if err != nil {
		return fmt.Errorf("failed to wait for task: %w", err)
	}

	select {
	case <-statusC:
		// Task exited
	case <-stopCtx.Done():
		// Deadline elapsed: force kill
		if err := task.Kill(ctx, syscall.SIGKILL); err != nil {
			return fmt.Errorf("failed to force kill task: %w", err)
		}
	}

	if _, err := task.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// RemoveContainer stops the container if needed and deletes it along
// with its snapshot. A missing container is not an error.
func (r *ContainerdRuntime) RemoveContainer(ctx context.Context, containerID string) error {
	nsCtx := namespaces.WithNamespace(ctx, r.namespace)

	container, err := r.client.LoadContainer(nsCtx, containerID)
	if err != nil {
		return nil
	}

	if err := r.StopContainer(ctx, containerID); err != nil {
		// Continue with deletion regardless
		_ = err
	}

	if err := container.Delete(nsCtx, containerd.WithSnapshotCleanup); err != nil {
		return fmt.Errorf("failed to delete container: %w", err)
	}

	return nil
}

// GetContainerStatus reports the container's task status
func (r *ContainerdRuntime) GetContainerStatus(ctx context.Context, containerID string) (*types.ContainerStatus, error) {
	ctx = namespaces.WithNamespace(ctx, r.namespace)

	container, err := r.client.LoadContainer(ctx, containerID)
	if err != nil {
		return nil, &NotFoundError{ID: containerID}
	}

	task, err := container.Task(ctx, nil)
	if err != nil {
		// Created but never started, or already reaped
		return &types.ContainerStatus{ID: containerID, State: types.StatusCreated}, nil
	}

	status, err := task.Status(ctx)
	if err != nil {
		return &types.ContainerStatus{
			ID:    containerID,
			State: types.StatusUnknown,
			Error: err.Error(),
		}, nil
	}

	return &types.ContainerStatus{
		ID:       containerID,
		State:    mapContainerdStatus(status.Status),
		ExitCode: int(status.ExitStatus),
		PID:      int(task.Pid()),
	}, nil
}

// ListContainers lists the node's containers by label, degrading
// entries whose status query fails
func (r *ContainerdRuntime) ListContainers(ctx context.Context, nodeID string) ([]*types.ContainerStatus, error) {
	nsCtx := namespaces.WithNamespace(ctx, r.namespace)

	filter := fmt.Sprintf(`labels.%q==%s`, nodeLabel, nodeID)
	containers, err := r.client.Containers(nsCtx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	statuses := make([]*types.ContainerStatus, 0, len(containers))
	for _, c := range containers {
		status, err := r.GetContainerStatus(ctx, c.ID())
		if err != nil {
			statuses = append(statuses, &types.ContainerStatus{
				ID:    c.ID(),
				State: types.StatusUnknown,
				Error: err.Error(),
			})
			continue
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}

func mapContainerdStatus(status containerd.ProcessStatus) string {
	switch status {
	case containerd.Running, containerd.Paused, containerd.Pausing:
		return types.StatusRunning
	case containerd.Stopped:
		return types.StatusStopped
	case containerd.Created:
		return types.StatusCreated
	default:
		return types.StatusUnknown
	}
}
