package runtime

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/coney-io/coney/pkg/types"
)

// MockRuntime is an in-memory Runtime for tests and dry runs. It
// mirrors the lifecycle semantics of the real backends -- unique ids,
// idempotent stop and remove, per-node indexing -- without touching
// disk or spawning processes.
type MockRuntime struct {
	reg *registry
}

// NewMockRuntime creates an empty in-memory runtime
func NewMockRuntime() *MockRuntime {
	return &MockRuntime{reg: newRegistry()}
}

func (m *MockRuntime) InitNode(ctx context.Context, nodeID string) error {
	m.reg.initNode(nodeID)
	return nil
}

func (m *MockRuntime) CreateContainer(ctx context.Context, cfg *types.ContainerConfig, opts *types.CreateOptions) (string, error) {
	containerID := fmt.Sprintf("%s-%s", cfg.Name, uuid.New().String())

	m.reg.insert(&types.ContainerState{
		ID:     containerID,
		NodeID: opts.NodeID,
		Status: types.StatusRunning,
	})

	return containerID, nil
}

func (m *MockRuntime) StopContainer(ctx context.Context, containerID string) error {
	// Stopping an unknown container is a no-op, matching the real
	// backends' tolerance of already-gone containers
	m.reg.setStatus(containerID, types.StatusStopped)
	return nil
}

func (m *MockRuntime) RemoveContainer(ctx context.Context, containerID string) error {
	m.reg.remove(containerID)
	return nil
}

func (m *MockRuntime) GetContainerStatus(ctx context.Context, containerID string) (*types.ContainerStatus, error) {
	state, ok := m.reg.get(containerID)
	if !ok {
		return nil, &NotFoundError{ID: containerID}
	}
	return &types.ContainerStatus{
		ID:    containerID,
		State: state.Status,
	}, nil
}

func (m *MockRuntime) ListContainers(ctx context.Context, nodeID string) ([]*types.ContainerStatus, error) {
	ids := m.reg.idsForNode(nodeID)

	statuses := make([]*types.ContainerStatus, 0, len(ids))
	for _, id := range ids {
		status, err := m.GetContainerStatus(ctx, id)
		if err != nil {
			statuses = append(statuses, &types.ContainerStatus{
				ID:    id,
				State: types.StatusUnknown,
				Error: err.Error(),
			})
			continue
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}
