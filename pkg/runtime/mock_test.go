package runtime

import (
	"context"
	"testing"

	"github.com/coney-io/coney/pkg/types"
)

func TestMockRuntimeLifecycle(t *testing.T) {
	var rt Runtime = NewMockRuntime()
	ctx := context.Background()

	if err := rt.InitNode(ctx, "node-1"); err != nil {
		t.Fatalf("InitNode() error: %v", err)
	}

	id, err := rt.CreateContainer(ctx, &types.ContainerConfig{Name: "web", Image: "alpine"}, &types.CreateOptions{NodeID: "node-1"})
	if err != nil {
		t.Fatalf("CreateContainer() error: %v", err)
	}

	status, err := rt.GetContainerStatus(ctx, id)
	if err != nil {
		t.Fatalf("GetContainerStatus() error: %v", err)
	}
	if status.State != types.StatusRunning {
		t.Errorf("expected running, got %s", status.State)
	}

	if err := rt.StopContainer(ctx, id); err != nil {
		t.Fatalf("StopContainer() error: %v", err)
	}
	status, _ = rt.GetContainerStatus(ctx, id)
	if status.State != types.StatusStopped {
		t.Errorf("expected stopped, got %s", status.State)
	}

	if err := rt.RemoveContainer(ctx, id); err != nil {
		t.Fatalf("RemoveContainer() error: %v", err)
	}
	if _, err := rt.GetContainerStatus(ctx, id); !IsNotFound(err) {
		t.Errorf("expected NotFoundError after removal, got %v", err)
	}
}

func TestMockRuntimeUniqueIDs(t *testing.T) {
	rt := NewMockRuntime()
	ctx := context.Background()

	cfg := &types.ContainerConfig{Name: "web", Image: "alpine"}
	opts := &types.CreateOptions{NodeID: "node-1"}

	id1, _ := rt.CreateContainer(ctx, cfg, opts)
	id2, _ := rt.CreateContainer(ctx, cfg, opts)
	if id1 == id2 {
		t.Errorf("expected distinct ids for the same name, got %s twice", id1)
	}
}

func TestMockRuntimeIdempotentStopRemove(t *testing.T) {
	rt := NewMockRuntime()
	ctx := context.Background()

	if err := rt.StopContainer(ctx, "ghost"); err != nil {
		t.Errorf("expected stop of unknown container to succeed, got %v", err)
	}
	if err := rt.RemoveContainer(ctx, "ghost"); err != nil {
		t.Errorf("expected remove of unknown container to succeed, got %v", err)
	}
}

func TestMockRuntimeListPerNode(t *testing.T) {
	rt := NewMockRuntime()
	ctx := context.Background()
	rt.InitNode(ctx, "node-1")
	rt.InitNode(ctx, "node-2")

	cfg := &types.ContainerConfig{Name: "web", Image: "alpine"}
	rt.CreateContainer(ctx, cfg, &types.CreateOptions{NodeID: "node-1"})
	rt.CreateContainer(ctx, cfg, &types.CreateOptions{NodeID: "node-1"})
	rt.CreateContainer(ctx, cfg, &types.CreateOptions{NodeID: "node-2"})

	statuses, err := rt.ListContainers(ctx, "node-1")
	if err != nil {
		t.Fatalf("ListContainers() error: %v", err)
	}
	if len(statuses) != 2 {
		t.Errorf("expected 2 containers on node-1, got %d", len(statuses))
	}

	statuses, _ = rt.ListContainers(ctx, "node-2")
	if len(statuses) != 1 {
		t.Errorf("expected 1 container on node-2, got %d", len(statuses))
	}
}
