package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coney-io/coney/pkg/metrics"
	"github.com/coney-io/coney/pkg/runtime"
	"github.com/coney-io/coney/pkg/types"
)

type fakeStats struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeStats) GetStats(containerID string) *types.ContainerStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, containerID)
	return &types.ContainerStats{
		ContainerID:      containerID,
		CPUUsageNs:       500_000_000,
		MemoryUsageBytes: 1024,
	}
}

func (f *fakeStats) sampled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func TestNewValidation(t *testing.T) {
	_, err := New(&Config{Runtime: runtime.NewMockRuntime()})
	assert.Error(t, err, "expected error without a node id")

	_, err = New(&Config{NodeID: "node-1"})
	assert.Error(t, err, "expected error without a runtime")

	a, err := New(&Config{NodeID: "node-1", Runtime: runtime.NewMockRuntime()})
	require.NoError(t, err)
	assert.Equal(t, DefaultCollectInterval, a.interval)
}

func TestAgentCollects(t *testing.T) {
	ctx := context.Background()
	rt := runtime.NewMockRuntime()
	require.NoError(t, rt.InitNode(ctx, "node-1"))

	running, err := rt.CreateContainer(ctx, &types.ContainerConfig{Name: "web", Image: "alpine"}, &types.CreateOptions{NodeID: "node-1"})
	require.NoError(t, err)
	stopped, err := rt.CreateContainer(ctx, &types.ContainerConfig{Name: "db", Image: "postgres"}, &types.CreateOptions{NodeID: "node-1"})
	require.NoError(t, err)
	require.NoError(t, rt.StopContainer(ctx, stopped))

	stats := &fakeStats{}
	a, err := New(&Config{
		NodeID:          "node-1",
		Runtime:         rt,
		Stats:           stats,
		CollectInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	require.NoError(t, a.Start(ctx))
	time.Sleep(50 * time.Millisecond)
	a.Stop()

	// Only running containers are sampled
	sampled := stats.sampled()
	assert.Contains(t, sampled, running)
	assert.NotContains(t, sampled, stopped)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ContainersTotal.WithLabelValues(types.StatusRunning)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ContainersTotal.WithLabelValues(types.StatusStopped)))
	assert.Equal(t, 0.5, testutil.ToFloat64(metrics.ContainerCPUUsage.WithLabelValues(running)))
	assert.Equal(t, float64(1024), testutil.ToFloat64(metrics.ContainerMemoryUsage.WithLabelValues(running)))
}

func TestAgentStopWaitsForLoop(t *testing.T) {
	a, err := New(&Config{
		NodeID:          "node-1",
		Runtime:         runtime.NewMockRuntime(),
		CollectInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	require.NoError(t, a.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		a.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return")
	}
}
