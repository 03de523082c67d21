package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/coney-io/coney/pkg/log"
	"github.com/coney-io/coney/pkg/metrics"
	"github.com/coney-io/coney/pkg/runtime"
	"github.com/coney-io/coney/pkg/types"
)

// DefaultCollectInterval is how often the agent samples container
// states and resource usage
const DefaultCollectInterval = 15 * time.Second

// StatsSource reads resource usage for a container. The CLI runtime
// implements it; backends without cgroup access may leave it nil.
type StatsSource interface {
	GetStats(containerID string) *types.ContainerStats
}

// Agent is the node-local supervision loop: it owns a Runtime, keeps
// the node initialized, and periodically samples container states and
// resource usage into the Prometheus metrics. The orchestrator's
// control plane attaches above this layer.
type Agent struct {
	nodeID   string
	runtime  runtime.Runtime
	stats    StatsSource
	interval time.Duration
	logger   zerolog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// Config holds agent configuration
type Config struct {
	NodeID          string
	Runtime         runtime.Runtime
	Stats           StatsSource // optional
	CollectInterval time.Duration
}

// New creates an agent for the given node and runtime backend
func New(cfg *Config) (*Agent, error) {
	if cfg.NodeID == "" {
		return nil, fmt.Errorf("agent: node id is required")
	}
	if cfg.Runtime == nil {
		return nil, fmt.Errorf("agent: runtime is required")
	}

	interval := cfg.CollectInterval
	if interval <= 0 {
		interval = DefaultCollectInterval
	}

	return &Agent{
		nodeID:   cfg.NodeID,
		runtime:  cfg.Runtime,
		stats:    cfg.Stats,
		interval: interval,
		logger:   log.WithComponent("agent"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start initializes the node and launches the collection loop
func (a *Agent) Start(ctx context.Context) error {
	if err := a.runtime.InitNode(ctx, a.nodeID); err != nil {
		return fmt.Errorf("failed to initialize node: %w", err)
	}

	a.logger.Info().Str("node_id", a.nodeID).Msg("agent started")

	go a.collectLoop()
	return nil
}

// Stop stops the collection loop and waits for it to exit
func (a *Agent) Stop() {
	close(a.stopCh)
	<-a.doneCh
}

func (a *Agent) collectLoop() {
	defer close(a.doneCh)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	// Collect immediately on start
	a.collect()

	for {
		select {
		case <-ticker.C:
			a.collect()
		case <-a.stopCh:
			return
		}
	}
}

func (a *Agent) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), a.interval)
	defer cancel()

	statuses, err := a.runtime.ListContainers(ctx, a.nodeID)
	if err != nil {
		a.logger.Warn().Err(err).Msg("failed to list containers")
		return
	}

	counts := make(map[string]int)
	for _, status := range statuses {
		counts[status.State]++
	}
	for state, count := range counts {
		metrics.ContainersTotal.WithLabelValues(state).Set(float64(count))
	}

	if a.stats == nil {
		return
	}

	for _, status := range statuses {
		if status.State != types.StatusRunning {
			continue
		}
		s := a.stats.GetStats(status.ID)
		metrics.ContainerCPUUsage.WithLabelValues(status.ID).Set(float64(s.CPUUsageNs) / 1e9)
		metrics.ContainerMemoryUsage.WithLabelValues(status.ID).Set(float64(s.MemoryUsageBytes))
	}
}
