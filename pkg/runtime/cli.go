package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coney-io/coney/pkg/bundle"
	"github.com/coney-io/coney/pkg/config"
	"github.com/coney-io/coney/pkg/events"
	"github.com/coney-io/coney/pkg/log"
	"github.com/coney-io/coney/pkg/types"
)

// stopPollInterval is how often the stop sequence re-queries the
// runtime's state while waiting for the container to reach a terminal
// status.
const stopPollInterval = 100 * time.Millisecond

// CLIRuntime drives an OCI-compliant low-level runtime binary (runc,
// youki, crun) through its command line interface. It owns the
// in-memory container registry, the per-container log watchers, and
// the cgroup stats reader.
type CLIRuntime struct {
	cfg    *config.Config
	images ImageResolver
	reg    *registry
	logger zerolog.Logger
	broker *events.Broker

	logWatchers *watcherSet
}

// NewCLIRuntime constructs the engine. Construction fails if the
// runtime binary is missing or the bundle/state roots cannot be
// created.
func NewCLIRuntime(cfg *config.Config, images ImageResolver) (*CLIRuntime, error) {
	version, err := verifyBinary(cfg.RuntimeBinary)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.BundleRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create bundle root: %w", err)
	}
	if err := os.MkdirAll(cfg.StateRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state root: %w", err)
	}

	logger := log.WithComponent("runtime")
	logger.Info().
		Str("binary", cfg.RuntimeBinary).
		Str("version", version).
		Msg("cli runtime initialized")

	return &CLIRuntime{
		cfg:         cfg,
		images:      images,
		reg:         newRegistry(),
		logger:      logger,
		logWatchers: newWatcherSet(cfg.LogPollInterval),
	}, nil
}

// SetEventBroker attaches a broker that receives lifecycle events.
// Must be called before the runtime is shared between goroutines.
func (r *CLIRuntime) SetEventBroker(broker *events.Broker) {
	r.broker = broker
}

func (r *CLIRuntime) publish(eventType events.EventType, containerID, nodeID, msg string) {
	if r.broker == nil {
		return
	}
	r.broker.Publish(&events.Event{
		Type:        eventType,
		ContainerID: containerID,
		NodeID:      nodeID,
		Message:     msg,
	})
}

// bundlePath returns the bundle directory for a container, namespaced
// by node then container id
func (r *CLIRuntime) bundlePath(nodeID, containerID string) string {
	return filepath.Join(r.cfg.BundleRoot, nodeID, containerID)
}

// ==================== OCI runtime commands ====================

// runtimeCreate runs `create <id> --bundle <path>`
func (r *CLIRuntime) runtimeCreate(ctx context.Context, id, bundlePath string) error {
	res, err := r.execRuntime(ctx, "create", id, "--bundle", bundlePath)
	if err != nil {
		return err
	}
	if !res.success() {
		return &CommandError{Command: "create", Stderr: res.stderrString()}
	}
	return nil
}

// runtimeStart runs `start <id>`
func (r *CLIRuntime) runtimeStart(ctx context.Context, id string) error {
	res, err := r.execRuntime(ctx, "start", id)
	if err != nil {
		return err
	}
	if !res.success() {
		return &CommandError{Command: "start", Stderr: res.stderrString()}
	}
	return nil
}

// runtimeKill runs `kill <id> <signal>`. A container that is already
// gone or not running is treated as success: signalling a dead
// container is an idempotent no-op.
func (r *CLIRuntime) runtimeKill(ctx context.Context, id, signal string) error {
	res, err := r.execRuntime(ctx, "kill", id, signal)
	if err != nil {
		return err
	}
	if !res.success() {
		stderr := res.stderrString()
		if !isIgnorableKillError(stderr) {
			return &CommandError{Command: "kill " + signal, Stderr: stderr}
		}
	}
	return nil
}

// runtimeDelete runs `delete [--force] <id>`. "Already gone" failures
// are treated as success.
func (r *CLIRuntime) runtimeDelete(ctx context.Context, id string, force bool) error {
	args := []string{"delete", id}
	if force {
		args = []string{"delete", "--force", id}
	}

	res, err := r.execRuntime(ctx, args...)
	if err != nil {
		return err
	}
	if !res.success() {
		stderr := res.stderrString()
		if !isNotFoundOutput(stderr) {
			return &CommandError{Command: "delete", Stderr: stderr}
		}
	}
	return nil
}

// runtimeState runs `state <id>` and decodes the JSON document
func (r *CLIRuntime) runtimeState(ctx context.Context, id string) (*types.RuntimeState, error) {
	res, err := r.execRuntime(ctx, "state", id)
	if err != nil {
		return nil, err
	}
	if !res.success() {
		stderr := res.stderrString()
		if isNotFoundOutput(stderr) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, &CommandError{Command: "state", Stderr: stderr}
	}

	var state types.RuntimeState
	if err := json.Unmarshal(res.Stdout, &state); err != nil {
		return nil, &StateError{Output: string(res.Stdout), Err: err}
	}
	return &state, nil
}

// Substring classification of the runtime's free-text stderr. The OCI
// CLI runtimes expose no structured error codes, so "container is
// gone" is detected by the phrases they print. This is a documented
// limitation: wording or locale changes in the external tool would
// break it.
func isNotFoundOutput(stderr string) bool {
	return strings.Contains(stderr, "not exist") || strings.Contains(stderr, "not found")
}

func isIgnorableKillError(stderr string) bool {
	return strings.Contains(stderr, "not running") ||
		strings.Contains(stderr, "no such process") ||
		isNotFoundOutput(stderr)
}

// ==================== Lifecycle operations ====================

// InitNode ensures the node's bundle directory and registry index
// entry exist. Never fails if they already do.
func (r *CLIRuntime) InitNode(ctx context.Context, nodeID string) error {
	r.logger.Info().Str("node_id", nodeID).Msg("initializing node")

	nodeDir := filepath.Join(r.cfg.BundleRoot, nodeID)
	if err := os.MkdirAll(nodeDir, 0755); err != nil {
		return fmt.Errorf("failed to create node bundle dir: %w", err)
	}

	r.reg.initNode(nodeID)
	r.publish(events.EventNodeInitialized, "", nodeID, "node initialized")
	return nil
}

// CreateContainer builds the container's bundle, then drives the
// runtime's create and start commands. The registry entry is inserted
// only after both commands succeed; a failure at any earlier step
// returns a typed error and leaves no registry trace. Partial on-disk
// artifacts (bundle directory, rootfs symlink) are not rolled back
// here -- cleanup belongs to RemoveContainer.
func (r *CLIRuntime) CreateContainer(ctx context.Context, cfg *types.ContainerConfig, opts *types.CreateOptions) (string, error) {
	containerID := fmt.Sprintf("%s-%s", cfg.Name, uuid.New().String())

	logger := r.logger.With().
		Str("container_id", containerID).
		Str("node_id", opts.NodeID).
		Logger()
	logger.Info().Str("image", cfg.Image).Msg("creating container")

	bundlePath := r.bundlePath(opts.NodeID, containerID)
	if err := os.MkdirAll(bundlePath, 0755); err != nil {
		return "", fmt.Errorf("failed to create bundle dir: %w", err)
	}

	// Resolve the image to a local rootfs
	rootfsSource, err := r.images.Resolve(ctx, cfg.Image)
	if err != nil {
		return "", fmt.Errorf("failed to resolve image %s: %w", cfg.Image, err)
	}

	// Link the rootfs into the bundle
	rootfsDest := filepath.Join(bundlePath, "rootfs")
	if _, err := os.Lstat(rootfsDest); err == nil {
		os.RemoveAll(rootfsDest)
	}
	if err := os.Symlink(rootfsSource, rootfsDest); err != nil {
		return "", fmt.Errorf("failed to link rootfs: %w", err)
	}

	// Generate config.json. Resource limits apply only when the
	// request is strictly positive.
	builder := bundle.NewBuilder(bundlePath).
		WithContainerID(containerID).
		WithContainerConfig(cfg).
		SkipRootfsSetup()
	if cfg.Resources.CPUCores > 0 {
		builder = builder.WithCPULimit(cfg.Resources.CPUCores)
	}
	if cfg.Resources.MemoryMB > 0 {
		builder = builder.WithMemoryLimit(cfg.Resources.MemoryMB)
	}
	if err := builder.Build(); err != nil {
		return "", fmt.Errorf("failed to build bundle: %w", err)
	}

	if err := r.runtimeCreate(ctx, containerID, bundlePath); err != nil {
		return "", fmt.Errorf("create failed: %w", err)
	}
	if err := r.runtimeStart(ctx, containerID); err != nil {
		return "", fmt.Errorf("start failed: %w", err)
	}

	r.reg.insert(&types.ContainerState{
		ID:         containerID,
		NodeID:     opts.NodeID,
		BundlePath: bundlePath,
		Status:     types.StatusRunning,
		CreatedAt:  time.Now(),
	})

	logger.Info().Msg("container created and started")
	r.publish(events.EventContainerCreated, containerID, opts.NodeID, "container created and started")
	return containerID, nil
}

// StopContainer sends SIGTERM, then polls the runtime's state until
// the container reaches a terminal status, disappears, or the stop
// deadline elapses -- at which point SIGKILL is sent unconditionally.
// The wait is bounded by StopTimeout plus one polling interval; the
// call never blocks indefinitely and tolerates containers that are
// already stopped or removed.
func (r *CLIRuntime) StopContainer(ctx context.Context, containerID string) error {
	logger := r.logger.With().Str("container_id", containerID).Logger()
	logger.Info().Msg("stopping container")

	if err := r.runtimeKill(ctx, containerID, "SIGTERM"); err != nil {
		logger.Warn().Err(err).Msg("SIGTERM failed")
	}

	deadline := time.Now().Add(r.cfg.StopTimeout)
	killed := false
	for {
		state, err := r.runtimeState(ctx, containerID)
		if err != nil {
			if IsNotFound(err) {
				// Already gone: treated as stopped
				break
			}
			return fmt.Errorf("failed to query state during stop: %w", err)
		}

		if state.Status == types.StatusStopped {
			break
		}

		if time.Now().After(deadline) {
			logger.Warn().Msg("container did not stop in time, sending SIGKILL")
			if err := r.runtimeKill(ctx, containerID, "SIGKILL"); err != nil {
				logger.Warn().Err(err).Msg("SIGKILL failed")
			}
			killed = true
			break
		}

		time.Sleep(stopPollInterval)
	}

	cached, _ := r.reg.get(containerID)
	r.reg.setStatus(containerID, types.StatusStopped)
	if killed {
		r.publish(events.EventContainerKilled, containerID, cached.NodeID, "container killed after graceful stop timed out")
	} else {
		r.publish(events.EventContainerStopped, containerID, cached.NodeID, "container stopped")
	}
	return nil
}

// RemoveContainer force-deletes the container from the runtime, then
// erases its bundle directory and registry bookkeeping. Deletion of an
// already-removed container succeeds: the runtime's "not found" is
// tolerated and missing registry entries are skipped.
func (r *CLIRuntime) RemoveContainer(ctx context.Context, containerID string) error {
	logger := r.logger.With().Str("container_id", containerID).Logger()
	logger.Info().Msg("removing container")

	if err := r.runtimeDelete(ctx, containerID, true); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	// Tear down any log watcher before the log file's directory goes
	r.logWatchers.closeWatcher(containerID)

	var nodeID string
	if state, ok := r.reg.remove(containerID); ok {
		nodeID = state.NodeID
		if err := os.RemoveAll(state.BundlePath); err != nil {
			logger.Warn().Err(err).Msg("failed to remove bundle dir")
		}
	}

	r.publish(events.EventContainerRemoved, containerID, nodeID, "container removed")
	return nil
}

// GetContainerStatus queries the runtime first; when the runtime has
// forgotten the container, it falls back to the registry's cached
// entry. A query failure other than not-found degrades to a status
// record carrying the error instead of failing the call.
func (r *CLIRuntime) GetContainerStatus(ctx context.Context, containerID string) (*types.ContainerStatus, error) {
	state, err := r.runtimeState(ctx, containerID)
	if err == nil {
		return &types.ContainerStatus{
			ID:    containerID,
			State: state.Status,
			PID:   state.PID,
		}, nil
	}

	if IsNotFound(err) {
		if cached, ok := r.reg.get(containerID); ok {
			return &types.ContainerStatus{
				ID:    containerID,
				State: cached.Status,
				PID:   cached.PID,
			}, nil
		}
		return nil, &NotFoundError{ID: containerID}
	}

	return &types.ContainerStatus{
		ID:    containerID,
		State: types.StatusUnknown,
		Error: err.Error(),
	}, nil
}

// ListContainers reports every container indexed under the node. A
// single container's failed query degrades that entry; the listing
// itself always succeeds.
func (r *CLIRuntime) ListContainers(ctx context.Context, nodeID string) ([]*types.ContainerStatus, error) {
	ids := r.reg.idsForNode(nodeID)

	statuses := make([]*types.ContainerStatus, 0, len(ids))
	for _, id := range ids {
		status, err := r.GetContainerStatus(ctx, id)
		if err != nil {
			r.logger.Warn().Err(err).Str("container_id", id).Msg("failed to get container status")
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
