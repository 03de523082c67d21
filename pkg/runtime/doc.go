/*
Package runtime implements Coney's container execution layer: the
boundary between the orchestrator's control-plane decisions and the
operating-system processes that carry out work.

The package defines the Runtime interface (init node, create, stop,
remove, status, list) and three interchangeable backends:

  - CLIRuntime drives an OCI-compliant low-level runtime binary
    (runc, youki, crun) as a subprocess
  - ContainerdRuntime drives containerd over its client API
  - MockRuntime is an in-memory backend for tests

# Architecture

	┌──────────────────── CLI RUNTIME ─────────────────────┐
	│                                                        │
	│  ┌─────────────────────────────────────────┐          │
	│  │         Lifecycle Engine                 │          │
	│  │  create → bundle + image → runtime CLI   │          │
	│  │  stop   → SIGTERM, poll, SIGKILL         │          │
	│  │  remove → force delete + cleanup         │          │
	│  └───────┬──────────────────┬──────────────┘          │
	│          │                  │                          │
	│  ┌───────▼───────┐  ┌───────▼──────────────┐          │
	│  │   Registry    │  │  Command Executor     │          │
	│  │  id → state   │  │  exec + timeout +     │          │
	│  │  node → ids   │  │  --root scoping       │          │
	│  └───────────────┘  └──────────────────────┘          │
	│                                                        │
	│  ┌───────────────┐  ┌──────────────────────┐          │
	│  │ Log Subsystem │  │   Stats Collector     │          │
	│  │ fetch/follow  │  │  cgroup v2 files      │          │
	│  └───────────────┘  └──────────────────────┘          │
	└────────────────────────────────────────────────────────┘

# Command Execution

Every OCI runtime invocation gets the configured --root flag and a
hard command timeout; on timeout the process is killed and a
TimeoutError carrying the command line is returned. Non-zero exits are
classified by stderr text: phrases like "not found" or "not running"
downgrade delete, kill, and state failures to idempotent no-ops or
typed NotFoundError values. The classification is substring-based
because the CLI runtimes expose no structured error codes.

# Registry

The registry holds two lock-guarded maps per engine instance: the
primary id → state map and a node → ids index. They are always
mutually consistent, critical sections contain only map operations,
and an entry exists exactly between a successful create and a
completed remove. Registry status is a cached hint; the runtime's
state query is the source of truth while the runtime knows the
container.

# Stop Semantics

StopContainer sends SIGTERM, then polls `state` every 100ms until the
container is stopped, gone, or the stop timeout elapses -- at which
point SIGKILL is sent unconditionally. The call is therefore bounded
by the stop timeout plus one polling interval and is safe against
already-stopped and already-removed containers. Operations on the same
container id are not serialized by the engine; concurrent stop and
remove both tolerate "already gone" responses.

# Logs

Each container logs to <state_root>/<id>/container.log, one entry per
line as "RFC3339 stream message". GetLogs reads the file point-in-time
with tail/since/until filtering (missing file = empty result);
FollowLogs attaches to a per-container watcher goroutine that polls
for appended bytes and fans parsed entries out to all subscribers. At
most one watcher runs per container; it is torn down when the last
subscriber detaches. The fan-out send is non-blocking: a subscriber
with a full buffer misses entries but never stalls the watcher.

# Stats

GetStats reads <cgroup_root>/<id>/cpu.stat (usage_usec, converted to
nanoseconds) and memory.current. Missing files or parse failures
degrade to zero; stats are telemetry, not a correctness path.

# Usage

	cfg := config.Default()
	images, _ := image.NewStore(cfg.ImageRoot)
	rt, err := runtime.NewCLIRuntime(cfg, images)
	if err != nil {
		log.Fatal(err)
	}

	if err := rt.InitNode(ctx, "node-1"); err != nil {
		log.Fatal(err)
	}

	id, err := rt.CreateContainer(ctx, &types.ContainerConfig{
		Name:  "web",
		Image: "nginx:latest",
	}, &types.CreateOptions{NodeID: "node-1"})

	entries, _ := rt.GetLogs(id, &types.LogOptions{Tail: 100})

	ch, cancel, _ := rt.FollowLogs(id)
	defer cancel()
	for entry := range ch {
		fmt.Println(entry.Message)
	}

# See Also

  - pkg/bundle for OCI config.json generation
  - pkg/image for image reference resolution
  - pkg/agent for the node-local supervision loop
*/
package runtime
