/*
Package types defines the shared data structures for Coney's container
execution layer.

The types here flow between the runtime backends (pkg/runtime), the OCI
bundle builder (pkg/bundle), the image store (pkg/image), and the node
agent (pkg/agent). They are plain structs with no behavior so that every
package can depend on them without import cycles.

# Core Types

ContainerConfig:
  - What the orchestrator wants to run: image, command, env, labels
  - ResourceRequests carries CPU core and memory requests; zero means
    "no limit" and the bundle builder skips the corresponding cgroup
    setting entirely

ContainerState:
  - The engine's registry entry for a container it created
  - A cached mirror of runtime state; callers treat it as a hint when
    the runtime itself is reachable

ContainerStatus:
  - Per-container result of status and listing queries
  - Degraded records carry State "unknown" plus an Error string instead
    of failing the whole listing

RuntimeState:
  - JSON document printed by the OCI runtime's `state` subcommand
    (ociVersion, id, status, pid, bundle, annotations, created)

LogEntry / LogOptions:
  - One parsed log line and the query options (tail, timestamps,
    since/until bounds, follow)

ContainerStats:
  - CPU time in nanoseconds and memory in bytes, read from cgroup v2
    pseudo-files; best-effort telemetry

# Usage

Creating a container config:

	cfg := &types.ContainerConfig{
		Name:  "web",
		Image: "nginx:latest",
		Env:   []string{"ENV=production"},
		Resources: types.ResourceRequests{
			CPUCores: 0.5,
			MemoryMB: 256,
		},
	}

# See Also

  - pkg/runtime for the lifecycle engine operating on these types
  - pkg/bundle for OCI spec generation from ContainerConfig
*/
package types
