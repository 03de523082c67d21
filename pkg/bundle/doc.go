/*
Package bundle generates OCI bundles: the config.json runtime spec and
rootfs layout understood by OCI-compliant low-level runtimes.

The Builder maps a ContainerConfig onto an opencontainers
runtime-spec document. CPU and memory limits are applied only when
strictly positive; the cgroup path is pinned under /coney/<id> so
resource stats can be read from a deterministic location.

	err := bundle.NewBuilder(bundlePath).
		WithContainerID(id).
		WithContainerConfig(cfg).
		WithCPULimit(0.5).
		SkipRootfsSetup().
		Build()

SkipRootfsSetup is used by the lifecycle engine, which symlinks a
cached image rootfs into the bundle before building the spec.
*/
package bundle
