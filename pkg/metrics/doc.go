/*
Package metrics defines Coney's Prometheus metrics.

Metrics are package-level collectors registered in init. The runtime's
command executor records invocation counts, errors, and durations per
subcommand; the agent's collector loop maintains the per-container
gauges. Expose them with:

	http.Handle("/metrics", metrics.Handler())
*/
package metrics
