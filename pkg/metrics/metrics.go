package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Container metrics
	ContainersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "coney_containers_total",
			Help: "Total number of containers by state",
		},
		[]string{"state"},
	)

	ContainerCPUUsage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "coney_container_cpu_usage_seconds",
			Help: "Cumulative CPU time per container in seconds",
		},
		[]string{"container_id"},
	)

	ContainerMemoryUsage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "coney_container_memory_usage_bytes",
			Help: "Current memory usage per container in bytes",
		},
		[]string{"container_id"},
	)

	// Runtime command metrics
	RuntimeCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coney_runtime_commands_total",
			Help: "Total number of OCI runtime invocations by subcommand",
		},
		[]string{"subcommand"},
	)

	RuntimeCommandErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coney_runtime_command_errors_total",
			Help: "Total number of failed OCI runtime invocations by subcommand",
		},
		[]string{"subcommand"},
	)

	RuntimeCommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coney_runtime_command_duration_seconds",
			Help:    "OCI runtime invocation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subcommand"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(ContainersTotal)
	prometheus.MustRegister(ContainerCPUUsage)
	prometheus.MustRegister(ContainerMemoryUsage)
	prometheus.MustRegister(RuntimeCommandsTotal)
	prometheus.MustRegister(RuntimeCommandErrorsTotal)
	prometheus.MustRegister(RuntimeCommandDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
