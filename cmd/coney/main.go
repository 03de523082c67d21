package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coney-io/coney/pkg/agent"
	"github.com/coney-io/coney/pkg/config"
	"github.com/coney-io/coney/pkg/events"
	"github.com/coney-io/coney/pkg/image"
	"github.com/coney-io/coney/pkg/log"
	"github.com/coney-io/coney/pkg/metrics"
	"github.com/coney-io/coney/pkg/runtime"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "coney",
	Short: "Coney - container execution layer for cluster orchestrators",
	Long: `Coney is the node-local container execution layer of a cluster
orchestrator: it drives an OCI-compliant low-level runtime to create,
start, stop, and remove containers, tracks their state, streams their
logs, and samples resource usage.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Coney version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "", "Path to configuration file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Log in JSON format")

	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(containerCmd)
	rootCmd.AddCommand(imageCmd)
}

// loadConfig builds the engine configuration from the --config flag,
// falling back to defaults when no file is given
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	initLogging(cmd)

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func initLogging(cmd *cobra.Command) {
	level, _ := cmd.Flags().GetString("log-level")
	jsonOut, _ := cmd.Flags().GetBool("log-json")
	log.Init(log.Config{
		Level:      log.Level(level),
		JSONOutput: jsonOut,
	})
}

// newCLIRuntime constructs the image store and CLI runtime from config
func newCLIRuntime(cfg *config.Config) (*runtime.CLIRuntime, *image.Store, error) {
	images, err := image.NewStore(cfg.ImageRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open image store: %w", err)
	}

	rt, err := runtime.NewCLIRuntime(cfg, images)
	if err != nil {
		images.Close()
		return nil, nil, err
	}

	return rt, images, nil
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the node agent",
	Long: `Run the Coney node agent: initializes the node, supervises its
containers, and exposes Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		nodeID, _ := cmd.Flags().GetString("node-id")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		rt, images, err := newCLIRuntime(cfg)
		if err != nil {
			return err
		}
		defer images.Close()

		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()
		rt.SetEventBroker(broker)

		sub := broker.Subscribe()
		go func() {
			for event := range sub {
				log.Logger.Info().
					Str("type", string(event.Type)).
					Str("container_id", event.ContainerID).
					Str("node_id", event.NodeID).
					Msg(event.Message)
			}
		}()

		a, err := agent.New(&agent.Config{
			NodeID:  nodeID,
			Runtime: rt,
			Stats:   rt,
		})
		if err != nil {
			return err
		}

		if err := a.Start(context.Background()); err != nil {
			return err
		}
		defer a.Stop()

		metrics.SetVersion(Version)
		metrics.RegisterComponent("runtime", true, "")
		metrics.RegisterComponent("image-store", true, "")

		if metricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			mux.HandleFunc("/health", metrics.HealthHandler())
			mux.HandleFunc("/ready", metrics.ReadyHandler())
			mux.HandleFunc("/live", metrics.LivenessHandler())
			go func() {
				if err := http.ListenAndServe(metricsAddr, mux); err != nil {
					log.Errorf("metrics server error", err)
				}
			}()
			fmt.Printf("Metrics available at http://%s/metrics\n", metricsAddr)
		}

		fmt.Printf("Agent running on node %s. Press Ctrl+C to stop.\n", nodeID)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		fmt.Println("\nShutting down...")
		return nil
	},
}

func init() {
	agentCmd.Flags().String("node-id", "node-1", "Node identifier")
	agentCmd.Flags().String("metrics-addr", "localhost:9443", "Prometheus metrics listen address (empty to disable)")
}
