package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coney-io/coney/pkg/runtime"
	"github.com/coney-io/coney/pkg/types"
)

var containerCmd = &cobra.Command{
	Use:   "container",
	Short: "Manage containers",
}

var containerRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Create and start a container",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		imageRef, _ := cmd.Flags().GetString("image")
		nodeID, _ := cmd.Flags().GetString("node")
		cpu, _ := cmd.Flags().GetFloat64("cpu")
		memory, _ := cmd.Flags().GetInt64("memory")
		env, _ := cmd.Flags().GetStringArray("env")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		rt, images, err := newCLIRuntime(cfg)
		if err != nil {
			return err
		}
		defer images.Close()

		ctx := context.Background()
		if err := rt.InitNode(ctx, nodeID); err != nil {
			return err
		}

		id, err := rt.CreateContainer(ctx, &types.ContainerConfig{
			Name:    name,
			Image:   imageRef,
			Command: args,
			Env:     env,
			Resources: types.ResourceRequests{
				CPUCores: cpu,
				MemoryMB: memory,
			},
		}, &types.CreateOptions{NodeID: nodeID})
		if err != nil {
			return fmt.Errorf("failed to create container: %v", err)
		}

		fmt.Println(id)
		return nil
	},
}

var containerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List containers on a node",
	RunE: func(cmd *cobra.Command, args []string) error {
		nodeID, _ := cmd.Flags().GetString("node")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		rt, images, err := newCLIRuntime(cfg)
		if err != nil {
			return err
		}
		defer images.Close()

		statuses, err := rt.ListContainers(context.Background(), nodeID)
		if err != nil {
			return err
		}

		fmt.Printf("%-50s %-10s %-8s %s\n", "CONTAINER ID", "STATE", "PID", "ERROR")
		for _, s := range statuses {
			fmt.Printf("%-50s %-10s %-8d %s\n", s.ID, s.State, s.PID, s.Error)
		}
		return nil
	},
}

var containerStatusCmd = &cobra.Command{
	Use:   "status <container-id>",
	Short: "Show a container's status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		rt, images, err := newCLIRuntime(cfg)
		if err != nil {
			return err
		}
		defer images.Close()

		status, err := rt.GetContainerStatus(context.Background(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("ID:    %s\n", status.ID)
		fmt.Printf("State: %s\n", status.State)
		if status.PID > 0 {
			fmt.Printf("PID:   %d\n", status.PID)
		}
		if status.Error != "" {
			fmt.Printf("Error: %s\n", status.Error)
		}
		return nil
	},
}

var containerStopCmd = &cobra.Command{
	Use:   "stop <container-id>",
	Short: "Stop a container gracefully",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		rt, images, err := newCLIRuntime(cfg)
		if err != nil {
			return err
		}
		defer images.Close()

		if err := rt.StopContainer(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Container %s stopped\n", args[0])
		return nil
	},
}

var containerRmCmd = &cobra.Command{
	Use:   "rm <container-id>",
	Short: "Remove a container",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		rt, images, err := newCLIRuntime(cfg)
		if err != nil {
			return err
		}
		defer images.Close()

		for _, id := range args {
			if err := rt.RemoveContainer(context.Background(), id); err != nil {
				return err
			}
			fmt.Printf("Container %s removed\n", id)
		}
		return nil
	},
}

var containerLogsCmd = &cobra.Command{
	Use:   "logs <container-id>",
	Short: "Fetch or follow a container's logs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tail, _ := cmd.Flags().GetInt("tail")
		timestamps, _ := cmd.Flags().GetBool("timestamps")
		since, _ := cmd.Flags().GetString("since")
		until, _ := cmd.Flags().GetString("until")
		follow, _ := cmd.Flags().GetBool("follow")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		rt, images, err := newCLIRuntime(cfg)
		if err != nil {
			return err
		}
		defer images.Close()

		containerID := args[0]
		opts := &types.LogOptions{
			Tail:       tail,
			Timestamps: timestamps,
			Since:      since,
			Until:      until,
			Follow:     follow,
		}

		entries, err := rt.GetLogs(containerID, opts)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			fmt.Println(runtime.FormatLogEntry(entry, timestamps))
		}

		if !follow {
			return nil
		}

		ch, cancel, err := rt.FollowLogs(containerID)
		if err != nil {
			return err
		}
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		for {
			select {
			case entry, ok := <-ch:
				if !ok {
					return nil
				}
				fmt.Println(runtime.FormatLogEntry(entry, timestamps))
			case <-sigCh:
				return nil
			}
		}
	},
}

var containerStatsCmd = &cobra.Command{
	Use:   "stats <container-id>",
	Short: "Show a container's resource usage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		rt, images, err := newCLIRuntime(cfg)
		if err != nil {
			return err
		}
		defer images.Close()

		stats := rt.GetStats(args[0])
		fmt.Printf("ID:     %s\n", stats.ContainerID)
		fmt.Printf("CPU:    %.3fs\n", float64(stats.CPUUsageNs)/1e9)
		fmt.Printf("Memory: %d bytes\n", stats.MemoryUsageBytes)
		return nil
	},
}

func init() {
	containerRunCmd.Flags().String("name", "container", "Container name")
	containerRunCmd.Flags().String("image", "", "Image reference (required)")
	containerRunCmd.Flags().String("node", "node-1", "Node identifier")
	containerRunCmd.Flags().Float64("cpu", 0, "CPU limit in cores (0 = unlimited)")
	containerRunCmd.Flags().Int64("memory", 0, "Memory limit in MB (0 = unlimited)")
	containerRunCmd.Flags().StringArray("env", nil, "Environment variables (KEY=value)")
	_ = containerRunCmd.MarkFlagRequired("image")

	containerListCmd.Flags().String("node", "node-1", "Node identifier")

	containerLogsCmd.Flags().Int("tail", 0, "Show only the last N lines (0 = all)")
	containerLogsCmd.Flags().Bool("timestamps", false, "Include timestamps")
	containerLogsCmd.Flags().String("since", "", "Only logs at or after this RFC3339 timestamp")
	containerLogsCmd.Flags().String("until", "", "Only logs at or before this RFC3339 timestamp")
	containerLogsCmd.Flags().BoolP("follow", "f", false, "Follow log output")

	containerCmd.AddCommand(containerRunCmd)
	containerCmd.AddCommand(containerListCmd)
	containerCmd.AddCommand(containerStatusCmd)
	containerCmd.AddCommand(containerStopCmd)
	containerCmd.AddCommand(containerRmCmd)
	containerCmd.AddCommand(containerLogsCmd)
	containerCmd.AddCommand(containerStatsCmd)
}
