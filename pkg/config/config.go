package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for the execution layer
const (
	DefaultRuntimeBinary   = "runc"
	DefaultBundleRoot      = "/var/lib/coney/bundles"
	DefaultStateRoot       = "/run/coney"
	DefaultImageRoot       = "/var/lib/coney/images"
	DefaultCgroupRoot      = "/sys/fs/cgroup/coney"
	DefaultCommandTimeout  = 30 * time.Second
	DefaultStopTimeout     = 10 * time.Second
	DefaultLogPollInterval = 200 * time.Millisecond
)

// Config holds the configuration for the container execution layer
type Config struct {
	// RuntimeBinary is the OCI runtime binary invoked for container
	// lifecycle commands (runc, youki, crun, ...)
	RuntimeBinary string

	// BundleRoot is the base directory for per-container OCI bundles,
	// namespaced by node then container id
	BundleRoot string

	// StateRoot scopes the OCI runtime's own bookkeeping state and
	// holds per-container log files
	StateRoot string

	// ImageRoot is the image store's cache directory
	ImageRoot string

	// CgroupRoot is the cgroup v2 directory under which per-container
	// resource stats are read
	CgroupRoot string

	// CommandTimeout is the hard ceiling applied to every runtime
	// binary invocation
	CommandTimeout time.Duration

	// StopTimeout is how long a graceful stop waits before SIGKILL
	StopTimeout time.Duration

	// LogPollInterval is how often a log follow watcher checks the
	// log file for appended bytes
	LogPollInterval time.Duration
}

// Default returns a Config populated with the package defaults
func Default() *Config {
	return &Config{
		RuntimeBinary:   DefaultRuntimeBinary,
		BundleRoot:      DefaultBundleRoot,
		StateRoot:       DefaultStateRoot,
		ImageRoot:       DefaultImageRoot,
		CgroupRoot:      DefaultCgroupRoot,
		CommandTimeout:  DefaultCommandTimeout,
		StopTimeout:     DefaultStopTimeout,
		LogPollInterval: DefaultLogPollInterval,
	}
}

// fileConfig is the YAML representation. Timeouts are in seconds to
// keep the file format plain.
type fileConfig struct {
	RuntimeBinary     string `yaml:"runtimeBinary,omitempty"`
	BundleRoot        string `yaml:"bundleRoot,omitempty"`
	StateRoot         string `yaml:"stateRoot,omitempty"`
	ImageRoot         string `yaml:"imageRoot,omitempty"`
	CgroupRoot        string `yaml:"cgroupRoot,omitempty"`
	CommandTimeoutSec int    `yaml:"commandTimeoutSeconds,omitempty"`
	StopTimeoutSec    int    `yaml:"stopTimeoutSeconds,omitempty"`
	LogPollIntervalMs int    `yaml:"logPollIntervalMillis,omitempty"`
}

// Load reads a YAML configuration file and overlays it on the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := Default()
	if fc.RuntimeBinary != "" {
		cfg.RuntimeBinary = fc.RuntimeBinary
	}
	if fc.BundleRoot != "" {
		cfg.BundleRoot = fc.BundleRoot
	}
	if fc.StateRoot != "" {
		cfg.StateRoot = fc.StateRoot
	}
	if fc.ImageRoot != "" {
		cfg.ImageRoot = fc.ImageRoot
	}
	if fc.CgroupRoot != "" {
		cfg.CgroupRoot = fc.CgroupRoot
	}
	if fc.CommandTimeoutSec > 0 {
		cfg.CommandTimeout = time.Duration(fc.CommandTimeoutSec) * time.Second
	}
	if fc.StopTimeoutSec > 0 {
		cfg.StopTimeout = time.Duration(fc.StopTimeoutSec) * time.Second
	}
	if fc.LogPollIntervalMs > 0 {
		cfg.LogPollInterval = time.Duration(fc.LogPollIntervalMs) * time.Millisecond
	}

	return cfg, nil
}
