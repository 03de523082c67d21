/*
Package config holds the configuration for Coney's container execution
layer: where bundles and runtime state live on disk, which OCI runtime
binary to drive, and the timeout policy for external commands and
graceful shutdown.

Configuration is a plain struct with defaults, optionally overlaid from
a YAML file:

	cfg, err := config.Load("/etc/coney/coney.yaml")
	if err != nil {
		log.Fatal(err)
	}

Example file:

	runtimeBinary: runc
	bundleRoot: /var/lib/coney/bundles
	stateRoot: /run/coney
	commandTimeoutSeconds: 30
	stopTimeoutSeconds: 10
*/
package config
