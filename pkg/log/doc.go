/*
Package log provides structured logging for Coney built on zerolog.

Call Init once at process startup, then use the package helpers or the
With* constructors to obtain child loggers scoped to a component, node,
or container:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	logger := log.WithComponent("runtime")
	logger.Info().Str("container_id", id).Msg("container started")

Console output (the default) is human-readable; JSON output is intended
for log shippers.
*/
package log
