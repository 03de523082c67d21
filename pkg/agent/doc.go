/*
Package agent runs Coney's node-local supervision loop.

The agent owns a runtime backend, initializes its node on start, and
periodically samples container states and resource usage into the
Prometheus metrics. It is the attachment point for the orchestrator's
control plane; scheduling and cluster state are out of its scope.

	rt, _ := runtime.NewCLIRuntime(cfg, images)
	a, err := agent.New(&agent.Config{
		NodeID:  "node-1",
		Runtime: rt,
		Stats:   rt,
	})
	if err != nil {
		log.Fatal(err)
	}
	if err := a.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer a.Stop()
*/
package agent
