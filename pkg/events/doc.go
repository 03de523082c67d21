/*
Package events provides an in-memory broker for container lifecycle
events.

The engine publishes an event for every lifecycle transition it
drives: container created, stopped, killed, removed, and node
initialization. Subscribers receive events over buffered channels;
delivery is non-blocking, so a slow subscriber drops events instead of
stalling the engine.

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	for event := range sub {
		fmt.Printf("%s %s\n", event.Type, event.ContainerID)
	}
*/
package events
