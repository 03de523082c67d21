package events

import (
	"testing"
	"time"
)

func recvEvent(t *testing.T, sub Subscriber) *Event {
	t.Helper()
	select {
	case e := <-sub:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return nil
}

func TestBrokerPublishSubscribe(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	broker.Publish(&Event{
		Type:        EventContainerCreated,
		ContainerID: "web-1",
		NodeID:      "node-1",
	})

	event := recvEvent(t, sub)
	if event.Type != EventContainerCreated {
		t.Errorf("expected %s, got %s", EventContainerCreated, event.Type)
	}
	if event.ContainerID != "web-1" {
		t.Errorf("expected container web-1, got %s", event.ContainerID)
	}
	if event.Timestamp.IsZero() {
		t.Error("expected a timestamp to be stamped on publish")
	}
}

func TestBrokerMultipleSubscribers(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	sub1 := broker.Subscribe()
	sub2 := broker.Subscribe()

	if broker.SubscriberCount() != 2 {
		t.Errorf("expected 2 subscribers, got %d", broker.SubscriberCount())
	}

	broker.Publish(&Event{Type: EventContainerStopped, ContainerID: "web-1"})

	if e := recvEvent(t, sub1); e.ContainerID != "web-1" {
		t.Errorf("subscriber 1: expected web-1, got %s", e.ContainerID)
	}
	if e := recvEvent(t, sub2); e.ContainerID != "web-1" {
		t.Errorf("subscriber 2: expected web-1, got %s", e.ContainerID)
	}

	broker.Unsubscribe(sub1)
	if broker.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber after unsubscribe, got %d", broker.SubscriberCount())
	}
	if _, ok := <-sub1; ok {
		t.Error("expected unsubscribed channel to be closed")
	}
}

func TestBrokerSlowSubscriberDoesNotBlock(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	// Never drained: its buffer fills and further events are dropped
	// for it without stalling the broker
	broker.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			broker.Publish(&Event{Type: EventContainerCreated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publishing blocked on a slow subscriber")
	}
}
