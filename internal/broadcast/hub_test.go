package broadcast

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

// testClient builds a registry entry without a real websocket connection;
// the run loop only ever touches the send channel.
func testClient(buffer int) *Client {
	return &Client{ID: "test", send: make(chan []byte, buffer)}
}

func recvEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case raw, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed before delivery")
		}
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("broadcast frame is not valid JSON: %v", err)
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast delivery")
	}
	return Event{}
}

func TestHubDeliversToAllSubscribers(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	a := testClient(8)
	b := testClient(8)
	hub.register <- a
	hub.register <- b

	hub.Publish("reading", map[string]any{"device_id": "d1", "temperature": 24.5})

	for _, c := range []*Client{a, b} {
		ev := recvEvent(t, c)
		if ev.Type != "reading" {
			t.Errorf("event type = %q, want reading", ev.Type)
		}
		payload, ok := ev.Payload.(map[string]any)
		if !ok {
			t.Fatalf("payload is %T, want object", ev.Payload)
		}
		if payload["device_id"] != "d1" {
			t.Errorf("payload device_id = %v, want d1", payload["device_id"])
		}
	}
}

func TestHubAlertFrameType(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	c := testClient(8)
	hub.register <- c

	hub.Publish("alert", map[string]any{"device_id": "d1", "metric": "temperature"})

	if ev := recvEvent(t, c); ev.Type != "alert" {
		t.Errorf("event type = %q, want alert", ev.Type)
	}
}

func TestHubPrunesLaggingSubscriber(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	healthy := testClient(8)
	lagging := testClient(1)
	hub.register <- healthy
	hub.register <- lagging

	// Fill the lagging client's buffer; the next publish overflows it and
	// the hub must drop that client while still delivering to the other.
	hub.Publish("reading", map[string]any{"seq": 1})
	hub.Publish("reading", map[string]any{"seq": 2})

	recvEvent(t, healthy)
	recvEvent(t, healthy)

	// The lagging client got the first event, then its channel was closed
	// by the prune.
	<-lagging.send
	select {
	case _, ok := <-lagging.send:
		if ok {
			t.Error("lagging client received a second event instead of being dropped")
		}
	case <-time.After(time.Second):
		t.Error("lagging client's send channel was not closed")
	}

	// The healthy client keeps receiving.
	hub.Publish("reading", map[string]any{"seq": 3})
	recvEvent(t, healthy)
}

func TestHubUnregisterClosesSendChannel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	c := testClient(8)
	hub.register <- c
	hub.unregister <- c

	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("received an event after unregister")
		}
	case <-time.After(time.Second):
		t.Error("send channel not closed after unregister")
	}
}

func TestHubPublishNeverBlocks(t *testing.T) {
	hub := NewHub()
	// Run loop deliberately not started: the hub queue fills and further
	// publishes must drop rather than block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < cap(hub.broadcast)+16; i++ {
			hub.Publish("reading", map[string]any{"seq": i})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked with a full hub queue")
	}
}

func TestHubShutdownDropsAllSubscribers(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	c := testClient(8)
	hub.register <- c
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-c.send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("send channel not closed on hub shutdown")
		}
	}
}
