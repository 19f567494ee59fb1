package websocket

import (
	"testing"
	"time"

	"github.com/mediaforge/vod-service/internal/types"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestBroadcastToStalledSubscriber(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// No pumps are started, so nothing drains the send buffer
	client := NewClient(nil, "user-1", hub)
	hub.RegisterClient(client)
	waitFor(t, func() bool { return hub.SubscriberCount() == 1 }, "client never registered")

	for i := 0; i < cap(client.send); i++ {
		client.send <- []byte("{}")
	}

	// Delivery fails on the full buffer and the hub drops the subscriber;
	// the hub loop must survive to serve everyone else.
	hub.Broadcast(types.NewEvent(types.EventMediaReady, nil))
	waitFor(t, func() bool { return hub.SubscriberCount() == 0 }, "stalled subscriber never dropped")

	other := NewClient(nil, "user-2", hub)
	hub.RegisterClient(other)
	waitFor(t, func() bool { return hub.IsUserConnected("user-2") }, "hub stopped accepting registrations")
}

func TestSendEventFullBufferLeavesChannelOpen(t *testing.T) {
	hub := NewHub()
	client := NewClient(nil, "user-1", hub)

	for i := 0; i < cap(client.send); i++ {
		client.send <- []byte("{}")
	}

	if err := client.SendEvent(types.NewEvent(types.EventMediaReady, nil)); err == nil {
		t.Fatal("Expected an error when the send buffer is full")
	}

	// The channel must stay open: only the hub closes it, on unregister
	select {
	case _, ok := <-client.send:
		if !ok {
			t.Fatal("Send channel was closed by a failed send")
		}
	default:
		t.Fatal("Expected the buffer to still hold messages")
	}
}
