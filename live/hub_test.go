package live

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestClient(room string) *Client {
	return &Client{Send: make(chan []byte, 8), Room: room, UserID: "u1"}
}

func recv(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.Send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a broadcast")
		return nil
	}
}

func TestBroadcastReachesRoomSubscribers(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	watcher := newTestClient("order1")
	other := newTestClient("order2")
	hub.register <- watcher
	hub.register <- other

	hub.BroadcastStatus("order1", "baking")

	var update StatusUpdate
	if err := json.Unmarshal(recv(t, watcher), &update); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if update.OrderID != "order1" || update.Status != "baking" {
		t.Errorf("unexpected update: %+v", update)
	}
	if update.Timestamp == 0 {
		t.Error("timestamp should be set")
	}

	select {
	case msg := <-other.Send:
		t.Errorf("order2 watcher got a stray message: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	watcher := newTestClient("order1")
	hub.register <- watcher
	hub.unregister <- watcher

	// Send is closed on unregister
	select {
	case _, ok := <-watcher.Send:
		if ok {
			t.Error("expected Send to be closed, got a message")
		}
	case <-time.After(time.Second):
		t.Fatal("Send channel was not closed")
	}

	// further broadcasts to the room must not block
	hub.BroadcastStatus("order1", "ready")
}

func TestBroadcastAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	hub.Stop()

	done := make(chan struct{})
	go func() {
		hub.BroadcastStatus("order1", "ready")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked after the hub stopped")
	}
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	slow := &Client{Send: make(chan []byte), Room: "order1"} // unbuffered, never read
	hub.register <- slow

	hub.BroadcastStatus("order1", "confirmed")

	select {
	case _, ok := <-slow.Send:
		if ok {
			t.Error("expected the slow client's channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("slow client was not evicted")
	}
}
