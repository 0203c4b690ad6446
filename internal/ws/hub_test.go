package ws

import (
	"sync"
	"testing"
	"time"
)

// TestHubClientManagement tests Hub client registration and broadcast
func TestHubClientManagement(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	client1 := NewClient(nil, 16)
	client2 := NewClient(nil, 16)

	if client1.State() != StateConnecting {
		t.Errorf("expected new client to be connecting, got %s", client1.State())
	}

	hub.Register(client1)
	hub.Register(client2)

	if hub.ClientCount() != 2 {
		t.Errorf("expected 2 clients, got %d", hub.ClientCount())
	}
	if !client1.IsOpen() {
		t.Errorf("expected registered client to be open, got %s", client1.State())
	}

	testData := []byte("test broadcast message")
	if n := hub.Broadcast(testData); n != 2 {
		t.Errorf("expected 2 deliveries, got %d", n)
	}

	if got := receiveWithTimeout(client1, 100*time.Millisecond); string(got) != string(testData) {
		t.Errorf("client1 received wrong data: %s", got)
	}
	if got := receiveWithTimeout(client2, 100*time.Millisecond); string(got) != string(testData) {
		t.Errorf("client2 received wrong data: %s", got)
	}

	hub.Unregister(client1)
	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client after unregister, got %d", hub.ClientCount())
	}
	if client1.State() != StateClosed {
		t.Errorf("expected unregistered client to be closed, got %s", client1.State())
	}
}

func TestHubUnregisterIsIdempotent(t *testing.T) {
	hub := NewHub()

	// Never registered, e.g. a failed handshake
	stranger := NewClient(nil, 1)
	hub.Unregister(stranger)
	hub.Unregister(stranger)

	client := NewClient(nil, 1)
	hub.Register(client)
	hub.Unregister(client)
	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}
}

func TestHubRegisterClosedClientStaysClosed(t *testing.T) {
	hub := NewHub()
	client := NewClient(nil, 1)
	client.Close()

	if hub.Register(client) {
		t.Error("closed client must not be registered")
	}
	if client.IsOpen() {
		t.Error("closed client must not reopen")
	}

	// The registry never holds it, not even until the next broadcast
	if hub.ClientCount() != 0 {
		t.Errorf("expected closed client to be skipped, got %d", hub.ClientCount())
	}
	if len(hub.Snapshot()) != 0 {
		t.Error("expected empty snapshot")
	}
	if n := hub.Broadcast([]byte("x")); n != 0 {
		t.Errorf("expected 0 deliveries, got %d", n)
	}
}

func TestHubRegisterTwiceKeepsOneEntry(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	client := NewClient(nil, 1)
	if !hub.Register(client) || !hub.Register(client) {
		t.Fatal("open client should register")
	}
	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client, got %d", hub.ClientCount())
	}
}

func TestHubBroadcastExcluding(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	origin := NewClient(nil, 4)
	peer := NewClient(nil, 4)
	hub.Register(origin)
	hub.Register(peer)

	if n := hub.BroadcastExcluding([]byte("hello"), origin); n != 1 {
		t.Errorf("expected 1 delivery, got %d", n)
	}
	if got := receiveWithTimeout(peer, 100*time.Millisecond); string(got) != "hello" {
		t.Errorf("peer received %q", got)
	}
	if got := receiveWithTimeout(origin, 50*time.Millisecond); got != nil {
		t.Errorf("origin should be excluded, received %q", got)
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	slow := NewClient(nil, 1)
	fast := NewClient(nil, 8)
	hub.Register(slow)
	hub.Register(fast)

	hub.Broadcast([]byte("one"))
	hub.Broadcast([]byte("two"))

	if hub.ClientCount() != 1 {
		t.Errorf("expected slow client to be removed, got %d clients", hub.ClientCount())
	}
	if slow.IsOpen() {
		t.Error("slow client should be closed")
	}

	// The fast client still received both messages in order
	if got := receiveWithTimeout(fast, 100*time.Millisecond); string(got) != "one" {
		t.Errorf("expected 'one', got %q", got)
	}
	if got := receiveWithTimeout(fast, 100*time.Millisecond); string(got) != "two" {
		t.Errorf("expected 'two', got %q", got)
	}
}

func TestHubConcurrentRegisterAndBroadcast(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := NewClient(nil, 64)
			hub.Register(c)
			hub.Unregister(c)
		}()
		go func() {
			defer wg.Done()
			hub.Broadcast([]byte("ping"))
		}()
	}
	wg.Wait()

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}
}

func TestHubClose(t *testing.T) {
	hub := NewHub()
	client := NewClient(nil, 1)
	hub.Register(client)

	hub.Close()

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients after close, got %d", hub.ClientCount())
	}
	if _, ok := <-client.SendChan(); ok {
		t.Error("expected send channel to be closed")
	}
}

func TestHubBroadcastJSON(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	client := NewClient(nil, 1)
	hub.Register(client)

	if err := hub.BroadcastJSON(map[string]string{"type": "image", "value": "v"}); err != nil {
		t.Fatalf("failed to broadcast: %v", err)
	}
	if got := receiveWithTimeout(client, 100*time.Millisecond); string(got) != `{"type":"image","value":"v"}` {
		t.Errorf("unexpected frame %s", got)
	}
}

// Helper function
func receiveWithTimeout(client *Client, timeout time.Duration) []byte {
	select {
	case data := <-client.SendChan():
		return data
	case <-time.After(timeout):
		return nil
	}
}
