package notify

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/mhartmann/telestats/internal/types"
	"github.com/rs/zerolog"
)

func TestNewHub(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	if hub == nil {
		t.Fatal("expected hub to be created")
	}

	if hub.clients == nil {
		t.Error("expected clients map to be initialized")
	}

	if hub.broadcast == nil {
		t.Error("expected broadcast channel to be initialized")
	}

	if hub.register == nil {
		t.Error("expected register channel to be initialized")
	}

	if hub.unregister == nil {
		t.Error("expected unregister channel to be initialized")
	}
}

func TestHubClientCount(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}

	hub.mu.Lock()
	hub.clients[&Client{id: "test1"}] = true
	hub.clients[&Client{id: "test2"}] = true
	hub.mu.Unlock()

	if hub.ClientCount() != 2 {
		t.Errorf("expected 2 clients, got %d", hub.ClientCount())
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	go hub.Run()

	client := &Client{
		id:   "test-client",
		hub:  hub,
		send: make(chan []byte, 1),
	}

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client after register, got %d", hub.ClientCount())
	}

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients after unregister, got %d", hub.ClientCount())
	}
}

func TestPublishReachesAllClients(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	go hub.Run()

	client1 := &Client{id: "client1", hub: hub, send: make(chan []byte, 10)}
	client2 := &Client{id: "client2", hub: hub, send: make(chan []byte, 10)}

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	hub.Publish(types.Notification{
		Type:           "notification",
		Message:        "New call: Meier GmbH",
		Category:       "sale_closed",
		Status:         types.OutcomeOpen,
		Count:          1,
		DismissAfterMS: 6000,
	})

	for _, client := range []*Client{client1, client2} {
		select {
		case msg := <-client.send:
			var n types.Notification
			if err := json.Unmarshal(msg, &n); err != nil {
				t.Fatalf("client %s received unparseable payload: %v", client.id, err)
			}
			if n.Message != "New call: Meier GmbH" {
				t.Errorf("client %s got message %q", client.id, n.Message)
			}
			if n.DismissAfterMS != 6000 {
				t.Errorf("client %s got dismiss %d", client.id, n.DismissAfterMS)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("client %s did not receive notification", client.id)
		}
	}
}

func TestPublishDoesNotBlockWithoutClients(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)
	// Hub not running: Publish must still return promptly

	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			hub.Publish(types.Notification{Type: "notification", Count: 1})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked with no consumers")
	}
}
