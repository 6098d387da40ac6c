package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// wsTestServer upgrades one connection and writes the given frames.
func wsTestServer(t *testing.T, frames [][]byte) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(c *Config) {}, nil},
		{"empty url", func(c *Config) { c.URL = "" }, ErrEmptyURL},
		{"zero base delay", func(c *Config) { c.BaseDelay = 0 }, ErrInvalidDelay},
		{"max below base", func(c *Config) { c.MaxDelay = c.BaseDelay / 2 }, ErrInvalidMaxDelay},
		{"jitter above one", func(c *Config) { c.JitterFactor = 1.5 }, ErrInvalidJitter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("ws://localhost/stream")
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClientPublishesDecodedEvents(t *testing.T) {
	good, err := EncodeEvent(&ChangeEvent{Entity: EntityCatches, Kind: EventInsert, ID: "c1", TimeUS: 1})
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}
	good2, err := EncodeEvent(&ChangeEvent{Entity: EntityCatches, Kind: EventDelete, ID: "c2", TimeUS: 2})
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}
	srv := wsTestServer(t, [][]byte{good, []byte("garbage frame"), good2})

	broker := NewBroker(nil)
	defer broker.Close()
	events, _, err := broker.Subscribe(EntityCatches)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	client, err := NewClient(DefaultConfig(wsURL(srv)), broker, nil, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = client.Run(ctx)
	}()

	// The undecodable middle frame is skipped, not fatal: both valid events
	// arrive in order.
	for _, wantID := range []string{"c1", "c2"} {
		select {
		case ev := <-events:
			if ev.ID != wantID {
				t.Errorf("got event %q, want %q", ev.ID, wantID)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %q", wantID)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop after cancel")
	}
}

func TestClientReconnectsAfterServerClose(t *testing.T) {
	frame, err := EncodeEvent(&ChangeEvent{Entity: EntityCatches, Kind: EventInsert, ID: "again", TimeUS: 1})
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}

	upgrader := websocket.Upgrader{}
	conns := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns++
		if conns == 1 {
			// Drop the first connection immediately to force a reconnect.
			conn.Close()
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.BinaryMessage, frame)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	broker := NewBroker(nil)
	defer broker.Close()
	events, _, err := broker.Subscribe(EntityCatches)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	cfg := DefaultConfig(wsURL(srv))
	cfg.BaseDelay = 5 * time.Millisecond
	client, err := NewClient(cfg, broker, nil, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	select {
	case ev := <-events:
		if ev.ID != "again" {
			t.Errorf("got event %q, want again", ev.ID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event after reconnect")
	}
}

func TestComputeBackoffBounds(t *testing.T) {
	cfg := DefaultConfig("ws://localhost/stream")
	client, err := NewClient(cfg, NewBroker(nil), nil, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	client.reconnectCount = 40
	for i := 0; i < 100; i++ {
		d := client.computeBackoff()
		if d <= 0 {
			t.Fatalf("backoff %v not positive", d)
		}
		if d > time.Duration(float64(cfg.MaxDelay)*(1+cfg.JitterFactor)) {
			t.Fatalf("backoff %v exceeds jittered max", d)
		}
	}
}
