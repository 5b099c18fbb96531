package ws

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Temutjin2k/room-compass/pkg/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// echoServer registers every socket under id and echoes frames back as {"echo": ...}.
func echoServer(t *testing.T, hub *ConnectionHub, id uuid.UUID) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		conn := NewConn(context.Background(), id, raw)
		if err := hub.Add(conn); err != nil {
			t.Errorf("add: %v", err)
			return
		}
		defer hub.Remove(conn)

		conn.Listen(func(data []byte) error {
			return conn.Send(context.Background(), map[string]string{"echo": string(data)})
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func waitLen(t *testing.T, hub *ConnectionHub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d connections, got %d", n, hub.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func newHub() *ConnectionHub {
	return NewConnHub(logger.New(io.Discard, "test", logger.LevelError))
}

func TestHubSendAndEcho(t *testing.T) {
	hub := newHub()
	id := uuid.New()
	client := dial(t, echoServer(t, hub, id))
	waitLen(t, hub, 1)

	if err := hub.SendTo(context.Background(), id, map[string]int{"n": 1}); err != nil {
		t.Fatalf("send: %v", err)
	}
	var got map[string]int
	if err := client.ReadJSON(&got); err != nil || got["n"] != 1 {
		t.Fatalf("unexpected frame %v %v", got, err)
	}

	client.WriteMessage(websocket.TextMessage, []byte("hi"))
	var echo map[string]string
	if err := client.ReadJSON(&echo); err != nil || echo["echo"] != "hi" {
		t.Fatalf("unexpected echo %v %v", echo, err)
	}

	if err := hub.SendTo(context.Background(), uuid.New(), "x"); err != ErrConnIsNotFound {
		t.Fatalf("expected ErrConnIsNotFound, got %v", err)
	}
}

func TestHubReplacesConnectionOfSameUser(t *testing.T) {
	hub := newHub()
	srv := echoServer(t, hub, uuid.New())

	first := dial(t, srv)
	waitLen(t, hub, 1)
	second := dial(t, srv)

	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := first.ReadMessage(); err == nil {
		t.Fatalf("first connection should have been closed")
	}

	second.WriteMessage(websocket.TextMessage, []byte("still here"))
	var echo map[string]string
	if err := second.ReadJSON(&echo); err != nil || echo["echo"] != "still here" {
		t.Fatalf("second connection broken: %v %v", echo, err)
	}
	waitLen(t, hub, 1)
}

func TestHubClose(t *testing.T) {
	hub := newHub()
	client := dial(t, echoServer(t, hub, uuid.New()))
	waitLen(t, hub, 1)

	done := make(chan struct{})
	go func() {
		hub.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("hub close blocked")
	}
	if hub.Len() != 0 {
		t.Fatalf("hub not empty after close")
	}

	client.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := client.ReadMessage(); err == nil {
		t.Fatalf("client should see the close")
	}
}

func TestSendAfterClose(t *testing.T) {
	c := NewConn(context.Background(), uuid.New(), nil)
	c.Close()
	c.Close()
	if err := c.Send(context.Background(), json.RawMessage(`{}`)); err != ErrConnClosed {
		t.Fatalf("expected ErrConnClosed, got %v", err)
	}
}
