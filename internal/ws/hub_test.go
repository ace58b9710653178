package ws_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quietmap/internal/ws"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingHandler captures lifecycle callbacks and inbound events so tests
// can assert on dispatch without a real service layer behind the hub.
type recordingHandler struct {
	mu        sync.Mutex
	events    []ws.Event
	connected int
	greeting  any // sent as initial_data on connect when non-nil
}

func (h *recordingHandler) OnConnect(_ context.Context, s *ws.Session) {
	h.mu.Lock()
	h.connected++
	greeting := h.greeting
	h.mu.Unlock()

	if greeting != nil {
		s.Send(ws.EventInitialData, greeting)
	}
}

func (h *recordingHandler) OnEvent(_ context.Context, _ *ws.Session, ev ws.Event) {
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
}

func (h *recordingHandler) OnDisconnect(_ *ws.Session) {}

func (h *recordingHandler) eventCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func (h *recordingHandler) lastEvent() ws.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.events[len(h.events)-1]
}

// startHub spins up a running hub behind an httptest server and returns the
// ws:// endpoint. Everything is torn down with the test.
func startHub(t *testing.T, handler ws.Handler) (*ws.Hub, string) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := ws.NewHub(testLogger(), 8)
	go hub.Run(ctx)

	srv := httptest.NewServer(ws.ServeWS(ctx, hub, handler, testLogger()))
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func readEvent(t *testing.T, conn *websocket.Conn) ws.Event {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var ev ws.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func TestHub_SessionCountTracksConnections(t *testing.T) {
	hub, url := startHub(t, &recordingHandler{})

	c1 := dial(t, url)
	dial(t, url)
	waitFor(t, func() bool { return hub.SessionCount() == 2 }, "two registered sessions")

	c1.Close()
	waitFor(t, func() bool { return hub.SessionCount() == 1 }, "session unregistered after close")
}

func TestHub_BroadcastReachesEverySession(t *testing.T) {
	hub, url := startHub(t, &recordingHandler{})

	c1 := dial(t, url)
	c2 := dial(t, url)
	waitFor(t, func() bool { return hub.SessionCount() == 2 }, "two registered sessions")

	hub.Broadcast(ws.EventMarkerDeleted, "r-1")

	for _, conn := range []*websocket.Conn{c1, c2} {
		ev := readEvent(t, conn)
		if ev.Name != ws.EventMarkerDeleted {
			t.Fatalf("event = %q, want %q", ev.Name, ws.EventMarkerDeleted)
		}
		var id string
		if err := json.Unmarshal(ev.Payload, &id); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if id != "r-1" {
			t.Fatalf("payload id = %q, want r-1", id)
		}
	}
}

func TestServeWS_ConnectDeliversGreeting(t *testing.T) {
	handler := &recordingHandler{greeting: []string{"a", "b"}}
	_, url := startHub(t, handler)

	conn := dial(t, url)

	ev := readEvent(t, conn)
	if ev.Name != ws.EventInitialData {
		t.Fatalf("first event = %q, want %q", ev.Name, ws.EventInitialData)
	}
	var got []string
	if err := json.Unmarshal(ev.Payload, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if len(got) != 2 || got[0] != "a" {
		t.Fatalf("payload = %v", got)
	}
}

func TestServeWS_InboundEventsReachHandler(t *testing.T) {
	handler := &recordingHandler{}
	_, url := startHub(t, handler)

	conn := dial(t, url)

	msg := map[string]any{
		"event":   ws.EventSubmitReport,
		"payload": map[string]any{"level": 42},
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	waitFor(t, func() bool { return handler.eventCount() == 1 }, "event dispatched to handler")

	if got := handler.lastEvent().Name; got != ws.EventSubmitReport {
		t.Fatalf("event name = %q, want %q", got, ws.EventSubmitReport)
	}
}

func TestServeWS_MalformedFramesAreDropped(t *testing.T) {
	handler := &recordingHandler{}
	_, url := startHub(t, handler)

	conn := dial(t, url)

	// Junk, then an unnamed event, then a valid one: only the last dispatches.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"payload":{}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteJSON(map[string]any{"event": ws.EventGetReviews, "payload": "r-1"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	waitFor(t, func() bool { return handler.eventCount() == 1 }, "valid event dispatched")

	if got := handler.lastEvent().Name; got != ws.EventGetReviews {
		t.Fatalf("event name = %q, want %q", got, ws.EventGetReviews)
	}
}

func TestHub_BroadcastAfterShutdownDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	hub := ws.NewHub(testLogger(), 8)
	ran := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(ran)
	}()

	cancel()
	<-ran

	finished := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Broadcast(ws.EventNewReport, i)
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(3 * time.Second):
		t.Fatalf("Broadcast blocked after hub shutdown")
	}

	if hub.SessionCount() != 0 {
		t.Fatalf("session count = %d after shutdown", hub.SessionCount())
	}
}
