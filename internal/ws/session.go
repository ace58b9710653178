package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Session is one connected client's duplex channel. Outbound events go
// through a buffered channel drained by the write pump; inbound events are
// read and dispatched sequentially by the read pump.
type Session struct {
	ID string

	hub    *Hub
	conn   *websocket.Conn
	out    chan Event
	done   chan struct{}
	logger *slog.Logger

	closeOnce sync.Once
}

func newSession(hub *Hub, conn *websocket.Conn, logger *slog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		ID:     id,
		hub:    hub,
		conn:   conn,
		out:    make(chan Event, hub.sendBuffer),
		done:   make(chan struct{}),
		logger: logger.With(slog.String("session_id", id)),
	}
}

// Send delivers one event to this session only. Delivery is at-most-once:
// if the session's buffer is full the event is dropped and the connection
// torn down.
func (s *Session) Send(event string, payload any) {
	ev, err := NewEvent(event, payload)
	if err != nil {
		s.logger.Error("send marshal failed",
			slog.String("event", event),
			slog.Any("error", err),
		)
		return
	}
	if !s.enqueue(ev) {
		s.logger.Warn("send buffer full, disconnecting", slog.String("event", event))
		s.hub.Unregister(s)
	}
}

func (s *Session) enqueue(ev Event) bool {
	select {
	case <-s.done:
		return false
	case s.out <- ev:
		return true
	default:
		return false
	}
}

// close signals both pumps to stop. The out channel is never closed — other
// goroutines may still be enqueueing — the done channel is the shutdown
// signal instead.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *Session) readPump(ctx context.Context, handler Handler) {
	defer func() {
		handler.OnDisconnect(s)
		s.hub.Unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	handler.OnConnect(ctx, s)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("session read failed", slog.Any("error", err))
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			s.logger.Warn("malformed event dropped", slog.Any("error", err))
			continue
		}
		if ev.Name == "" {
			s.logger.Warn("event without a name dropped")
			continue
		}

		handler.OnEvent(ctx, s, ev)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case ev := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(ev); err != nil {
				s.logger.Warn("session write failed", slog.Any("error", err))
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Unregister asks the hub loop to drop the session. Safe to call more than
// once and after hub shutdown.
func (h *Hub) Unregister(s *Session) {
	select {
	case h.unregister <- s:
	case <-h.done:
	}
}

// ServeWS upgrades an HTTP request and attaches the resulting session to the
// hub. The handler runs on the session's read goroutine; ctx outlives the
// HTTP handler so in-flight storage calls survive the upgrade returning.
func ServeWS(ctx context.Context, hub *Hub, handler Handler, logger *slog.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// Browser clients connect cross-origin during development; access
		// control is not this layer's concern.
		CheckOrigin: func(*http.Request) bool { return true },
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("websocket upgrade failed", slog.Any("error", err))
			return
		}

		s := newSession(hub, conn, logger)

		select {
		case hub.register <- s:
		case <-hub.done:
			conn.Close()
			return
		}

		go s.writePump()
		go s.readPump(ctx, handler)
	}
}
