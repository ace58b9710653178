package ws

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Handler receives session lifecycle and inbound events. Each session calls
// it from its own read goroutine, sequentially, so events from one client
// keep their causal order; events from different clients may interleave.
type Handler interface {
	OnConnect(ctx context.Context, s *Session)
	OnEvent(ctx context.Context, s *Session, ev Event)
	OnDisconnect(s *Session)
}

// Hub owns the registry of connected sessions. All registry mutation and
// fan-out happens on the single Run goroutine; everything else talks to it
// through channels, so no handler ever observes a half-updated registry.
type Hub struct {
	logger *slog.Logger

	register   chan *Session
	unregister chan *Session
	broadcast  chan Event

	sessions map[*Session]struct{}
	count    atomic.Int64
	done     chan struct{}

	sendBuffer int
}

func NewHub(logger *slog.Logger, sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	return &Hub{
		logger:     logger,
		register:   make(chan *Session),
		unregister: make(chan *Session),
		broadcast:  make(chan Event, 64),
		sessions:   make(map[*Session]struct{}),
		done:       make(chan struct{}),
		sendBuffer: sendBuffer,
	}
}

func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("hub stopping", slog.Int("sessions", len(h.sessions)))
			for s := range h.sessions {
				s.close()
				delete(h.sessions, s)
			}
			h.count.Store(0)
			return

		case s := <-h.register:
			h.sessions[s] = struct{}{}
			h.count.Store(int64(len(h.sessions)))
			h.logger.Info("session registered",
				slog.String("session_id", s.ID),
				slog.Int("sessions", len(h.sessions)),
			)

		case s := <-h.unregister:
			if _, ok := h.sessions[s]; ok {
				delete(h.sessions, s)
				s.close()
			}
			h.count.Store(int64(len(h.sessions)))
			h.logger.Info("session unregistered",
				slog.String("session_id", s.ID),
				slog.Int("sessions", len(h.sessions)),
			)

		case ev := <-h.broadcast:
			for s := range h.sessions {
				if !s.enqueue(ev) {
					// Session can't keep up; drop it rather than stall
					// the fan-out for everyone else.
					h.logger.Warn("dropping slow session", slog.String("session_id", s.ID))
					delete(h.sessions, s)
					s.close()
				}
			}
			h.count.Store(int64(len(h.sessions)))
		}
	}
}

// Broadcast delivers one event to every currently connected session,
// including the originator. A marshal failure is logged and dropped, never
// propagated: one bad payload must not break the broadcast set.
func (h *Hub) Broadcast(event string, payload any) {
	ev, err := NewEvent(event, payload)
	if err != nil {
		h.logger.Error("broadcast marshal failed",
			slog.String("event", event),
			slog.Any("error", err),
		)
		return
	}

	select {
	case h.broadcast <- ev:
	case <-h.done:
	}
}

func (h *Hub) SessionCount() int {
	return int(h.count.Load())
}
