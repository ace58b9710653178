// Package client is the Go counterpart of the map frontend: it keeps a
// session channel to the server, mirrors the report stream into a local
// cache and projects it through the dedup engine for rendering.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"quietmap/internal/dedup"
	"quietmap/internal/domain"
	"quietmap/internal/ws"
)

type Client struct {
	logger *slog.Logger
	conn   *websocket.Conn
	cache  *Cache
	engine *dedup.Engine

	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once

	handlerMu sync.RWMutex
	onReviews func([]domain.Review)
	onReview  func(domain.Review)
	onReject  func(ws.Rejection)
}

type Options struct {
	Logger *slog.Logger
	// BucketDegrees overrides the dedup bucket edge; zero keeps the default.
	BucketDegrees float64
}

// Dial connects to the server's /ws endpoint and starts consuming the event
// stream. The snapshot arrives asynchronously; Visible reflects it as soon
// as it lands.
func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &Client{
		logger: logger,
		conn:   conn,
		cache:  NewCache(),
		engine: dedup.New(opts.BucketDegrees),
		done:   make(chan struct{}),
	}

	go c.readLoop()

	return c, nil
}

func (c *Client) readLoop() {
	defer c.Close()

	for {
		var ev ws.Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("connection lost", slog.Any("error", err))
			}
			return
		}
		c.dispatch(ev)
	}
}

func (c *Client) dispatch(ev ws.Event) {
	switch ev.Name {
	case ws.EventInitialData:
		var reports []domain.Report
		if err := json.Unmarshal(ev.Payload, &reports); err != nil {
			c.logger.Warn("bad snapshot payload", slog.Any("error", err))
			return
		}
		c.cache.ReplaceAll(reports)

	case ws.EventNewReport:
		var report domain.Report
		if err := json.Unmarshal(ev.Payload, &report); err != nil {
			c.logger.Warn("bad report payload", slog.Any("error", err))
			return
		}
		c.cache.Append(report)

	case ws.EventMarkerDeleted:
		var id string
		if err := json.Unmarshal(ev.Payload, &id); err != nil {
			c.logger.Warn("bad deletion payload", slog.Any("error", err))
			return
		}
		c.cache.Remove(id)

	case ws.EventReviewsData:
		var reviews []domain.Review
		if err := json.Unmarshal(ev.Payload, &reviews); err != nil {
			c.logger.Warn("bad reviews payload", slog.Any("error", err))
			return
		}
		c.handlerMu.RLock()
		fn := c.onReviews
		c.handlerMu.RUnlock()
		if fn != nil {
			fn(reviews)
		}

	case ws.EventNewReview:
		var review domain.Review
		if err := json.Unmarshal(ev.Payload, &review); err != nil {
			c.logger.Warn("bad review payload", slog.Any("error", err))
			return
		}
		c.handlerMu.RLock()
		fn := c.onReview
		c.handlerMu.RUnlock()
		if fn != nil {
			fn(review)
		}

	case ws.EventSubmitRejected:
		var rejection ws.Rejection
		if err := json.Unmarshal(ev.Payload, &rejection); err != nil {
			return
		}
		c.logger.Warn("submission rejected",
			slog.String("event", rejection.Event),
			slog.String("reason", rejection.Reason),
		)
		c.handlerMu.RLock()
		fn := c.onReject
		c.handlerMu.RUnlock()
		if fn != nil {
			fn(rejection)
		}

	default:
		c.logger.Debug("unhandled event", slog.String("event", ev.Name))
	}
}

// Visible projects the cache through the dedup engine: one report per
// spatial bucket, filtered by mode.
func (c *Client) Visible(mode dedup.Mode) []domain.Report {
	return c.engine.Visible(c.cache.Reports(), mode)
}

// CachedReports exposes the raw, un-deduplicated cache.
func (c *Client) CachedReports() []domain.Report {
	return c.cache.Reports()
}

// OnReviews registers the handler for reviews_data responses.
func (c *Client) OnReviews(fn func([]domain.Review)) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.onReviews = fn
}

// OnReview registers the handler for new_review broadcasts.
func (c *Client) OnReview(fn func(domain.Review)) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.onReview = fn
}

// OnReject registers the handler for submit_rejected notices.
func (c *Client) OnReject(fn func(ws.Rejection)) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.onReject = fn
}

// SubmitReport sends one measurement. Nil coordinates are sent as-is; the
// server rejects them, which surfaces through OnReject.
func (c *Client) SubmitReport(level float64, coords *domain.Coordinates) error {
	return c.emit(ws.EventSubmitReport, domain.SubmitReportRequest{
		Level:       &level,
		Coordinates: coords,
	})
}

func (c *Client) DeleteReport(id string) error {
	return c.emit(ws.EventDeleteMarker, id)
}

func (c *Client) SubmitReview(req domain.SubmitReviewRequest) error {
	if req.Timestamp == 0 {
		req.Timestamp = time.Now().UnixMilli()
	}
	if !req.HasContent() {
		return fmt.Errorf("review needs text or tags")
	}
	return c.emit(ws.EventSubmitReview, req)
}

// RequestReviews asks for a report's review thread; the result arrives via
// OnReviews.
func (c *Client) RequestReviews(reportID string) error {
	return c.emit(ws.EventGetReviews, reportID)
}

func (c *Client) emit(event string, payload any) error {
	ev, err := ws.NewEvent(event, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.done:
		return fmt.Errorf("client closed")
	default:
	}

	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(ev)
}

func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		c.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
