package client

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sampler estimates the current ambient level from the microphone. The
// audio capture itself lives outside this package; tests inject a fake.
type Sampler interface {
	Sample() (float64, error)
	// Release frees the capture resource. Called exactly once, on
	// completion or cancellation.
	Release()
}

// Measurer samples the ambient level on a fixed tick for a fixed window and
// reports the average. Cancelling mid-window releases the sampler and
// produces no result at all — a cancelled measurement is never submitted.
type Measurer struct {
	sampler  Sampler
	logger   *slog.Logger
	interval time.Duration
	window   time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

const (
	DefaultSampleInterval = 100 * time.Millisecond
	DefaultSampleWindow   = 4 * time.Second
)

func NewMeasurer(sampler Sampler, logger *slog.Logger, interval, window time.Duration) *Measurer {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	if window <= 0 {
		window = DefaultSampleWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Measurer{
		sampler:  sampler,
		logger:   logger,
		interval: interval,
		window:   window,
	}
}

// Start begins a measurement and returns immediately; onResult fires from
// the sampling goroutine once the window completes. A measurement already
// in progress makes Start a no-op returning false.
func (m *Measurer) Start(ctx context.Context, onResult func(level float64)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	go m.run(ctx, onResult)
	return true
}

// Cancel aborts an in-progress measurement. The sampler is released
// immediately and onResult never fires.
func (m *Measurer) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running && m.cancel != nil {
		m.cancel()
	}
}

func (m *Measurer) run(ctx context.Context, onResult func(level float64)) {
	defer func() {
		m.sampler.Release()
		m.mu.Lock()
		m.running = false
		m.cancel = nil
		m.mu.Unlock()
	}()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	deadline := time.NewTimer(m.window)
	defer deadline.Stop()

	var (
		sum   float64
		count int
	)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("measurement cancelled", slog.Int("samples", count))
			return

		case <-ticker.C:
			level, err := m.sampler.Sample()
			if err != nil {
				// Device or permission failure aborts the measurement
				// without submitting anything.
				m.logger.Warn("sampling failed", slog.Any("error", err))
				return
			}
			sum += level
			count++

		case <-deadline.C:
			if count == 0 {
				m.logger.Warn("measurement window closed without samples")
				return
			}
			final := sum / float64(count)
			m.logger.Info("measurement complete",
				slog.Int("samples", count),
				slog.Float64("level", final),
			)
			onResult(final)
			return
		}
	}
}
