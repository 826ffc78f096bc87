package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pmkisan/internal/platform/metrics"
)

const DefaultBufferSize = 256

// Publisher hands audit events to a Worker without blocking the caller.
// When the buffer is full the event is dropped and a warning logged.
type Publisher struct {
	events  chan Event
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type PublisherOption func(*Publisher)

func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) PublisherOption {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func WithClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) {
		p.now = now
	}
}

func NewPublisher(bufferSize int, opts ...PublisherOption) *Publisher {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	p := &Publisher{
		events: make(chan Event, bufferSize),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit fills in ID and Timestamp when missing and enqueues the event.
// It reports whether the event was accepted. A nil Publisher accepts nothing.
func (p *Publisher) Emit(ctx context.Context, event Event) bool {
	if p == nil {
		return false
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	select {
	case p.events <- event:
		return true
	default:
		p.metrics.IncrementAuditDropped()
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", string(event.Action),
			"request_id", event.RequestID,
		)
		return false
	}
}

// Events is the channel drained by a Worker.
func (p *Publisher) Events() <-chan Event {
	return p.events
}
