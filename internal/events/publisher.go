package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// ErrBufferFull is returned by Buffered when the worker is not keeping up.
var ErrBufferFull = errors.New("event buffer full")

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards events. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Buffered queues events for a Worker so request handling never waits on
// the broker.
type Buffered struct {
	inbox chan Event
}

func NewBuffered(size int) *Buffered {
	return &Buffered{inbox: make(chan Event, size)}
}

func (b *Buffered) Publish(_ context.Context, event Event) error {
	select {
	case b.inbox <- event:
		return nil
	default:
		return ErrBufferFull
	}
}

// Worker drains a Buffered queue into a downstream publisher.
type Worker struct {
	inbox      <-chan Event
	downstream Publisher
	logger     *slog.Logger
}

func NewWorker(buffer *Buffered, downstream Publisher, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Worker{inbox: buffer.inbox, downstream: downstream, logger: logger}
}

// Run publishes until ctx is done, then flushes whatever is already queued.
// Publish failures are logged and the event dropped.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return nil
		case event := <-w.inbox:
			w.publish(ctx, event)
		}
	}
}

func (w *Worker) drain() {
	ctx := context.Background()
	for {
		select {
		case event := <-w.inbox:
			w.publish(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) publish(ctx context.Context, event Event) {
	if err := w.downstream.Publish(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "failed to publish event",
			"event_id", event.ID.String(),
			"event_type", event.Type,
			"object_id", event.ObjectID,
			"error", err,
		)
	}
}
