package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/loomhq/loom/internal/domain"
)

// SlogSink logs every lifecycle event through a structured logger.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger.With("component", "event-sink")}
}

func (s *SlogSink) Publish(_ context.Context, event domain.Event) {
	switch e := event.(type) {
	case domain.NodeFailedEvent:
		s.logger.Warn("workflow event", "event", e.EventType(), "execution_id", e.ExecutionID, "node_id", e.NodeID, "status", e.Status, "error", e.Error)
	case domain.WorkflowFailedEvent:
		s.logger.Error("workflow event", "event", e.EventType(), "execution_id", e.ExecutionID, "failed_node", e.FailedNode, "error", e.Error)
	default:
		s.logger.Info("workflow event", "event", event.EventType())
	}
}

// ChannelSink forwards events to a buffered channel for an external transport
// (SSE, WebSocket, log shipper) to drain. When the buffer is full the event
// is dropped rather than stalling the scheduler.
type ChannelSink struct {
	ch     chan domain.Event
	logger *slog.Logger
}

func NewChannelSink(buffer int, logger *slog.Logger) *ChannelSink {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChannelSink{
		ch:     make(chan domain.Event, buffer),
		logger: logger.With("component", "event-sink"),
	}
}

func (s *ChannelSink) Publish(_ context.Context, event domain.Event) {
	select {
	case s.ch <- event:
	default:
		s.logger.Warn("event buffer full, dropping event", "event", event.EventType())
	}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan domain.Event {
	return s.ch
}

// Close closes the event channel. Publish must not be called afterwards.
func (s *ChannelSink) Close() {
	close(s.ch)
}

// CaptureSink records every published event in order; used by tests to assert
// lifecycle sequencing.
type CaptureSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func NewCaptureSink() *CaptureSink {
	return &CaptureSink{}
}

func (s *CaptureSink) Publish(_ context.Context, event domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *CaptureSink) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Types returns just the event type names, in publication order.
func (s *CaptureSink) Types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.EventType()
	}
	return out
}

// NoopSink discards all events; the engine default when no sink is injected.
type NoopSink struct{}

func (NoopSink) Publish(context.Context, domain.Event) {}
