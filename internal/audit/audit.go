package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// Event is a single session lifecycle record.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Type      string            `json:"type"`
	SessionID string            `json:"session_id,omitempty"`
	UserID    string            `json:"user_id,omitempty"`
	Role      string            `json:"role,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Error     string            `json:"error,omitempty"`
	Success   bool              `json:"success"`
}

// Sink consumes events on the dispatcher's worker goroutine.  A returned error
// is counted and logged; the event is not retried.
type Sink interface {
	Emit(ctx context.Context, event Event) (err error)
}

// NoOpSink discards events.
type NoOpSink struct{}

// type check
var _ Sink = NoOpSink{}

// Emit implements the [Sink] interface for NoOpSink.
func (NoOpSink) Emit(context.Context, Event) (err error) { return nil }

// ChannelSink hands events to an in-process subscriber.
type ChannelSink struct {
	events chan Event
}

// type check
var _ Sink = (*ChannelSink)(nil)

// NewChannelSink returns a sink with room for buffer events, at least one.
func NewChannelSink(buffer int) (s *ChannelSink) {
	return &ChannelSink{events: make(chan Event, max(buffer, 1))}
}

// Emit implements the [Sink] interface for *ChannelSink.  It waits for room
// in the channel or for ctx to be done.
func (s *ChannelSink) Emit(ctx context.Context, event Event) (err error) {
	select {
	case s.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() (events <-chan Event) {
	return s.events
}

// JSONWriterSink appends events to a writer as JSON lines.
type JSONWriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// type check
var _ Sink = (*JSONWriterSink)(nil)

// NewJSONWriterSink returns a sink writing to w.
func NewJSONWriterSink(w io.Writer) (s *JSONWriterSink) {
	return &JSONWriterSink{w: w}
}

// Emit implements the [Sink] interface for *JSONWriterSink.  Each event is
// written with a single Write call.
func (s *JSONWriterSink) Emit(_ context.Context, event Event) (err error) {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event.Type, err)
	}

	b = append(b, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err = s.w.Write(b); err != nil {
		return fmt.Errorf("writing %s event: %w", event.Type, err)
	}

	return nil
}
