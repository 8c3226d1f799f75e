package agent

import (
	"context"

	"github.com/orito-ai/orito-core/pkg/models"
)

// EventSink receives an agent's events in emission order (spec §4.9,
// §5: "Event emission from a single agent is FIFO to the orchestrator").
// Implementations must preserve that order and must not silently drop
// events — spec §8 testable property 1 requires every terminal event to
// actually reach the consumer.
type EventSink interface {
	Emit(ctx context.Context, event models.Event)
}

// ChanSink delivers events to a buffered channel, blocking (rather than
// dropping) when the channel is full, so ordering and delivery are
// preserved under backpressure. It unblocks early only if ctx is done.
type ChanSink struct {
	ch chan<- models.Event
}

// NewChanSink wraps ch. The channel should be buffered by the caller;
// the orchestrator is expected to drain it promptly.
func NewChanSink(ch chan<- models.Event) *ChanSink {
	return &ChanSink{ch: ch}
}

func (s *ChanSink) Emit(ctx context.Context, event models.Event) {
	select {
	case s.ch <- event:
	case <-ctx.Done():
	}
}

// NopSink discards every event; useful for tests that don't assert on
// the event stream.
type NopSink struct{}

func (NopSink) Emit(context.Context, models.Event) {}

// RecordingSink accumulates every event it receives, in order; useful for
// tests that assert on the emitted sequence.
type RecordingSink struct {
	Events []models.Event
}

func (s *RecordingSink) Emit(_ context.Context, event models.Event) {
	s.Events = append(s.Events, event)
}
