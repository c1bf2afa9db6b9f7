package events

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/casualjim/symposium/pkg/slogx"
)

// Sink receives discussion events. Publish must not block the caller for
// longer than a local, in-memory operation.
type Sink interface {
	Publish(ctx context.Context, evt Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, evt Event)

func (f SinkFunc) Publish(ctx context.Context, evt Event) {
	f(ctx, evt)
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, Event) {})

type logSink struct {
	logger *slog.Logger
}

// Log writes one structured record per event.
func Log(logger *slog.Logger) Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &logSink{logger: logger.With(slogx.LoggerName("events"))}
}

func (l *logSink) Publish(ctx context.Context, evt Event) {
	meta := evt.Meta()
	attrs := []slog.Attr{
		slog.String("event", string(evt.Kind())),
		slogx.Conversation(meta.ConversationID),
	}
	level := slog.LevelInfo

	switch e := evt.(type) {
	case DiscussionStarted:
		attrs = append(attrs, slog.Int("participants", len(e.Participants)))
	case RoundStarted:
		attrs = append(attrs, slog.Int("stage", e.Stage), slog.String("state", e.State))
	case MessageReceived:
		attrs = append(attrs,
			slogx.Participant(e.Message.Metadata.ParticipantID, e.Message.Metadata.ParticipantRole, e.Message.Provider),
			slog.Int("chars", len(e.Message.Content)),
		)
	case FirstSpeakerRetry:
		level = slog.LevelWarn
		attrs = append(attrs, slogx.Attempt(e.Attempt, e.MaxAttempts), slog.String("reason", e.Reason))
	case DiscussionCompleted:
		attrs = append(attrs, slog.Int("messages", e.MessageCount))
	case DiscussionError:
		level = slog.LevelError
		attrs = append(attrs, slog.String("error", e.Error))
	}
	l.logger.LogAttrs(ctx, level, "discussion event", attrs...)
}

// Channel delivers events on a buffered channel and drops them when the
// buffer is full.
type Channel struct {
	mu      sync.RWMutex
	ch      chan Event
	closed  bool
	dropped atomic.Int64
}

// NewChannel creates a Channel sink buffering up to size events.
func NewChannel(size int) *Channel {
	return &Channel{ch: make(chan Event, max(0, size))}
}

// C returns the receive side of the channel. It is closed by Close.
func (c *Channel) C() <-chan Event {
	return c.ch
}

func (c *Channel) Publish(_ context.Context, evt Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.dropped.Add(1)
		return
	}
	select {
	case c.ch <- evt:
	default:
		c.dropped.Add(1)
	}
}

// Dropped returns the number of events that could not be delivered.
func (c *Channel) Dropped() int64 {
	return c.dropped.Load()
}

func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

type composite []Sink

// Composite publishes every event to each sink in order.
func Composite(sinks ...Sink) Sink {
	flat := make(composite, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			flat = append(flat, s)
		}
	}
	return flat
}

func (c composite) Publish(ctx context.Context, evt Event) {
	for _, s := range c {
		s.Publish(ctx, evt)
	}
}

// Recorder keeps every event in memory. Consumers poll with Since using the
// number of events they have already seen as cursor.
type Recorder struct {
	mu     sync.RWMutex
	events []Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, evt Event) {
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
}

// Events returns a copy of everything recorded.
func (r *Recorder) Events() []Event {
	return r.Since(0)
}

// Since returns the events recorded after the first n.
func (r *Recorder) Since(n int) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n < 0 {
		n = 0
	}
	if n >= len(r.events) {
		return nil
	}
	return slices.Clone(r.events[n:])
}

// Len returns the number of events recorded so far.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}

// Kinds returns the kinds of the recorded events in order.
func (r *Recorder) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]Kind, len(r.events))
	for i, evt := range r.events {
		kinds[i] = evt.Kind()
	}
	return kinds
}

// ForConversation returns the events of one conversation.
func (r *Recorder) ForConversation(id string) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Event
	for _, evt := range r.events {
		if evt.Meta().ConversationID == id {
			out = append(out, evt)
		}
	}
	return out
}
