package executor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/elee1766/booktutor/src/aisdk"
)

// EventType represents the type of conversation event
type EventType string

const (
	EventContent    EventType = "content"
	EventRefusal    EventType = "refusal"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
)

// DefaultEventBuffer is the channel capacity of a ChannelEventSink.
const DefaultEventBuffer = 100

// ConversationEvent is the base interface for all conversation events
type ConversationEvent interface {
	GetType() EventType
	GetTimestamp() time.Time
	GetConversationID() string
}

// BaseEvent contains common fields for all events
type BaseEvent struct {
	Type           EventType `json:"type"`
	Timestamp      time.Time `json:"timestamp"`
	ConversationID string    `json:"conversation_id"`
}

func (e BaseEvent) GetType() EventType        { return e.Type }
func (e BaseEvent) GetTimestamp() time.Time   { return e.Timestamp }
func (e BaseEvent) GetConversationID() string { return e.ConversationID }

// ContentEvent carries one streamed piece of assistant text.
type ContentEvent struct {
	BaseEvent
	Content string `json:"content"`
}

// RefusalEvent carries the whole refusal of one model response.
type RefusalEvent struct {
	BaseEvent
	Refusal string `json:"refusal"`
}

// ToolCallEvent announces a tool call before it runs.
type ToolCallEvent struct {
	BaseEvent
	ToolCall aisdk.ToolCall `json:"tool_call"`
}

// ToolResultEvent carries the result text of a tool call.
type ToolResultEvent struct {
	BaseEvent
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name,omitempty"`
	Content    string `json:"content"`
}

// EventSink is the interface for handling conversation events
type EventSink interface {
	// Send delivers an event. It blocks while the sink is full and fails
	// once the sink is closed or ctx is done.
	Send(ctx context.Context, event ConversationEvent) error

	// Close closes the event sink
	Close() error
}

// EventProcessor processes conversation events
type EventProcessor interface {
	// Process handles a single event
	Process(event ConversationEvent) error

	// Close cleans up any resources
	Close() error
}

// ChannelEventSink implements EventSink using a buffered channel drained by
// one goroutine into its processors, in order.
type ChannelEventSink struct {
	events     chan ConversationEvent
	processors []EventProcessor
	logger     *slog.Logger
	done       chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewChannelEventSink creates a new channel-based event sink
func NewChannelEventSink(bufferSize int, logger *slog.Logger, processors ...EventProcessor) *ChannelEventSink {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	sink := &ChannelEventSink{
		events:     make(chan ConversationEvent, bufferSize),
		processors: processors,
		logger:     logger.With("component", "event_sink"),
		done:       make(chan struct{}),
	}
	go sink.processEvents()
	return sink
}

// Send sends an event to the sink
func (s *ChannelEventSink) Send(ctx context.Context, event ConversationEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}
	select {
	case s.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events, waits until the buffered ones are
// processed and closes the processors.
func (s *ChannelEventSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	<-s.done

	var firstErr error
	for _, p := range s.processors {
		if err := p.Close(); err != nil {
			s.logger.Error("failed to close event processor", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// processEvents processes events from the channel
func (s *ChannelEventSink) processEvents() {
	defer close(s.done)
	for event := range s.events {
		for _, processor := range s.processors {
			if err := processor.Process(event); err != nil {
				s.logger.Error("failed to process event", "type", event.GetType(), "error", err)
			}
		}
	}
}
