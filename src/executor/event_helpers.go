package executor

import (
	"context"
	"time"

	"github.com/elee1766/booktutor/src/aisdk"
)

// EventEmitter helps emit events with common fields. A nil sink discards
// every event.
type EventEmitter struct {
	sink           EventSink
	conversationID string
	now            func() time.Time
}

// NewEventEmitter creates a new event emitter
func NewEventEmitter(sink EventSink, conversationID string) *EventEmitter {
	return &EventEmitter{
		sink:           sink,
		conversationID: conversationID,
		now:            time.Now,
	}
}

func (e *EventEmitter) base(eventType EventType) BaseEvent {
	return BaseEvent{
		Type:           eventType,
		Timestamp:      e.now(),
		ConversationID: e.conversationID,
	}
}

func (e *EventEmitter) send(ctx context.Context, event ConversationEvent) error {
	if e.sink == nil {
		return nil
	}
	return e.sink.Send(ctx, event)
}

// EmitContent emits a streamed piece of assistant text
func (e *EventEmitter) EmitContent(ctx context.Context, content string) error {
	return e.send(ctx, &ContentEvent{BaseEvent: e.base(EventContent), Content: content})
}

// EmitRefusal emits the refusal of a model response
func (e *EventEmitter) EmitRefusal(ctx context.Context, refusal string) error {
	return e.send(ctx, &RefusalEvent{BaseEvent: e.base(EventRefusal), Refusal: refusal})
}

// EmitToolCall emits a tool call request
func (e *EventEmitter) EmitToolCall(ctx context.Context, call aisdk.ToolCall) error {
	return e.send(ctx, &ToolCallEvent{BaseEvent: e.base(EventToolCall), ToolCall: call})
}

// EmitToolResult emits the result message of a tool call
func (e *EventEmitter) EmitToolResult(ctx context.Context, result *aisdk.Message) error {
	return e.send(ctx, &ToolResultEvent{
		BaseEvent:  e.base(EventToolResult),
		ToolCallID: result.ToolCallID,
		Name:       result.Name,
		Content:    result.Text(),
	})
}
