package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/elee1766/booktutor/src/aisdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelEventSink(t *testing.T) {
	p := NewCollectingProcessor()
	sink := NewChannelEventSink(2, nil, p)
	emitter := NewEventEmitter(sink, "conv")

	ctx := context.Background()
	for _, s := range []string{"a", "b", "c", "d"} {
		require.NoError(t, emitter.EmitContent(ctx, s))
	}
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close(), "close is idempotent")

	assert.Equal(t, "abcd", p.Content())
	assert.True(t, p.Closed())
	assert.ErrorIs(t, emitter.EmitContent(ctx, "e"), ErrSinkClosed)
}

type blockingProcessor struct {
	release chan struct{}
}

func (b *blockingProcessor) Process(ConversationEvent) error {
	<-b.release
	return nil
}

func (b *blockingProcessor) Close() error { return nil }

func TestChannelEventSinkSendHonorsContext(t *testing.T) {
	block := &blockingProcessor{release: make(chan struct{})}
	sink := NewChannelEventSink(1, nil, block)
	emitter := NewEventEmitter(sink, "conv")

	// one event held by the processor, one buffered
	require.NoError(t, emitter.EmitContent(context.Background(), "1"))
	require.NoError(t, emitter.EmitContent(context.Background(), "2"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := emitter.EmitContent(ctx, "3")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(block.release)
	require.NoError(t, sink.Close())
}

func TestEventJSON(t *testing.T) {
	emitter := NewEventEmitter(nil, "conv")
	emitter.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }

	ev := &ToolCallEvent{
		BaseEvent: emitter.base(EventToolCall),
		ToolCall:  aisdk.ToolCall{ID: "c1", Type: "function", Function: aisdk.FunctionCall{Name: "BookJump", Arguments: `{}`}},
	}
	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "tool_call",
		"timestamp": "2025-01-01T00:00:00Z",
		"conversation_id": "conv",
		"tool_call": {"id": "c1", "type": "function", "function": {"name": "BookJump", "arguments": "{}"}}
	}`, string(raw))

	require.NoError(t, emitter.EmitContent(context.Background(), "dropped"), "nil sink discards events")
}

func TestSSEEventProcessor(t *testing.T) {
	rec := httptest.NewRecorder()
	p := NewSSEEventProcessor(rec)
	emitter := NewEventEmitter(nil, "conv")

	require.NoError(t, p.Process(&ContentEvent{BaseEvent: emitter.base(EventContent), Content: "hi"}))
	require.NoError(t, p.Process(&ToolResultEvent{BaseEvent: emitter.base(EventToolResult), ToolCallID: "c1", Content: "ok"}))

	frames := strings.Split(strings.TrimSpace(rec.Body.String()), "\n\n")
	require.Len(t, frames, 2)
	assert.True(t, strings.HasPrefix(frames[0], "event: content\ndata: {"))
	assert.Contains(t, frames[0], `"content":"hi"`)
	assert.True(t, strings.HasPrefix(frames[1], "event: tool_result\n"))
	assert.Contains(t, frames[1], `"tool_call_id":"c1"`)
	assert.True(t, rec.Flushed)
}

func TestConsoleEventProcessor(t *testing.T) {
	var out bytes.Buffer
	p := NewConsoleEventProcessor(ConsoleProcessorConfig{
		Output:            &out,
		ShowToolArguments: true,
		ShowToolResults:   true,
		MaxResultPreview:  20,
	})
	emitter := NewEventEmitter(nil, "conv")

	require.NoError(t, p.Process(&ContentEvent{BaseEvent: emitter.base(EventContent), Content: "Let me look"}))
	require.NoError(t, p.Process(&ToolCallEvent{
		BaseEvent: emitter.base(EventToolCall),
		ToolCall:  aisdk.ToolCall{ID: "c1", Function: aisdk.FunctionCall{Name: "GetChapterContent", Arguments: `{"chapter_number":"1."}`}},
	}))
	require.NoError(t, p.Process(&ToolResultEvent{
		BaseEvent:  emitter.base(EventToolResult),
		ToolCallID: "c1",
		Content:    strings.Repeat("chapter text ", 10),
	}))
	require.NoError(t, p.Process(&ContentEvent{BaseEvent: emitter.base(EventContent), Content: "Chapter one"}))
	require.NoError(t, p.Close())

	s := out.String()
	assert.True(t, strings.HasPrefix(s, "Let me look\n"), s)
	assert.Contains(t, s, "GetChapterContent")
	assert.Contains(t, s, `"chapter_number": "1."`)
	assert.Contains(t, s, "…")
	assert.NotContains(t, s, strings.Repeat("chapter text ", 3))
	assert.True(t, strings.HasSuffix(s, "Chapter one\n"))
}
