package aisdk

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func s(v string) *string { return &v }

func frag(index int, id, name, args *string) ToolCallDelta {
	return ToolCallDelta{
		Index:    index,
		ID:       id,
		Function: FunctionCallDelta{Name: name, Arguments: args},
	}
}

func sortedCalls(calls []ToolCall) []ToolCall {
	sort.Slice(calls, func(i, j int) bool { return calls[i].ID < calls[j].ID })
	return calls
}

func TestToolCallAssembler(t *testing.T) {
	tests := []struct {
		name      string
		fragments []ToolCallDelta
		want      []ToolCall
	}{
		{
			name: "single call across fragments",
			fragments: []ToolCallDelta{
				frag(0, s("c1"), s("AddMemory"), s(`{"me`)),
				frag(0, nil, nil, s(`mory":"x"}`)),
			},
			want: []ToolCall{
				{ID: "c1", Type: "function", Function: FunctionCall{Name: "AddMemory", Arguments: `{"memory":"x"}`}},
			},
		},
		{
			name: "two slots interleaved",
			fragments: []ToolCallDelta{
				frag(0, s("a"), s("A"), s("{")),
				frag(1, s("b"), s("B"), s("{")),
				frag(1, nil, nil, s("}")),
				frag(0, nil, nil, s("}")),
			},
			want: []ToolCall{
				{ID: "a", Type: "function", Function: FunctionCall{Name: "A", Arguments: "{}"}},
				{ID: "b", Type: "function", Function: FunctionCall{Name: "B", Arguments: "{}"}},
			},
		},
		{
			name: "new slot without name is discarded",
			fragments: []ToolCallDelta{
				frag(0, s("a"), nil, s("{")),
				frag(0, nil, nil, s("}")),
			},
			want: nil,
		},
		{
			name: "new slot without arguments is discarded",
			fragments: []ToolCallDelta{
				frag(2, s("a"), s("A"), nil),
			},
			want: nil,
		},
		{
			name: "empty arguments fragment opens the slot",
			fragments: []ToolCallDelta{
				frag(0, s("a"), s("A"), s("")),
				frag(0, nil, nil, s(`{"x":1}`)),
			},
			want: []ToolCall{
				{ID: "a", Type: "function", Function: FunctionCall{Name: "A", Arguments: `{"x":1}`}},
			},
		},
		{
			name: "later id and name on known slot are ignored",
			fragments: []ToolCallDelta{
				frag(0, s("a"), s("A"), s("{")),
				frag(0, s("other"), s("Other"), s("}")),
			},
			want: []ToolCall{
				{ID: "a", Type: "function", Function: FunctionCall{Name: "A", Arguments: "{}"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewToolCallAssembler(nil)
			a.Merge(tt.fragments...)
			got := a.ToolCalls()
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, sortedCalls(got))
		})
	}
}

func TestToolCallAssemblerDrains(t *testing.T) {
	a := NewToolCallAssembler(nil)
	a.Merge(frag(0, s("a"), s("A"), s("{}")))
	require.Equal(t, 1, a.Len())

	calls := a.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, 0, a.Len())
	assert.Empty(t, a.ToolCalls())

	// the slot index may be reused after draining
	a.Merge(frag(0, s("b"), s("B"), s("{}")))
	calls = a.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "b", calls[0].ID)
}

func TestResponseToChunk(t *testing.T) {
	resp := &ChatCompletionResponse{
		ID:    "r1",
		Model: "m",
		Choices: []Choice{{
			Message: Message{
				Role:    RoleAssistant,
				Content: "hello",
				ToolCalls: []ToolCall{
					{ID: "c1", Type: "function", Function: FunctionCall{Name: "A", Arguments: `{"a":1}`}},
					{ID: "c2", Type: "function", Function: FunctionCall{Name: "B", Arguments: ""}},
				},
			},
			FinishReason: "tool_calls",
		}},
	}

	chunk := ResponseToChunk(resp)
	require.Len(t, chunk.Choices, 1)
	delta := chunk.Choices[0].Delta
	require.NotNil(t, delta)
	assert.Equal(t, "hello", delta.Content)

	a := NewToolCallAssembler(nil)
	a.Merge(delta.ToolCalls...)
	calls := sortedCalls(a.ToolCalls())
	require.Len(t, calls, 2)
	assert.Equal(t, `{"a":1}`, calls[0].Function.Arguments)
	assert.Equal(t, "B", calls[1].Function.Name)
}

func TestCollectStreamContent(t *testing.T) {
	stream := NewChunkStream(
		&StreamChunk{Choices: []Choice{{Delta: &Delta{Content: "Hel"}}}},
		&StreamChunk{Choices: []Choice{{Delta: &Delta{Content: "lo"}}}},
	)
	got, err := CollectStreamContent(stream)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got)
}
