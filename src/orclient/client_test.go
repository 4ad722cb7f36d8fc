package orclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/elee1766/booktutor/src/aisdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modelsBody = `{"data":[{"id":"openai/gpt-4o-mini","name":"GPT-4o mini","context_length":128000}]}`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		RetryCount: 3,
		RetryDelay: time.Millisecond,
	})
}

func TestStreamingChatCompletion(t *testing.T) {
	var got aisdk.ChatCompletionRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, modelsBody)
	})
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "text/event-stream")
		events := []string{
			": OPENROUTER PROCESSING",
			`data: {"choices":[{"index":0,"delta":{"content":"Hel"}}]}`,
			`data: {"choices":[{"index":0,"delta":{"content":"lo"}}]}`,
			`data: {"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"c1","function":{"name":"GetBookProgress","arguments":"{"}}]}}]}`,
			`data: {"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"}"}}]}}]}`,
			"data: [DONE]",
		}
		for _, e := range events {
			fmt.Fprintf(w, "%s\n\n", e)
		}
	})
	client := newTestClient(t, mux)

	mc, err := client.Model(context.Background(), "openai/gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, 128000, mc.GetModelInfo().ContextLength)

	stream, err := mc.CreateChatCompletionStream(context.Background(), &aisdk.ChatCompletionRequest{
		Messages: []*aisdk.Message{
			aisdk.NewUserMessage("hi"),
			{Role: aisdk.RoleAssistant, ToolCalls: []aisdk.ToolCall{{ID: "c0", Function: aisdk.FunctionCall{Name: "AddMemory"}}}},
			aisdk.NewToolMessage("c0", "AddMemory", "ok"),
		},
	})
	require.NoError(t, err)
	defer stream.Close()

	assembler := aisdk.NewToolCallAssembler(nil)
	var content string
	require.NoError(t, aisdk.StreamToCallback(stream, func(chunk *aisdk.StreamChunk) error {
		for _, choice := range chunk.Choices {
			content += choice.Delta.Content
			assembler.Merge(choice.Delta.ToolCalls...)
		}
		return nil
	}))
	assert.Equal(t, "Hello", content)
	calls := assembler.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "{}", calls[0].Function.Arguments)

	assert.True(t, got.Stream)
	assert.Equal(t, "openai/gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 3)
	require.Len(t, got.Messages[1].ToolCalls, 1)
	assert.Equal(t, "function", got.Messages[1].ToolCalls[0].Type)
	assert.Equal(t, "{}", got.Messages[1].ToolCalls[0].Function.Arguments)
}

func TestStreamErrorEvent(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"a\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"error\":{\"message\":\"provider overloaded\",\"code\":502}}\n\n")
	}))
	stream, err := client.createChatCompletionStream(context.Background(), &aisdk.ChatCompletionRequest{Model: "m"})
	require.NoError(t, err)
	defer stream.Close()

	chunk, err := stream.Read()
	require.NoError(t, err)
	assert.Equal(t, "a", chunk.Choices[0].Delta.Content)

	_, err = stream.Read()
	var streamErr *StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, "502", streamErr.Code)

	require.NoError(t, stream.Close())
	_, err = stream.Read()
	assert.ErrorIs(t, err, ErrStreamClosed)
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, `{"error":{"message":"upstream","code":"server_error"}}`, http.StatusBadGateway)
			return
		}
		io.WriteString(w, `{"id":"r1","choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`)
	}))

	resp, err := client.createChatCompletion(context.Background(), &aisdk.ChatCompletionRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Choices[0].Message.Content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("X-Request-ID", "req-1")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"No auth credentials found","code":401}}`)
	}))

	_, err := client.createChatCompletionStream(context.Background(), &aisdk.ChatCompletionRequest{Model: "m"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsAuthError())
	assert.Equal(t, "401", apiErr.Code)
	assert.Equal(t, "req-1", apiErr.RequestID)
	assert.Equal(t, int32(1), calls.Load())
}

func TestModelCache(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		io.WriteString(w, modelsBody)
	}))
	ctx := context.Background()

	_, err := client.Model(ctx, "openai/gpt-4o-mini")
	require.NoError(t, err)
	_, err = client.ListModels(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	_, err = client.Model(ctx, "nope/nope")
	assert.True(t, errors.Is(err, ErrModelNotFound))

	mc, err := client.Model(ctx, "openai/gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o-mini", mc.GetModelInfo().ID)
	assert.Equal(t, ProviderName, client.Name())

	client.modelCache.ClearCache()
	_, err = client.GetModels(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFormatRequestNamesGoogleToolResults(t *testing.T) {
	req := &aisdk.ChatCompletionRequest{
		Model:    "google/gemini-2.0-flash",
		Messages: []*aisdk.Message{{Role: aisdk.RoleTool, ToolCallID: "c1", Content: "x"}, nil},
	}
	out := formatRequest(req, true)
	require.Len(t, out.Messages, 1)
	assert.Equal(t, "tool_response", out.Messages[0].Name)
	assert.Empty(t, req.Messages[0].Name, "the caller's request is not modified")
}
