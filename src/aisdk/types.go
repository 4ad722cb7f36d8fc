// Package aisdk holds the chat-completion wire types shared by the tutor, its
// tools and the model providers.
package aisdk

import (
	"log/slog"
	"time"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message represents a single message in a conversation.
//
// User messages may carry Parts instead of (or in addition to) Content; on
// the wire they are sent as an OpenAI content array. See content.go.
type Message struct {
	Role    string        `json:"role"`
	Content string        `json:"content"`
	Parts   []ContentPart `json:"-"`
	// Refusal is set on assistant messages when the model declined to answer.
	Refusal string `json:"refusal,omitempty"`
	// Name is required for tool responses to identify the function
	Name string `json:"name,omitempty"`
	// ToolCallID is required for tool responses to reference the original call
	ToolCallID string `json:"tool_call_id,omitempty"`
	// ToolCalls contains function calls requested by the assistant.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall represents a function call request from the model (OpenAI format).
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"` // Always "function" for now
	Function FunctionCall `json:"function"`
}

// FunctionCall contains the function name and arguments.
//
// Arguments is the raw JSON text produced by the model. It is kept as a
// string because models do emit invalid JSON and that must survive a round
// trip so the tool can report the parse error.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolResponse is what a tool hands back to the registry.
type ToolResponse struct {
	Type     string `json:"type"`
	Content  []byte `json:"content"`
	Metadata string `json:"metadata,omitempty"`
	IsError  bool   `json:"is_error"`
}

// ChatCompletionRequest represents a request to the chat completions endpoint.
type ChatCompletionRequest struct {
	Model            string         `json:"model"`
	Messages         []*Message     `json:"messages"`
	Temperature      *float64       `json:"temperature,omitempty"`
	MaxTokens        *int           `json:"max_tokens,omitempty"`
	TopP             *float64       `json:"top_p,omitempty"`
	FrequencyPenalty *float64       `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64       `json:"presence_penalty,omitempty"`
	Stream           bool           `json:"stream,omitempty"`
	Stop             []string       `json:"stop,omitempty"`
	Tools            []*ChatTool    `json:"tools,omitempty"`
	ToolChoice       string         `json:"tool_choice,omitempty"` // "auto", "none", or specific tool
	User             string         `json:"user,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// ChatCompletionResponse represents a response from the chat completions endpoint.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice represents a single completion choice.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
	Delta        *Delta  `json:"delta,omitempty"` // For streaming
}

// Delta is the incremental part of a streamed choice.
type Delta struct {
	Role      string          `json:"role,omitempty"`
	Content   string          `json:"content,omitempty"`
	Refusal   string          `json:"refusal,omitempty"`
	ToolCalls []ToolCallDelta `json:"tool_calls,omitempty"`
}

// ToolCallDelta is one streamed fragment of a tool call. Index names the slot
// the fragment belongs to. The pointer fields separate "absent" from "empty".
type ToolCallDelta struct {
	Index    int               `json:"index"`
	ID       *string           `json:"id,omitempty"`
	Type     string            `json:"type,omitempty"`
	Function FunctionCallDelta `json:"function"`
}

// FunctionCallDelta is the function part of a ToolCallDelta.
type FunctionCallDelta struct {
	Name      *string `json:"name,omitempty"`
	Arguments *string `json:"arguments,omitempty"`
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamChunk represents a single chunk in a streaming response.
type StreamChunk struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Error represents an API error response.
type Error struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

// ErrorResponse wraps an error from the API.
type ErrorResponse struct {
	Error Error `json:"error"`
}

// ClientConfig holds the configuration for AI clients.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	RetryCount int
	RetryDelay time.Duration
	Timeout    time.Duration
	// Optional headers for ranking/identification
	SiteURL  string
	SiteName string
	// Optional logger
	Logger *slog.Logger
}

// StreamInterface defines the interface for reading streaming responses.
type StreamInterface interface {
	// Read reads the next chunk from the stream. It returns io.EOF once the
	// stream is exhausted.
	Read() (*StreamChunk, error)

	// Close closes the stream.
	Close() error
}

// ModelInfo describes a model offered by a provider.
type ModelInfo struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Created       int64         `json:"created,omitempty"`
	Description   string        `json:"description"`
	ContextLength int           `json:"context_length"`
	Architecture  *Architecture `json:"architecture,omitempty"`
	Pricing       *Pricing      `json:"pricing,omitempty"`
	TopProvider   *TopProvider  `json:"top_provider,omitempty"`
	OwnedBy       string        `json:"owned_by,omitempty"`
}

// Pricing contains model pricing information from OpenRouter
type Pricing struct {
	Prompt     string `json:"prompt"`          // Cost per input token
	Completion string `json:"completion"`      // Cost per output token
	Image      string `json:"image,omitempty"` // Cost per image input
}

// Architecture contains model architecture information from OpenRouter
type Architecture struct {
	InputModalities  []string `json:"input_modalities,omitempty"`  // e.g., ["text", "image"]
	OutputModalities []string `json:"output_modalities,omitempty"` // e.g., ["text"]
	Tokenizer        string   `json:"tokenizer,omitempty"`
}

// TopProvider contains provider-specific information from OpenRouter
type TopProvider struct {
	ContextLength       int  `json:"context_length,omitempty"`
	MaxCompletionTokens int  `json:"max_completion_tokens,omitempty"`
	IsModerated         bool `json:"is_moderated,omitempty"`
}

// SupportsImages reports whether the model accepts image input.
func (m *ModelInfo) SupportsImages() bool {
	if m == nil || m.Architecture == nil {
		return false
	}
	for _, mod := range m.Architecture.InputModalities {
		if mod == "image" {
			return true
		}
	}
	return false
}
