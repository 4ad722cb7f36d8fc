package orclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elee1766/booktutor/src/aisdk"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultTimeout = 2 * time.Minute
)

var _ aisdk.Provider = (*Client)(nil)

// Client is the OpenRouter API client.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	modelCache *ModelCache
}

// NewClient creates a new OpenRouter API client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.RetryCount <= 0 {
		config.RetryCount = 3
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = time.Second
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.ModelTTL == 0 {
		config.ModelTTL = time.Hour
	}

	// streams outlive any fixed client timeout, so deadlines come from ctx
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "openrouter_client")

	client := &Client{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
	}
	client.modelCache = NewModelCache(client, config.ModelTTL)
	return client
}

// createChatCompletion sends a non-streaming chat completion request.
func (c *Client) createChatCompletion(ctx context.Context, req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	logger := c.logger.With("method", "CreateChatCompletion", "model", req.Model)
	logger.Debug("sending chat completion request", "messages", len(req.Messages), "tools", len(req.Tools))

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	formatted := formatRequest(req, false)
	body, err := json.Marshal(formatted)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequestWithRetry(ctx, http.MethodPost, "/chat/completions", body)
	if err != nil {
		logger.Error("request failed", "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	var result aisdk.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("empty response from API")
	}

	logger.Info("chat completion successful",
		"usage_prompt", result.Usage.PromptTokens,
		"usage_total", result.Usage.TotalTokens)
	return &result, nil
}

// createChatCompletionStream starts a streaming chat completion. The
// returned stream must be closed by the caller.
func (c *Client) createChatCompletionStream(ctx context.Context, req *aisdk.ChatCompletionRequest) (aisdk.StreamInterface, error) {
	logger := c.logger.With("method", "CreateChatCompletionStream", "model", req.Model)
	logger.Debug("sending streaming chat completion request", "messages", len(req.Messages), "tools", len(req.Tools))

	formatted := formatRequest(req, true)
	body, err := json.Marshal(formatted)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequestWithRetry(ctx, http.MethodPost, "/chat/completions", body)
	if err != nil {
		logger.Error("request failed", "error", err)
		return nil, err
	}
	return newSSEStream(resp.Body, logger), nil
}

// newRequest creates a new HTTP request with the appropriate headers.
func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	// Optional headers for ranking
	if c.config.SiteURL != "" {
		req.Header.Set("HTTP-Referer", c.config.SiteURL)
	}
	if c.config.SiteName != "" {
		req.Header.Set("X-Title", c.config.SiteName)
	}
	return req, nil
}

// doRequestWithRetry performs an HTTP request, retrying transport failures
// and retryable API errors. A non-2xx response is returned as *APIError.
func (c *Client) doRequestWithRetry(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	logger := c.logger.With("method", "doRequestWithRetry", "path", path)

	var lastErr error
	for attempt := 1; attempt <= c.config.RetryCount; attempt++ {
		req, err := c.newRequest(ctx, method, path, body)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
			}
			lastErr = err
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil
		default:
			lastErr = c.handleError(resp)
			resp.Body.Close()
			if !IsRetryable(lastErr) {
				return nil, lastErr
			}
		}

		if attempt == c.config.RetryCount {
			break
		}
		delay := GetRetryDelay(lastErr, attempt, c.config.RetryDelay)
		logger.Debug("request attempt failed, retrying", "attempt", attempt, "delay", delay, "error", lastErr)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	logger.Error("request failed after all retries", "retry_count", c.config.RetryCount, "error", lastErr)
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.config.RetryCount, lastErr)
}

// handleError processes error responses from the API.
func (c *Client) handleError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read error response: %w", err)
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
		RequestID:  resp.Header.Get("X-Request-ID"),
	}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		apiErr.Type = errResp.Error.Type
		apiErr.Message = errResp.Error.Message
		apiErr.Param = errResp.Error.Param
		apiErr.Details = errResp.Error.Metadata
		if errResp.Error.Code != nil {
			apiErr.Code = fmt.Sprint(errResp.Error.Code)
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if apiErr.Details == nil {
				apiErr.Details = make(map[string]any)
			}
			apiErr.Details["retry_after"] = retryAfter
		}
	}
	return apiErr
}

// ProviderName is the configuration name of the OpenRouter provider.
const ProviderName = "openrouter"

func (c *Client) Name() string { return ProviderName }

// GetModels implements aisdk.Provider.
func (c *Client) GetModels(ctx context.Context) ([]*aisdk.ModelInfo, error) {
	return c.ListModels(ctx)
}

// formatRequest returns a copy of req with the quirks of the upstream
// providers smoothed over.
func formatRequest(req *aisdk.ChatCompletionRequest, stream bool) *aisdk.ChatCompletionRequest {
	out := *req
	out.Stream = stream
	google := detectProvider(req.Model) == "google"

	out.Messages = make([]*aisdk.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		if msg == nil {
			continue
		}
		m := *msg
		if len(m.ToolCalls) > 0 {
			m.ToolCalls = make([]aisdk.ToolCall, len(msg.ToolCalls))
			for i, tc := range msg.ToolCalls {
				if tc.Type == "" {
					tc.Type = "function"
				}
				if strings.TrimSpace(tc.Function.Arguments) == "" {
					tc.Function.Arguments = "{}"
				}
				m.ToolCalls[i] = tc
			}
		}
		// Google rejects tool results without a name
		if google && m.Role == aisdk.RoleTool && m.Name == "" {
			m.Name = "tool_response"
		}
		out.Messages = append(out.Messages, &m)
	}
	return &out
}

// detectProvider detects the provider from the model name
func detectProvider(model string) string {
	switch {
	case strings.HasPrefix(model, "anthropic/") || strings.HasPrefix(model, "claude"):
		return "anthropic"
	case strings.HasPrefix(model, "google/") || strings.HasPrefix(model, "gemini"):
		return "google"
	case strings.HasPrefix(model, "openai/") || strings.HasPrefix(model, "gpt"):
		return "openai"
	}
	return "unknown"
}
