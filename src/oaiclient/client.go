// Package oaiclient implements the aisdk provider contract on top of the
// official OpenAI SDK. It serves OpenAI and any endpoint speaking the same
// chat completions protocol.
package oaiclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elee1766/booktutor/src/aisdk"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var _ aisdk.Provider = (*Client)(nil)

var ErrNoAPIKey = errors.New("openai: api key required")

// Config configures the OpenAI client.
type Config struct {
	APIKey     string
	BaseURL    string // optional, for proxies and compatible servers
	RetryCount int
	Timeout    time.Duration // applies to non-streaming requests
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is an aisdk.Provider backed by openai-go.
type Client struct {
	client  openai.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient creates a client. The SDK retries failed requests itself.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.RetryCount > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.RetryCount))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		client:  openai.NewClient(opts...),
		timeout: timeout,
		logger:  logger.With("component", "openai_client"),
	}, nil
}

// ProviderName is the configuration name of the OpenAI provider.
const ProviderName = "openai"

func (c *Client) Name() string { return ProviderName }

// GetModels lists the models of the endpoint.
func (c *Client) GetModels(ctx context.Context) ([]*aisdk.ModelInfo, error) {
	page, err := c.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	models := make([]*aisdk.ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		models = append(models, &aisdk.ModelInfo{
			ID:      m.ID,
			Name:    m.ID,
			Created: m.Created,
			OwnedBy: string(m.OwnedBy),
		})
	}
	return models, nil
}

// Model binds a model name. The name is not checked against the model list,
// since compatible servers often do not implement it.
func (c *Client) Model(ctx context.Context, modelName string) (aisdk.ModelClient, error) {
	if strings.TrimSpace(modelName) == "" {
		return nil, fmt.Errorf("model name is required")
	}
	return &ModelClient{
		client: c,
		model:  &aisdk.ModelInfo{ID: modelName, Name: modelName},
	}, nil
}
