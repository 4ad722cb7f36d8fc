package orclient

import (
	"log/slog"
	"net/http"
	"time"
)

// Config holds configuration for the OpenRouter client
type Config struct {
	APIKey     string        // OpenRouter API key
	BaseURL    string        // Base URL for OpenRouter API
	Logger     *slog.Logger  // Logger for debugging
	Timeout    time.Duration // Timeout for non-streaming requests
	RetryCount int           // Attempts for requests failing with a retryable error
	RetryDelay time.Duration // Base delay between attempts
	SiteURL    string        // Site URL for ranking
	SiteName   string        // Site name for ranking
	ModelTTL   time.Duration // How long model metadata is cached
	HTTPClient *http.Client
}
