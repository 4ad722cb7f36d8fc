package orclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elee1766/booktutor/src/aisdk"
)

type modelsResponse struct {
	Data []*aisdk.ModelInfo `json:"data"`
}

// ListModels returns the models of the API, served from the model cache.
func (c *Client) ListModels(ctx context.Context) ([]*aisdk.ModelInfo, error) {
	return c.modelCache.GetModelList(ctx)
}

func (c *Client) listModelsUncached(ctx context.Context) ([]*aisdk.ModelInfo, error) {
	resp, err := c.doRequestWithRetry(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer resp.Body.Close()

	var body modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode model list: %w", err)
	}
	c.logger.Debug("fetched model list", "count", len(body.Data))
	return body.Data, nil
}
