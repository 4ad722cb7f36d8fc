package orclient

import (
	"context"
	"fmt"

	"github.com/elee1766/booktutor/src/aisdk"
)

var _ aisdk.ModelClient = (*ModelClient)(nil)

// ModelClient sends every request to one OpenRouter model.
type ModelClient struct {
	client *Client
	model  *aisdk.ModelInfo
}

// Model binds the client to modelName, which must be listed by the API.
func (c *Client) Model(ctx context.Context, modelName string) (aisdk.ModelClient, error) {
	info, err := c.modelCache.GetModel(ctx, modelName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve model %s: %w", modelName, err)
	}
	return &ModelClient{client: c, model: info}, nil
}

func (mc *ModelClient) CreateChatCompletion(ctx context.Context, req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	return mc.client.createChatCompletion(ctx, mc.bind(req))
}

func (mc *ModelClient) CreateChatCompletionStream(ctx context.Context, req *aisdk.ChatCompletionRequest) (aisdk.StreamInterface, error) {
	return mc.client.createChatCompletionStream(ctx, mc.bind(req))
}

func (mc *ModelClient) GetModelInfo() *aisdk.ModelInfo {
	return mc.model
}

// bind returns a shallow copy of req addressed to the bound model.
func (mc *ModelClient) bind(req *aisdk.ChatCompletionRequest) *aisdk.ChatCompletionRequest {
	out := *req
	out.Model = mc.model.ID
	return &out
}
