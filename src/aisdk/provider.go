package aisdk

import (
	"context"
)

// Provider is a chat completion backend a tutor can be configured with.
type Provider interface {
	// Name is the configuration name of the provider, e.g. "openrouter".
	Name() string
	GetModels(ctx context.Context) ([]*ModelInfo, error)
	Model(ctx context.Context, modelName string) (ModelClient, error)
}

// ModelClient sends requests to one model. Implementations set the model of
// the request themselves.
type ModelClient interface {
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)
	CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest) (StreamInterface, error)
	GetModelInfo() *ModelInfo
}
