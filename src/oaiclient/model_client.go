package oaiclient

import (
	"context"
	"fmt"

	"github.com/elee1766/booktutor/src/aisdk"
)

var _ aisdk.ModelClient = (*ModelClient)(nil)

// ModelClient is a Client bound to one model.
type ModelClient struct {
	client *Client
	model  *aisdk.ModelInfo
}

func (mc *ModelClient) CreateChatCompletion(ctx context.Context, req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	req.Model = mc.model.ID
	params, err := buildParams(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, mc.client.timeout)
	defer cancel()

	mc.client.logger.Debug("sending chat completion request", "model", req.Model, "messages", len(req.Messages))
	completion, err := mc.client.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	return convertCompletion(completion), nil
}

func (mc *ModelClient) CreateChatCompletionStream(ctx context.Context, req *aisdk.ChatCompletionRequest) (aisdk.StreamInterface, error) {
	req.Model = mc.model.ID
	params, err := buildParams(req)
	if err != nil {
		return nil, err
	}
	mc.client.logger.Debug("sending streaming chat completion request", "model", req.Model, "messages", len(req.Messages))
	stream := mc.client.client.Chat.Completions.NewStreaming(ctx, params)
	// request errors surface on the first Next
	if err := stream.Err(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("chat completion stream failed: %w", err)
	}
	return &chunkStream{stream: stream}, nil
}

func (mc *ModelClient) GetModelInfo() *aisdk.ModelInfo {
	return mc.model
}
