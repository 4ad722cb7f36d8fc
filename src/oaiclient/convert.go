package oaiclient

import (
	"fmt"

	"github.com/elee1766/booktutor/src/aisdk"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

func buildParams(req *aisdk.ChatCompletionRequest) (openai.ChatCompletionNewParams, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxCompletionTokens = openai.Int(int64(*req.MaxTokens))
	}
	if req.TopP != nil {
		params.TopP = openai.Float(*req.TopP)
	}
	if req.User != "" {
		params.User = openai.String(req.User)
	}

	for _, msg := range req.Messages {
		if msg == nil {
			continue
		}
		converted, err := convertMessage(msg)
		if err != nil {
			return params, err
		}
		params.Messages = append(params.Messages, converted)
	}

	for _, tool := range req.Tools {
		parameters, err := tool.Function.ParametersMap()
		if err != nil {
			return params, fmt.Errorf("failed to encode parameters of tool %s: %w", tool.Function.Name, err)
		}
		p := openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:       tool.Function.Name,
				Parameters: shared.FunctionParameters(parameters),
			},
		}
		if tool.Function.Description != "" {
			p.Function.Description = openai.String(tool.Function.Description)
		}
		params.Tools = append(params.Tools, p)
	}
	return params, nil
}

func convertMessage(msg *aisdk.Message) (openai.ChatCompletionMessageParamUnion, error) {
	switch msg.Role {
	case aisdk.RoleSystem:
		return openai.SystemMessage(msg.Text()), nil
	case aisdk.RoleUser:
		if len(msg.Parts) == 0 {
			return openai.UserMessage(msg.Content), nil
		}
		parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(msg.Parts)+1)
		if msg.Content != "" {
			parts = append(parts, openai.TextContentPart(msg.Content))
		}
		for _, part := range msg.Parts {
			switch part.Type {
			case aisdk.ContentTypeImageURL:
				if part.ImageURL == nil {
					continue
				}
				parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: part.ImageURL.URL,
				}))
			default:
				parts = append(parts, openai.TextContentPart(part.Text))
			}
		}
		return openai.UserMessage(parts), nil
	case aisdk.RoleAssistant:
		p := openai.ChatCompletionAssistantMessageParam{}
		if msg.Content != "" {
			p.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
				OfString: openai.String(msg.Content),
			}
		}
		if msg.Refusal != "" {
			p.Refusal = openai.String(msg.Refusal)
		}
		for _, call := range msg.ToolCalls {
			args := call.Function.Arguments
			if args == "" {
				args = "{}"
			}
			p.ToolCalls = append(p.ToolCalls, openai.ChatCompletionMessageToolCallParam{
				ID: call.ID,
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      call.Function.Name,
					Arguments: args,
				},
			})
		}
		return openai.ChatCompletionMessageParamUnion{OfAssistant: &p}, nil
	case aisdk.RoleTool:
		return openai.ToolMessage(msg.Text(), msg.ToolCallID), nil
	}
	return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("unsupported message role %q", msg.Role)
}

func convertCompletion(c *openai.ChatCompletion) *aisdk.ChatCompletionResponse {
	resp := &aisdk.ChatCompletionResponse{
		ID:      c.ID,
		Object:  string(c.Object),
		Created: c.Created,
		Model:   c.Model,
		Usage: aisdk.Usage{
			PromptTokens:     int(c.Usage.PromptTokens),
			CompletionTokens: int(c.Usage.CompletionTokens),
			TotalTokens:      int(c.Usage.TotalTokens),
		},
	}
	for _, choice := range c.Choices {
		msg := aisdk.Message{
			Role:    aisdk.RoleAssistant,
			Content: choice.Message.Content,
			Refusal: choice.Message.Refusal,
		}
		for _, tc := range choice.Message.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, aisdk.ToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: aisdk.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		resp.Choices = append(resp.Choices, aisdk.Choice{
			Index:        int(choice.Index),
			Message:      msg,
			FinishReason: string(choice.FinishReason),
		})
	}
	return resp
}

func convertChunk(chunk openai.ChatCompletionChunk) *aisdk.StreamChunk {
	out := &aisdk.StreamChunk{
		ID:      chunk.ID,
		Object:  string(chunk.Object),
		Created: chunk.Created,
		Model:   chunk.Model,
	}
	if chunk.Usage.TotalTokens > 0 {
		out.Usage = &aisdk.Usage{
			PromptTokens:     int(chunk.Usage.PromptTokens),
			CompletionTokens: int(chunk.Usage.CompletionTokens),
			TotalTokens:      int(chunk.Usage.TotalTokens),
		}
	}
	for _, choice := range chunk.Choices {
		delta := &aisdk.Delta{
			Role:    string(choice.Delta.Role),
			Content: choice.Delta.Content,
			Refusal: choice.Delta.Refusal,
		}
		for _, tc := range choice.Delta.ToolCalls {
			// the SDK reports absent fields as empty strings; a fragment
			// carrying an id opens a slot and always has arguments
			fragment := aisdk.ToolCallDelta{Index: int(tc.Index), Type: string(tc.Type)}
			if tc.ID != "" {
				id := tc.ID
				fragment.ID = &id
			}
			if tc.Function.Name != "" {
				name := tc.Function.Name
				fragment.Function.Name = &name
			}
			if tc.ID != "" || tc.Function.Arguments != "" {
				args := tc.Function.Arguments
				fragment.Function.Arguments = &args
			}
			delta.ToolCalls = append(delta.ToolCalls, fragment)
		}
		out.Choices = append(out.Choices, aisdk.Choice{
			Index:        int(choice.Index),
			FinishReason: string(choice.FinishReason),
			Delta:        delta,
		})
	}
	return out
}
