package aisdk

import (
	"errors"
	"io"
	"strings"
)

// StreamCallback is a function called for each chunk in a stream.
type StreamCallback func(chunk *StreamChunk) error

// StreamToCallback reads a stream and calls the callback for each chunk.
func StreamToCallback(stream StreamInterface, callback StreamCallback) error {
	defer stream.Close()

	for {
		chunk, err := stream.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil // End of stream
			}
			return err
		}

		if chunk == nil {
			return nil // End of stream
		}

		if err := callback(chunk); err != nil {
			return err
		}
	}
}

// CollectStreamContent reads a stream and collects all content into a single string.
func CollectStreamContent(stream StreamInterface) (string, error) {
	var content strings.Builder

	err := StreamToCallback(stream, func(chunk *StreamChunk) error {
		for _, choice := range chunk.Choices {
			if choice.Delta != nil {
				content.WriteString(choice.Delta.Content)
			}
		}
		return nil
	})

	return content.String(), err
}

// ChunkStream replays a fixed list of chunks.
type ChunkStream struct {
	chunks []*StreamChunk
	pos    int
	err    error
	closed bool
}

// NewChunkStream returns a stream yielding chunks in order and then io.EOF.
func NewChunkStream(chunks ...*StreamChunk) *ChunkStream {
	return &ChunkStream{chunks: chunks}
}

// NewFailingChunkStream yields chunks and then err instead of io.EOF.
func NewFailingChunkStream(err error, chunks ...*StreamChunk) *ChunkStream {
	return &ChunkStream{chunks: chunks, err: err}
}

func (s *ChunkStream) Read() (*StreamChunk, error) {
	if s.closed {
		return nil, io.ErrClosedPipe
	}
	if s.pos >= len(s.chunks) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, nil
}

func (s *ChunkStream) Close() error {
	s.closed = true
	return nil
}

// ResponseToChunk turns a completed (non-streaming) response into a single
// streaming chunk, so both modes can be consumed by the same code path.
// Tool calls become fragments carrying the whole call, one slot each.
func ResponseToChunk(resp *ChatCompletionResponse) *StreamChunk {
	chunk := &StreamChunk{
		ID:      resp.ID,
		Object:  "chat.completion.chunk",
		Created: resp.Created,
		Model:   resp.Model,
	}
	for _, choice := range resp.Choices {
		msg := choice.Message
		delta := &Delta{
			Role:    msg.Role,
			Content: msg.Text(),
			Refusal: msg.Refusal,
		}
		for i, call := range msg.ToolCalls {
			delta.ToolCalls = append(delta.ToolCalls, ToolCallDelta{
				Index: i,
				ID:    ptr(call.ID),
				Type:  call.Type,
				Function: FunctionCallDelta{
					Name:      ptr(call.Function.Name),
					Arguments: ptr(call.Function.Arguments),
				},
			})
		}
		chunk.Choices = append(chunk.Choices, Choice{
			Index:        choice.Index,
			FinishReason: choice.FinishReason,
			Delta:        delta,
		})
	}
	return chunk
}

func ptr[T any](v T) *T {
	return &v
}
