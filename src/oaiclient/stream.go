package oaiclient

import (
	"io"

	"github.com/elee1766/booktutor/src/aisdk"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"
)

var _ aisdk.StreamInterface = (*chunkStream)(nil)

type chunkStream struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
}

func (s *chunkStream) Read() (*aisdk.StreamChunk, error) {
	if s.stream.Next() {
		return convertChunk(s.stream.Current()), nil
	}
	if err := s.stream.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (s *chunkStream) Close() error {
	return s.stream.Close()
}
