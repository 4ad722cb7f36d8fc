package orclient

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/elee1766/booktutor/src/aisdk"
)

const maxEventSize = 1 << 20

var _ aisdk.StreamInterface = (*sseStream)(nil)

// sseStream decodes the server-sent events of a streaming chat completion.
// Comment lines (OpenRouter keep-alives) and blank lines are skipped;
// "data: [DONE]" ends the stream.
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	logger  *slog.Logger

	done   bool
	closed atomic.Bool
}

func newSSEStream(body io.ReadCloser, logger *slog.Logger) *sseStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	return &sseStream{body: body, scanner: scanner, logger: logger}
}

// Read returns the next chunk, io.EOF once the stream is finished. Read
// must not be called concurrently; Close may be called from any goroutine
// to abort a blocked Read.
func (s *sseStream) Read() (*aisdk.StreamChunk, error) {
	if s.closed.Load() {
		return nil, ErrStreamClosed
	}
	if s.done {
		return nil, io.EOF
	}

	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 || line[0] == ':' {
			continue
		}
		data, ok := bytes.CutPrefix(line, []byte("data:"))
		if !ok {
			// event:, id: and retry: fields carry nothing we use
			continue
		}
		data = bytes.TrimSpace(data)
		if bytes.Equal(data, []byte("[DONE]")) {
			s.done = true
			return nil, io.EOF
		}
		if err := decodeStreamError(data); err != nil {
			s.done = true
			return nil, err
		}

		var chunk aisdk.StreamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			s.logger.Debug("undecodable stream event", "data", string(data), "error", err)
			return nil, fmt.Errorf("failed to decode stream chunk: %w", err)
		}
		return &chunk, nil
	}
	if err := s.scanner.Err(); err != nil {
		if s.closed.Load() {
			return nil, ErrStreamClosed
		}
		return nil, fmt.Errorf("failed to read stream: %w", err)
	}
	// the body ended without [DONE]
	s.done = true
	return nil, io.EOF
}

// Close releases the response body. It is safe to call more than once.
func (s *sseStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.body.Close()
}

func decodeStreamError(data []byte) error {
	if !bytes.Contains(data, []byte(`"error"`)) {
		return nil
	}
	var resp errorResponse
	if err := json.Unmarshal(data, &resp); err != nil || resp.Error.Message == "" {
		return nil
	}
	streamErr := &StreamError{Message: resp.Error.Message}
	if resp.Error.Code != nil {
		streamErr.Code = fmt.Sprint(resp.Error.Code)
	}
	return streamErr
}
