package executor

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// SSEEventProcessor writes each event as a server-sent event frame, so a
// remote client can follow a turn. The event name is the event type and the
// data is the JSON form of the event.
type SSEEventProcessor struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSSEEventProcessor creates a processor writing frames to w. When w is an
// http.Flusher every frame is flushed.
func NewSSEEventProcessor(w io.Writer) *SSEEventProcessor {
	return &SSEEventProcessor{w: w}
}

// Process handles a single event
func (p *SSEEventProcessor) Process(event ConversationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := fmt.Fprintf(p.w, "event: %s\ndata: %s\n\n", event.GetType(), data); err != nil {
		return err
	}
	if f, ok := p.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// Close cleans up resources
func (p *SSEEventProcessor) Close() error {
	return nil
}
