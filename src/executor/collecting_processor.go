package executor

import (
	"strings"
	"sync"
)

// CollectingProcessor keeps every event it sees.
type CollectingProcessor struct {
	mu     sync.Mutex
	events []ConversationEvent
	closed bool
}

func NewCollectingProcessor() *CollectingProcessor {
	return &CollectingProcessor{}
}

func (p *CollectingProcessor) Process(event ConversationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *CollectingProcessor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Events returns a copy of the events seen so far.
func (p *CollectingProcessor) Events() []ConversationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ConversationEvent, len(p.events))
	copy(out, p.events)
	return out
}

// Types returns the types of the events seen so far, in order.
func (p *CollectingProcessor) Types() []EventType {
	events := p.Events()
	out := make([]EventType, len(events))
	for i, e := range events {
		out[i] = e.GetType()
	}
	return out
}

// Content joins the content of every ContentEvent.
func (p *CollectingProcessor) Content() string {
	var sb strings.Builder
	for _, e := range p.Events() {
		if c, ok := e.(*ContentEvent); ok {
			sb.WriteString(c.Content)
		}
	}
	return sb.String()
}

// Closed reports whether Close was called.
func (p *CollectingProcessor) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
