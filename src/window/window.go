// Package window keeps the messages sent to the model within a token budget.
package window

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/elee1766/booktutor/src/aisdk"
)

var (
	ErrInstructionTooLarge = errors.New("instruction exceeds a quarter of the token budget")
	ErrContextTooLarge     = errors.New("context exceeds a quarter of the token budget")
)

// Store persists the messages appended to a window.
type Store interface {
	AppendMessage(ctx context.Context, msg *aisdk.Message) error
}

// Window is the instruction and context system messages followed by the
// conversation tail. Its estimated size never exceeds the budget once an
// append returns.
//
// A Window is not safe for concurrent use.
type Window struct {
	store  Store
	budget int

	instruction *aisdk.Message
	context     *aisdk.Message
	fixed       int

	tail       []*aisdk.Message
	tailTokens []int
	total      int
}

// New builds a window from the instruction and context texts and replays
// history into it. The instruction and the context must each fit in a
// quarter of the budget.
func New(store Store, budget int, instruction, context string, history []*aisdk.Message) (*Window, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("token budget must be positive, got %d", budget)
	}
	w := &Window{
		store:       store,
		budget:      budget,
		instruction: &aisdk.Message{Role: aisdk.RoleSystem, Content: instruction},
		context:     &aisdk.Message{Role: aisdk.RoleSystem, Content: context},
	}

	limit := budget / 4
	instructionTokens := EstimateMessage(w.instruction)
	if instructionTokens > limit {
		return nil, fmt.Errorf("%w: %d > %d", ErrInstructionTooLarge, instructionTokens, limit)
	}
	contextTokens := EstimateMessage(w.context)
	if contextTokens > limit {
		return nil, fmt.Errorf("%w: %d > %d", ErrContextTooLarge, contextTokens, limit)
	}
	w.fixed = instructionTokens + contextTokens
	w.total = w.fixed

	for _, msg := range history {
		w.push(msg)
		w.trim()
	}
	return w, nil
}

// Append persists msg and then adds it to the tail. When persisting fails
// the window is left unchanged.
func (w *Window) Append(ctx context.Context, msg *aisdk.Message) error {
	if err := w.store.AppendMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to persist message: %w", err)
	}
	w.push(msg)
	w.trim()
	return nil
}

// AppendAll appends msgs in order and stops at the first failure.
func (w *Window) AppendAll(ctx context.Context, msgs ...*aisdk.Message) error {
	for _, msg := range msgs {
		if err := w.Append(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// push adds msg to the tail. A tool result is only added while the tool
// call it answers is in the last assistant turn of the tail; once that turn
// was trimmed its results are dropped too.
func (w *Window) push(msg *aisdk.Message) {
	if msg.Role == aisdk.RoleTool && !w.awaitsResult(msg.ToolCallID) {
		return
	}
	tokens := EstimateMessage(msg)
	w.tail = append(w.tail, msg)
	w.tailTokens = append(w.tailTokens, tokens)
	w.total += tokens
}

// awaitsResult reports whether the last assistant turn of the tail, with
// only tool results after it, called the tool call id.
func (w *Window) awaitsResult(id string) bool {
	i := w.roundStart()
	if i < 0 {
		return false
	}
	return slices.ContainsFunc(w.tail[i].ToolCalls, func(c aisdk.ToolCall) bool {
		return c.ID == id
	})
}

// roundStart returns the index of the assistant message that the trailing
// tool results of the tail answer, or of the last message when the tail
// does not end in tool results. It is -1 when no assistant turn leads them.
func (w *Window) roundStart() int {
	i := len(w.tail) - 1
	for i >= 0 && w.tail[i].Role == aisdk.RoleTool {
		i--
	}
	if i < 0 || w.tail[i].Role != aisdk.RoleAssistant {
		return -1
	}
	return i
}

// trim drops the newest tail messages until the window fits. A tool round
// goes as a whole: dropping a tool result drops the assistant turn that
// requested it and its other results. Dropped messages stay in the store.
func (w *Window) trim() {
	for w.total > w.budget && len(w.tail) > 0 {
		last := len(w.tail) - 1
		if w.tail[last].Role == aisdk.RoleTool {
			if start := w.roundStart(); start >= 0 {
				last = start
			}
		}
		w.truncate(last)
	}
}

// truncate removes tail[n:].
func (w *Window) truncate(n int) {
	for i := n; i < len(w.tail); i++ {
		w.total -= w.tailTokens[i]
		w.tail[i] = nil
	}
	w.tail = w.tail[:n]
	w.tailTokens = w.tailTokens[:n]
}

// Messages returns the instruction, the context and a copy of the tail.
func (w *Window) Messages() []*aisdk.Message {
	out := make([]*aisdk.Message, 0, len(w.tail)+2)
	out = append(out, w.instruction, w.context)
	return append(out, w.tail...)
}

// Tail returns a copy of the conversation messages in the window.
func (w *Window) Tail() []*aisdk.Message {
	return slices.Clone(w.tail)
}

// Tokens returns the estimated size of the whole window.
func (w *Window) Tokens() int {
	return w.total
}

func (w *Window) Budget() int {
	return w.budget
}

// Len returns the number of tail messages.
func (w *Window) Len() int {
	return len(w.tail)
}
