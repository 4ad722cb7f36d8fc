package aisdk

import (
	"log/slog"
	"strings"
)

// ToolCallAssembler rebuilds complete tool calls from streamed fragments.
//
// Fragments are keyed by their slot index. The first fragment of a slot must
// carry the call id, the function name and an arguments fragment; a slot
// opened without all three is discarded. Later fragments for a known slot
// only extend the arguments text.
type ToolCallAssembler struct {
	logger *slog.Logger
	slots  map[int]*pendingCall
}

type pendingCall struct {
	id   string
	typ  string
	name string
	args strings.Builder
}

// NewToolCallAssembler creates an empty assembler.
func NewToolCallAssembler(logger *slog.Logger) *ToolCallAssembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ToolCallAssembler{
		logger: logger,
		slots:  make(map[int]*pendingCall),
	}
}

// Merge folds fragments into the pending calls.
func (a *ToolCallAssembler) Merge(fragments ...ToolCallDelta) {
	for _, f := range fragments {
		if slot, ok := a.slots[f.Index]; ok {
			if f.Function.Arguments != nil {
				slot.args.WriteString(*f.Function.Arguments)
			}
			continue
		}
		if f.ID == nil || f.Function.Name == nil || f.Function.Arguments == nil {
			a.logger.Error("discarding tool call fragment for unknown slot",
				"index", f.Index,
				"has_id", f.ID != nil,
				"has_name", f.Function.Name != nil,
				"has_arguments", f.Function.Arguments != nil)
			continue
		}
		typ := f.Type
		if typ == "" {
			typ = "function"
		}
		slot := &pendingCall{id: *f.ID, typ: typ, name: *f.Function.Name}
		slot.args.WriteString(*f.Function.Arguments)
		a.slots[f.Index] = slot
	}
}

// Len returns the number of open slots.
func (a *ToolCallAssembler) Len() int {
	return len(a.slots)
}

// ToolCalls drains the assembler. The order of the returned calls is not
// defined.
func (a *ToolCallAssembler) ToolCalls() []ToolCall {
	if len(a.slots) == 0 {
		return nil
	}
	calls := make([]ToolCall, 0, len(a.slots))
	for _, slot := range a.slots {
		calls = append(calls, ToolCall{
			ID:   slot.id,
			Type: slot.typ,
			Function: FunctionCall{
				Name:      slot.name,
				Arguments: slot.args.String(),
			},
		})
	}
	a.slots = make(map[int]*pendingCall)
	return calls
}
