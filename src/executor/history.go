package executor

import "github.com/elee1766/booktutor/src/aisdk"

// HistoryEntry is one message of a conversation as shown to a reader.
type HistoryEntry struct {
	Role string `json:"role"`

	// user and assistant
	Text string `json:"text,omitempty"`

	// assistant
	Refusal string   `json:"refusal,omitempty"`
	Tools   []string `json:"tools,omitempty"`

	// tool
	ToolCallID string `json:"tool_call_id,omitempty"`
	Content    string `json:"content,omitempty"`
}

// BuildHistory turns stored messages into history entries. System messages
// are not part of the history.
func BuildHistory(msgs []*aisdk.Message) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case aisdk.RoleUser:
			out = append(out, HistoryEntry{Role: msg.Role, Text: msg.Text()})
		case aisdk.RoleAssistant:
			entry := HistoryEntry{Role: msg.Role, Text: msg.Content, Refusal: msg.Refusal}
			for _, call := range msg.ToolCalls {
				entry.Tools = append(entry.Tools, call.Function.Name)
			}
			out = append(out, entry)
		case aisdk.RoleTool:
			out = append(out, HistoryEntry{Role: msg.Role, ToolCallID: msg.ToolCallID, Content: msg.Content})
		}
	}
	return out
}
