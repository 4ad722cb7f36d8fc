package agent

import (
	"context"
	"encoding/json"

	"github.com/elee1766/booktutor/src/aisdk"
	"github.com/elee1766/booktutor/src/schema"
	jsonschema "github.com/swaggest/jsonschema-go"
)

// ToolFunc executes a raw tool call.
type ToolFunc func(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error)

// FuncTool is a tool with a hand-written schema and an untyped executor.
type FuncTool struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
	Executor    ToolFunc           `json:"-"`
}

// GetType returns the tool type
func (t *FuncTool) GetType() string {
	return "function"
}

// GetName returns the tool's name
func (t *FuncTool) GetName() string {
	return t.Name
}

// GetDescription returns the tool's description
func (t *FuncTool) GetDescription() string {
	return t.Description
}

// GetParameters returns the JSON schema for the tool's parameters
func (t *FuncTool) GetParameters() *jsonschema.Schema {
	if t.Parameters == nil {
		return schema.EmptyObject()
	}
	return t.Parameters
}

// Execute runs the tool
func (t *FuncTool) Execute(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error) {
	return t.Executor(ctx, call)
}

// MarshalJSON implements custom JSON marshaling
func (t *FuncTool) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToChatTool(t))
}

var _ Tool = (*FuncTool)(nil)
