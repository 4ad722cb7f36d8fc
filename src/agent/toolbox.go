package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/elee1766/booktutor/src/aisdk"
	"golang.org/x/sync/errgroup"
)

// ErrToolNotFound is returned when a call names a tool that was never registered.
var ErrToolNotFound = errors.New("tool not found")

// ToolExecutor is a function type for tool execution
type ToolExecutor func(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error)

// DefaultToolbox is the toolbox over the Tool interface
type DefaultToolbox = Toolbox[Tool]

// Toolbox maps tool names to tools and dispatches model tool calls.
type Toolbox[T Tool] struct {
	mu         sync.RWMutex
	tools      map[string]T
	middleware []ToolMiddleware
	parallel   int
	logger     *slog.Logger
}

// ToolMiddleware is a function that wraps a ToolExecutor to add functionality.
type ToolMiddleware func(next ToolExecutor) ToolExecutor

// NewToolbox creates a new tool manager.
func NewToolbox[T Tool]() *Toolbox[T] {
	return &Toolbox[T]{
		tools:  make(map[string]T),
		logger: slog.Default(),
	}
}

// SetLogger sets the logger used for dispatch diagnostics.
func (tm *Toolbox[T]) SetLogger(logger *slog.Logger) {
	if logger != nil {
		tm.logger = logger
	}
}

// SetParallelism bounds how many tool calls of one batch run at once.
// Zero or negative means one goroutine per call.
func (tm *Toolbox[T]) SetParallelism(n int) {
	tm.parallel = n
}

// RegisterTool registers a tool. Registering a name twice replaces the
// earlier tool.
func (tm *Toolbox[T]) RegisterTool(tool T) error {
	if tool.GetName() == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	if _, exists := tm.tools[tool.GetName()]; exists {
		tm.logger.Debug("replacing registered tool", "tool", tool.GetName())
	}
	tm.tools[tool.GetName()] = tool
	return nil
}

// RegisterMiddleware registers middleware that will be applied to all tool executions.
// Middleware is applied in the order it's registered (first registered = outermost layer).
func (tm *Toolbox[T]) RegisterMiddleware(middleware ToolMiddleware) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.middleware = append(tm.middleware, middleware)
}

// Tools returns the registered tools sorted by name.
func (tm *Toolbox[T]) Tools() []T {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	out := make([]T, 0, len(tm.tools))
	for _, tool := range tm.tools {
		out = append(out, tool)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out
}

// Declarations returns the tool declarations to send with a completion request.
func (tm *Toolbox[T]) Declarations() []*aisdk.ChatTool {
	return ToChatTools(tm.Tools())
}

// GetTool returns a specific tool by name.
func (tm *Toolbox[T]) GetTool(name string) (T, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	tool, exists := tm.tools[name]
	return tool, exists
}

// HasTool checks if a tool is available.
func (tm *Toolbox[T]) HasTool(name string) bool {
	_, exists := tm.GetTool(name)
	return exists
}

// ExecuteTool executes a tool call with middleware applied.
func (tm *Toolbox[T]) ExecuteTool(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error) {
	tool, exists := tm.GetTool(call.Function.Name)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, call.Function.Name)
	}

	toolExecutor := ToolExecutor(func(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error) {
		return tool.Execute(ctx, call)
	})

	tm.mu.RLock()
	middleware := tm.middleware
	tm.mu.RUnlock()

	finalExecutor := toolExecutor
	for i := len(middleware) - 1; i >= 0; i-- {
		finalExecutor = middleware[i](finalExecutor)
	}

	return finalExecutor(ctx, call)
}

// Dispatch executes a batch of tool calls concurrently and returns one tool
// message per settled call. Unknown tools and tool failures become result
// text. A call whose execution panics produces no message. The order of the
// returned messages is not defined.
func (tm *Toolbox[T]) Dispatch(ctx context.Context, calls []aisdk.ToolCall) []*aisdk.Message {
	results := make([]*aisdk.Message, len(calls))

	var g errgroup.Group
	if tm.parallel > 0 {
		g.SetLimit(tm.parallel)
	}

	for i := range calls {
		call := calls[i]
		if !tm.HasTool(call.Function.Name) {
			results[i] = aisdk.NewToolMessage(call.ID, call.Function.Name,
				fmt.Sprintf("%s: %s", ErrToolNotFound, call.Function.Name))
			continue
		}
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					tm.logger.Error("tool call panicked, dropping result",
						"tool", call.Function.Name,
						"call_id", call.ID,
						"panic", r,
						"stack", string(debug.Stack()))
				}
			}()
			results[i] = tm.runCall(ctx, &call)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*aisdk.Message, 0, len(results))
	for _, msg := range results {
		if msg != nil {
			out = append(out, msg)
		}
	}
	return out
}

func (tm *Toolbox[T]) runCall(ctx context.Context, call *aisdk.ToolCall) *aisdk.Message {
	resp, err := tm.ExecuteTool(ctx, call)
	if err != nil {
		return aisdk.NewToolMessage(call.ID, call.Function.Name, fmt.Sprintf("tool execution failed: %v", err))
	}
	if resp == nil {
		return aisdk.NewToolMessage(call.ID, call.Function.Name, "")
	}
	return aisdk.NewToolMessage(call.ID, call.Function.Name, string(resp.Content))
}

// Common middleware implementations

// LoggingMiddleware logs tool execution details.
func LoggingMiddleware(logger *slog.Logger) ToolMiddleware {
	return func(next ToolExecutor) ToolExecutor {
		return func(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error) {
			logger.Debug("executing tool", "tool", call.Function.Name, "call_id", call.ID, "params", call.Function.Arguments)
			result, err := next(ctx, call)
			switch {
			case err != nil:
				logger.Warn("tool execution failed", "tool", call.Function.Name, "error", err)
			case result != nil && result.IsError:
				logger.Info("tool reported an error", "tool", call.Function.Name, "content", string(result.Content))
			default:
				logger.Debug("tool execution completed", "tool", call.Function.Name)
			}
			return result, err
		}
	}
}
