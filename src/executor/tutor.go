package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/elee1766/booktutor/src/agent"
	"github.com/elee1766/booktutor/src/aisdk"
	"github.com/elee1766/booktutor/src/window"
)

// DefaultMaxRounds bounds the model requests of one turn.
const DefaultMaxRounds = 16

// TutorConfig holds everything a Tutor is built from.
type TutorConfig struct {
	// ConversationID is stamped on every event.
	ConversationID string

	Model aisdk.ModelClient
	// Store persists every message appended to the window.
	Store window.Store
	// History is the stored conversation, oldest first.
	History []*aisdk.Message

	Instruction string
	Context     string
	TokenBudget int

	Tools            []agent.Tool
	MaxParallelTools int

	// Stream selects streaming requests. Without it the completed response
	// is consumed as a single chunk.
	Stream bool
	// MaxRounds bounds the model requests of one turn, 0 means unlimited.
	MaxRounds int

	Logger *slog.Logger
}

// Tutor drives the turns of one conversation: it sends the window to the
// model, forwards the response as events, runs the requested tools and loops
// until the model answers without tool calls.
//
// A Tutor is not safe for concurrent use; Manager serializes its turns.
type Tutor struct {
	id        string
	model     aisdk.ModelClient
	window    *window.Window
	toolbox   *agent.DefaultToolbox
	stream    bool
	maxRounds int
	logger    *slog.Logger
}

// NewTutor builds the window from cfg and registers the tools. It fails when
// the instruction or the context does not fit the token budget.
func NewTutor(cfg TutorConfig) (*Tutor, error) {
	if cfg.Model == nil {
		return nil, ErrModelClientRequired
	}
	if cfg.Store == nil {
		return nil, ErrStoreRequired
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "tutor", "conversation_id", cfg.ConversationID)

	win, err := window.New(cfg.Store, cfg.TokenBudget, cfg.Instruction, cfg.Context, cfg.History)
	if err != nil {
		return nil, fmt.Errorf("failed to build conversation window: %w", err)
	}

	toolbox := agent.NewToolbox[agent.Tool]()
	toolbox.SetLogger(logger)
	toolbox.SetParallelism(cfg.MaxParallelTools)
	toolbox.RegisterMiddleware(agent.LoggingMiddleware(logger))
	for _, tool := range cfg.Tools {
		if err := toolbox.RegisterTool(tool); err != nil {
			return nil, fmt.Errorf("failed to register tool %s: %w", tool.GetName(), err)
		}
	}

	return &Tutor{
		id:        cfg.ConversationID,
		model:     cfg.Model,
		window:    win,
		toolbox:   toolbox,
		stream:    cfg.Stream,
		maxRounds: cfg.MaxRounds,
		logger:    logger,
	}, nil
}

// ConversationID returns the id stamped on the events of this tutor.
func (t *Tutor) ConversationID() string {
	return t.id
}

// Tokens returns the estimated size of the window.
func (t *Tutor) Tokens() int {
	return t.window.Tokens()
}

// Messages returns the messages the next request would carry.
func (t *Tutor) Messages() []*aisdk.Message {
	return t.window.Messages()
}

// Input runs one turn for a plain text message from the student.
func (t *Tutor) Input(ctx context.Context, text string, sink EventSink) error {
	return t.InputMessage(ctx, aisdk.NewUserMessage(text), sink)
}

// InputMessage runs one turn for msg, which may carry image parts. Events
// are sent to sink as they happen; a nil sink discards them.
func (t *Tutor) InputMessage(ctx context.Context, msg *aisdk.Message, sink EventSink) error {
	if msg.Role == "" {
		msg.Role = aisdk.RoleUser
	}
	if msg.HasImages() && !t.model.GetModelInfo().AcceptsImages() {
		return fmt.Errorf("%w: %s", ErrImagesUnsupported, t.model.GetModelInfo().ID)
	}
	if err := t.window.Append(ctx, msg); err != nil {
		return fmt.Errorf("failed to append student message: %w", err)
	}

	emitter := NewEventEmitter(sink, t.id)
	state := StateAwaitingModel
	for round := 1; ; round++ {
		if t.maxRounds > 0 && round > t.maxRounds {
			return fmt.Errorf("%w: %d", ErrMaxRoundsExceeded, t.maxRounds)
		}

		stream, err := t.request(ctx)
		if err != nil {
			return err
		}
		t.transition(&state, StateStreamingResponse, round)

		reply, err := t.consume(ctx, stream, emitter)
		if err != nil {
			return err
		}
		if err := t.window.Append(ctx, reply); err != nil {
			return fmt.Errorf("failed to append assistant message: %w", err)
		}

		if len(reply.ToolCalls) == 0 {
			t.transition(&state, StateDone, round)
			return nil
		}

		t.transition(&state, StateDispatchingTools, round)
		if err := t.dispatch(ctx, reply.ToolCalls, emitter); err != nil {
			return err
		}
		t.transition(&state, StateAwaitingModel, round)
	}
}

func (t *Tutor) transition(state *TurnState, next TurnState, round int) {
	t.logger.Debug("turn state", "from", state.String(), "to", next.String(), "round", round)
	*state = next
}

// request sends the window to the model. A non-streaming response is
// wrapped into a one chunk stream.
func (t *Tutor) request(ctx context.Context) (aisdk.StreamInterface, error) {
	req := &aisdk.ChatCompletionRequest{
		Messages: t.window.Messages(),
		Tools:    t.toolbox.Declarations(),
		Stream:   t.stream,
	}
	t.logger.Debug("requesting completion", "messages", len(req.Messages), "tokens", t.window.Tokens(), "stream", t.stream)

	if t.stream {
		stream, err := t.model.CreateChatCompletionStream(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to create completion stream: %w", err)
		}
		return stream, nil
	}

	resp, err := t.model.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion: %w", err)
	}
	return aisdk.NewChunkStream(aisdk.ResponseToChunk(resp)), nil
}

// consume reads the stream to its end. Content is forwarded as it arrives,
// the refusal is sent once at the end and tool call fragments are assembled.
func (t *Tutor) consume(ctx context.Context, stream aisdk.StreamInterface, emitter *EventEmitter) (*aisdk.Message, error) {
	defer stream.Close()

	assembler := aisdk.NewToolCallAssembler(t.logger)
	var content, refusal strings.Builder
	for {
		chunk, err := stream.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read completion stream: %w", err)
		}
		for _, choice := range chunk.Choices {
			delta := choice.Delta
			if delta == nil {
				continue
			}
			if delta.Content != "" {
				content.WriteString(delta.Content)
				if err := emitter.EmitContent(ctx, delta.Content); err != nil {
					return nil, fmt.Errorf("failed to send content: %w", err)
				}
			}
			refusal.WriteString(delta.Refusal)
			assembler.Merge(delta.ToolCalls...)
		}
	}

	if refusal.Len() > 0 {
		if err := emitter.EmitRefusal(ctx, refusal.String()); err != nil {
			return nil, fmt.Errorf("failed to send refusal: %w", err)
		}
	}

	return &aisdk.Message{
		Role:      aisdk.RoleAssistant,
		Content:   content.String(),
		Refusal:   refusal.String(),
		ToolCalls: assembler.ToolCalls(),
	}, nil
}

// dispatch announces and runs the calls, then appends their results.
func (t *Tutor) dispatch(ctx context.Context, calls []aisdk.ToolCall, emitter *EventEmitter) error {
	for _, call := range calls {
		if err := emitter.EmitToolCall(ctx, call); err != nil {
			return fmt.Errorf("failed to send tool call: %w", err)
		}
	}

	results := t.toolbox.Dispatch(ctx, calls)
	for _, result := range results {
		if err := emitter.EmitToolResult(ctx, result); err != nil {
			return fmt.Errorf("failed to send tool result: %w", err)
		}
	}

	if err := t.window.AppendAll(ctx, results...); err != nil {
		return fmt.Errorf("failed to append tool results: %w", err)
	}
	return nil
}
