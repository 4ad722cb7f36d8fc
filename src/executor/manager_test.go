package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/elee1766/booktutor/src/aisdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend builds tutors whose model answers every request with the
// same text.
type fakeBackend struct {
	t *testing.T

	mu      sync.Mutex
	stores  map[ConversationKey]*memStore
	builds  map[ConversationKey]int
	deleted []ConversationKey
	failKey *ConversationKey

	// gate, when set, holds every build until it is closed
	gate    chan struct{}
	started chan struct{}

	// delay slows every model request down
	delay    time.Duration
	inflight atomic.Int32
	overlap  atomic.Bool
}

func newFakeBackend(t *testing.T) *fakeBackend {
	return &fakeBackend{
		t:      t,
		stores: make(map[ConversationKey]*memStore),
		builds: make(map[ConversationKey]int),
	}
}

type echoModel struct {
	backend *fakeBackend
}

func (m echoModel) CreateChatCompletion(ctx context.Context, req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	return nil, errors.New("not used")
}

func (m echoModel) CreateChatCompletionStream(ctx context.Context, req *aisdk.ChatCompletionRequest) (aisdk.StreamInterface, error) {
	if m.backend.inflight.Add(1) > 1 {
		m.backend.overlap.Store(true)
	}
	defer m.backend.inflight.Add(-1)
	time.Sleep(m.backend.delay)
	last := req.Messages[len(req.Messages)-1]
	return aisdk.NewChunkStream(content("re: " + last.Content)), nil
}

func (m echoModel) GetModelInfo() *aisdk.ModelInfo {
	return &aisdk.ModelInfo{ID: "echo"}
}

func (b *fakeBackend) store(key ConversationKey) *memStore {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.stores[key]
	if !ok {
		s = &memStore{}
		b.stores[key] = s
	}
	return s
}

func (b *fakeBackend) NewTutor(ctx context.Context, key ConversationKey) (*Tutor, error) {
	b.mu.Lock()
	b.builds[key]++
	fail := b.failKey != nil && *b.failKey == key
	b.mu.Unlock()
	if fail {
		return nil, errors.New("unknown student")
	}
	if b.gate != nil {
		b.started <- struct{}{}
		<-b.gate
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	store := b.store(key)
	return NewTutor(TutorConfig{
		ConversationID: key.String(),
		Model:          echoModel{backend: b},
		Store:          store,
		History:        store.Messages(),
		Instruction:    "tutor",
		TokenBudget:    1000,
		Stream:         true,
	})
}

func (b *fakeBackend) Messages(ctx context.Context, key ConversationKey) ([]*aisdk.Message, error) {
	return b.store(key).Messages(), nil
}

func (b *fakeBackend) DeleteConversation(ctx context.Context, key ConversationKey) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.stores, key)
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *fakeBackend) Builds(key ConversationKey) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.builds[key]
}

func TestManagerCachesTutors(t *testing.T) {
	backend := newFakeBackend(t)
	m := NewManager(backend, 4, nil)
	ctx := context.Background()

	require.NoError(t, m.Input(ctx, "s1", "b1", "one", nil))
	require.NoError(t, m.Input(ctx, "s1", "b1", "two", nil))

	key := ConversationKey{StudentID: "s1", BookID: "b1"}
	assert.Equal(t, 1, backend.Builds(key))
	assert.Equal(t, 1, m.Len())

	tokens, ok := m.Tokens("s1", "b1")
	assert.True(t, ok)
	assert.Positive(t, tokens)
	_, ok = m.Tokens("s2", "b1")
	assert.False(t, ok)

	history, err := m.History(ctx, "s1", "b1")
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, HistoryEntry{Role: aisdk.RoleUser, Text: "one"}, history[0])
	assert.Equal(t, "re: one", history[1].Text)
	assert.Equal(t, "re: two", history[3].Text)
}

func TestManagerSerializesTurns(t *testing.T) {
	backend := newFakeBackend(t)
	backend.delay = 5 * time.Millisecond
	m := NewManager(backend, 4, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Input(context.Background(), "s1", "b1", "hi", nil))
		}()
	}
	wg.Wait()

	key := ConversationKey{StudentID: "s1", BookID: "b1"}
	assert.False(t, backend.overlap.Load(), "turns of one conversation overlapped")
	assert.Equal(t, 1, backend.Builds(key))
	assert.Len(t, backend.store(key).Messages(), 16)
}

func TestManagerEvictsLeastRecentlyUsed(t *testing.T) {
	backend := newFakeBackend(t)
	m := NewManager(backend, 2, nil)
	ctx := context.Background()

	require.NoError(t, m.Input(ctx, "s1", "b1", "a", nil))
	require.NoError(t, m.Input(ctx, "s2", "b1", "b", nil))
	require.NoError(t, m.Input(ctx, "s1", "b1", "c", nil))
	require.NoError(t, m.Input(ctx, "s3", "b1", "d", nil))
	assert.Equal(t, 2, m.Len())

	// s2 was the least recently used
	require.NoError(t, m.Input(ctx, "s2", "b1", "e", nil))
	assert.Equal(t, 2, backend.Builds(ConversationKey{StudentID: "s2", BookID: "b1"}))
	assert.Equal(t, 1, backend.Builds(ConversationKey{StudentID: "s1", BookID: "b1"}))

	// the rebuilt tutor replays the stored conversation
	history, err := m.History(ctx, "s2", "b1")
	require.NoError(t, err)
	assert.Len(t, history, 4)

	m.Evict("s2", "b1")
	assert.Equal(t, 1, m.Len())
}

func TestManagerFailedBuildNotCached(t *testing.T) {
	backend := newFakeBackend(t)
	key := ConversationKey{StudentID: "ghost", BookID: "b1"}
	backend.failKey = &key
	m := NewManager(backend, 2, nil)

	err := m.Input(context.Background(), "ghost", "b1", "hi", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown student")
	assert.Equal(t, 0, m.Len())

	backend.mu.Lock()
	backend.failKey = nil
	backend.mu.Unlock()
	require.NoError(t, m.Input(context.Background(), "ghost", "b1", "hi", nil))
	assert.Equal(t, 2, backend.Builds(key))
}

func TestManagerDeleteConversation(t *testing.T) {
	backend := newFakeBackend(t)
	m := NewManager(backend, 2, nil)
	ctx := context.Background()

	require.NoError(t, m.Input(ctx, "s1", "b1", "hi", nil))
	require.NoError(t, m.DeleteConversation(ctx, "s1", "b1"))

	assert.Equal(t, 0, m.Len())
	assert.Equal(t, []ConversationKey{{StudentID: "s1", BookID: "b1"}}, backend.deleted)

	history, err := m.History(ctx, "s1", "b1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestBuildHistory(t *testing.T) {
	msgs := []*aisdk.Message{
		{Role: aisdk.RoleSystem, Content: "ignored"},
		aisdk.NewUserMessage("hello"),
		{
			Role:    aisdk.RoleAssistant,
			Content: "let me see",
			ToolCalls: []aisdk.ToolCall{
				{ID: "c1", Function: aisdk.FunctionCall{Name: "GetChapterContent"}},
				{ID: "c2", Function: aisdk.FunctionCall{Name: "AddMemory"}},
			},
		},
		aisdk.NewToolMessage("c1", "GetChapterContent", "# Chapter 1"),
		{Role: aisdk.RoleAssistant, Refusal: "no"},
	}

	assert.Equal(t, []HistoryEntry{
		{Role: aisdk.RoleUser, Text: "hello"},
		{Role: aisdk.RoleAssistant, Text: "let me see", Tools: []string{"GetChapterContent", "AddMemory"}},
		{Role: aisdk.RoleTool, ToolCallID: "c1", Content: "# Chapter 1"},
		{Role: aisdk.RoleAssistant, Refusal: "no"},
	}, BuildHistory(msgs))
}

func TestManagerBuildSurvivesCanceledCaller(t *testing.T) {
	backend := newFakeBackend(t)
	backend.gate = make(chan struct{})
	backend.started = make(chan struct{}, 1)
	m := NewManager(backend, 4, nil)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() { first <- m.Input(ctx, "s1", "b1", "one", nil) }()
	<-backend.started

	second := make(chan error, 1)
	go func() { second <- m.Input(context.Background(), "s1", "b1", "two", nil) }()
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-first:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("canceled caller kept waiting for the build")
	}

	close(backend.gate)
	select {
	case err := <-second:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("second caller never finished")
	}

	key := ConversationKey{StudentID: "s1", BookID: "b1"}
	assert.Equal(t, 1, backend.Builds(key))
	assert.Equal(t, 1, m.Len())
	history, err := m.History(context.Background(), "s1", "b1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "two", history[0].Text)
}
