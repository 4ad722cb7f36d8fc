package executor

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/elee1766/booktutor/src/aisdk"
)

// DefaultCacheSize is the number of tutors a Manager keeps by default.
const DefaultCacheSize = 256

// ConversationKey names the conversation of a student about a book.
type ConversationKey struct {
	StudentID string
	BookID    string
}

func (k ConversationKey) String() string {
	return k.StudentID + "/" + k.BookID
}

// Backend builds tutors and reaches the stored conversations behind a
// Manager.
type Backend interface {
	NewTutor(ctx context.Context, key ConversationKey) (*Tutor, error)
	Messages(ctx context.Context, key ConversationKey) ([]*aisdk.Message, error)
	DeleteConversation(ctx context.Context, key ConversationKey) error
}

// Manager keeps one Tutor per conversation. Turns of one conversation run
// one at a time; turns of different conversations run concurrently.
type Manager struct {
	backend  Backend
	capacity int
	logger   *slog.Logger

	group singleflight.Group

	mu      sync.Mutex
	entries map[ConversationKey]*list.Element
	lru     *list.List
}

type managerEntry struct {
	key   ConversationKey
	tutor *Tutor

	// turn is held for the whole of a turn
	turn sync.Mutex
	// busy counts callers holding the entry; guarded by Manager.mu
	busy int
}

// NewManager creates a manager keeping at most capacity idle tutors. A
// capacity of zero or less uses DefaultCacheSize.
func NewManager(backend Backend, capacity int, logger *slog.Logger) *Manager {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		backend:  backend,
		capacity: capacity,
		logger:   logger.With("component", "tutor_manager"),
		entries:  make(map[ConversationKey]*list.Element),
		lru:      list.New(),
	}
}

// Input runs one turn of the conversation of studentID about bookID.
func (m *Manager) Input(ctx context.Context, studentID, bookID, text string, sink EventSink) error {
	return m.InputMessage(ctx, studentID, bookID, aisdk.NewUserMessage(text), sink)
}

// InputMessage is Input for a message that may carry image parts.
func (m *Manager) InputMessage(ctx context.Context, studentID, bookID string, msg *aisdk.Message, sink EventSink) error {
	key := ConversationKey{StudentID: studentID, BookID: bookID}
	e, err := m.acquire(ctx, key)
	if err != nil {
		return err
	}
	defer m.release(e)

	e.turn.Lock()
	defer e.turn.Unlock()
	return e.tutor.InputMessage(ctx, msg, sink)
}

// Tokens returns the window size of a cached tutor, and false when the
// conversation has no cached tutor.
func (m *Manager) Tokens(studentID, bookID string) (int, bool) {
	m.mu.Lock()
	el, ok := m.entries[ConversationKey{StudentID: studentID, BookID: bookID}]
	m.mu.Unlock()
	if !ok {
		return 0, false
	}
	e := el.Value.(*managerEntry)
	e.turn.Lock()
	defer e.turn.Unlock()
	return e.tutor.Tokens(), true
}

// Evict drops the cached tutor of a conversation. A turn already running on
// it finishes; the next turn rebuilds the tutor from storage.
func (m *Manager) Evict(studentID, bookID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(ConversationKey{StudentID: studentID, BookID: bookID})
}

// DeleteConversation waits for a running turn, evicts the tutor and deletes
// the stored conversation.
func (m *Manager) DeleteConversation(ctx context.Context, studentID, bookID string) error {
	key := ConversationKey{StudentID: studentID, BookID: bookID}

	m.mu.Lock()
	el, cached := m.entries[key]
	m.removeLocked(key)
	m.mu.Unlock()

	if cached {
		e := el.Value.(*managerEntry)
		e.turn.Lock()
		defer e.turn.Unlock()
	}

	if err := m.backend.DeleteConversation(ctx, key); err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", key, err)
	}
	m.logger.Info("deleted conversation", "conversation_id", key.String())
	return nil
}

// History returns the stored conversation as a list of entries.
func (m *Manager) History(ctx context.Context, studentID, bookID string) ([]HistoryEntry, error) {
	msgs, err := m.backend.Messages(ctx, ConversationKey{StudentID: studentID, BookID: bookID})
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return BuildHistory(msgs), nil
}

// Len returns the number of cached tutors.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}

// acquire returns the entry of key, building its tutor when needed, and
// marks it busy. Concurrent builds of one key share a single construction.
func (m *Manager) acquire(ctx context.Context, key ConversationKey) (*managerEntry, error) {
	m.mu.Lock()
	if el, ok := m.entries[key]; ok {
		m.lru.MoveToFront(el)
		e := el.Value.(*managerEntry)
		e.busy++
		m.mu.Unlock()
		return e, nil
	}
	m.mu.Unlock()

	// the build outlives a caller that gives up; each caller waits on its own ctx
	buildCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key.String(), func() (any, error) {
		m.mu.Lock()
		if el, ok := m.entries[key]; ok {
			m.mu.Unlock()
			return el.Value, nil
		}
		m.mu.Unlock()

		tutor, err := m.backend.NewTutor(buildCtx, key)
		if err != nil {
			return nil, err
		}
		m.logger.Debug("built tutor", "conversation_id", key.String(), "tokens", tutor.Tokens())

		e := &managerEntry{key: key, tutor: tutor}
		m.mu.Lock()
		m.entries[key] = m.lru.PushFront(e)
		m.evictLocked()
		m.mu.Unlock()
		return e, nil
	})

	var v any
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("failed to build tutor for %s: %w", key, res.Err)
		}
		v = res.Val
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e := v.(*managerEntry)
	if el, ok := m.entries[key]; ok {
		// a build after an eviction may have replaced it
		m.lru.MoveToFront(el)
		e = el.Value.(*managerEntry)
	} else {
		m.entries[key] = m.lru.PushFront(e)
	}
	e.busy++
	m.evictLocked()
	return e, nil
}

func (m *Manager) release(e *managerEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.busy--
	m.evictLocked()
}

// evictLocked drops least recently used idle entries until the cache fits
// its capacity.
func (m *Manager) evictLocked() {
	for el := m.lru.Back(); el != nil && m.lru.Len() > m.capacity; {
		prev := el.Prev()
		e := el.Value.(*managerEntry)
		if e.busy == 0 {
			m.lru.Remove(el)
			delete(m.entries, e.key)
			m.logger.Debug("evicted tutor", "conversation_id", e.key.String())
		}
		el = prev
	}
}

func (m *Manager) removeLocked(key ConversationKey) {
	if el, ok := m.entries[key]; ok {
		m.lru.Remove(el)
		delete(m.entries, key)
	}
}
