package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"procura-backend/internal/assistant"
)

// ErrTurnSuperseded is returned when a newer turn (or a reset) replaced the
// turn trying to commit.
var ErrTurnSuperseded = errors.New("turn superseded by a newer request")

type inflight struct {
	seq    uint64
	cancel context.CancelFunc
}

// MemoryStore keeps conversation sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]assistant.Session
	// Active flow contexts older than flowTTL are dropped on read.
	flowTTL time.Duration
	// At most one in-flight turn per session.
	turns map[string]inflight
	seq   uint64
	now   func() time.Time
}

func NewMemoryStore(flowTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]assistant.Session),
		flowTTL:  flowTTL,
		turns:    make(map[string]inflight),
		now:      time.Now,
	}
}

// Get returns a copy of the session, creating an empty one if needed.
func (m *MemoryStore) Get(sessionID string) assistant.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return assistant.NewSession(sessionID)
	}
	if s.Context != nil && m.flowTTL > 0 && m.now().Sub(s.Context.UpdatedAt) > m.flowTTL {
		s.Context = nil
		m.sessions[sessionID] = s
	}
	return s.Clone()
}

// Put replaces the stored session.
func (m *MemoryStore) Put(s assistant.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.Clone()
}

// Update applies fn to the session under the store lock. When fn fails the
// session is left unchanged.
func (m *MemoryStore) Update(sessionID string, fn func(assistant.Session) (assistant.Session, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		s = assistant.NewSession(sessionID)
	}
	next, err := fn(s.Clone())
	if err != nil {
		return err
	}
	m.sessions[sessionID] = next.Clone()
	return nil
}

// Reset discards the session and cancels any in-flight turn.
func (m *MemoryStore) Reset(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	if t, ok := m.turns[sessionID]; ok {
		t.cancel()
		delete(m.turns, sessionID)
	}
}

// Len is the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Turn is a handle on one in-flight request for a session.
type Turn struct {
	store     *MemoryStore
	sessionID string
	seq       uint64
	ctx       context.Context
	cancel    context.CancelFunc
}

// BeginTurn starts a turn for the session, cancelling the previous one.
// The returned context ends when the turn is superseded, reset, or parent
// ends.
func (m *MemoryStore) BeginTurn(parent context.Context, sessionID string) *Turn {
	ctx, cancel := context.WithCancel(parent)
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.turns[sessionID]; ok {
		prev.cancel()
	}
	m.seq++
	m.turns[sessionID] = inflight{seq: m.seq, cancel: cancel}
	return &Turn{store: m, sessionID: sessionID, seq: m.seq, ctx: ctx, cancel: cancel}
}

func (t *Turn) Context() context.Context { return t.ctx }

// Superseded reports whether a newer turn or a reset replaced t.
func (t *Turn) Superseded() bool {
	m := t.store
	m.mu.RLock()
	defer m.mu.RUnlock()
	cur, ok := m.turns[t.sessionID]
	return !ok || cur.seq != t.seq
}

// Commit applies update to the current session state, only if this turn is
// still the session's current turn and its context has not ended.
func (t *Turn) Commit(update func(assistant.Session) assistant.Session) error {
	m := t.store
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.turns[t.sessionID]
	if !ok || cur.seq != t.seq {
		return ErrTurnSuperseded
	}
	if err := t.ctx.Err(); err != nil {
		return err
	}
	s, ok := m.sessions[t.sessionID]
	if !ok {
		s = assistant.NewSession(t.sessionID)
	}
	m.sessions[t.sessionID] = update(s.Clone()).Clone()
	return nil
}

// End releases the turn. Safe to call more than once.
func (t *Turn) End() {
	t.cancel()
	m := t.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.turns[t.sessionID]; ok && cur.seq == t.seq {
		delete(m.turns, t.sessionID)
	}
}
