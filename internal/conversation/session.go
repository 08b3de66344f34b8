package conversation

import (
	"sync"

	"github.com/google/uuid"

	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/assistant"
)

// session is the per-user turn state the pipeline reads and writes: the
// bounded history window and the products shown in the previous turn. It
// never leaves the manager; callers only see copies.
type session struct {
	history            []assistant.Turn
	previousProductIDs []int64
}

// SessionManager tracks active sessions in memory. Durable history lives in
// the Store; this only holds the working window per session. All session
// state is accessed under the manager's mutex.
type SessionManager struct {
	mu         sync.Mutex
	sessions   map[string]*session
	maxHistory int
}

// NewSessionManager creates a session manager with the given history bound.
func NewSessionManager(maxHistory int) *SessionManager {
	if maxHistory <= 0 {
		maxHistory = 40
	}
	return &SessionManager{
		sessions:   make(map[string]*session),
		maxHistory: maxHistory,
	}
}

// Resolve returns the session id to use, allocating a fresh one when the
// given id is empty, and ensures the session exists.
func (m *SessionManager) Resolve(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	m.getLocked(id)
	return id
}

// Snapshot returns copies of the session's history and previous product
// ids, so callers can read them while other turns mutate the session.
func (m *SessionManager) Snapshot(id string) ([]assistant.Turn, []int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.getLocked(id)

	history := make([]assistant.Turn, len(s.history))
	copy(history, s.history)

	ids := make([]int64, len(s.previousProductIDs))
	copy(ids, s.previousProductIDs)

	return history, ids
}

// AppendTurn records a turn in the session history, dropping the oldest
// turns beyond the bound.
func (m *SessionManager) AppendTurn(id, role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.getLocked(id)
	s.history = append(s.history, assistant.Turn{Role: role, Content: content})
	s.history = assistant.TrimHistory(s.history, m.maxHistory)
}

// SetPreviousProducts records the verified products of the latest turn.
func (m *SessionManager) SetPreviousProducts(id string, ids []int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.getLocked(id)
	s.previousProductIDs = make([]int64, len(ids))
	copy(s.previousProductIDs, ids)
}

// Delete removes a session.
func (m *SessionManager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
}

// getLocked returns the session for id, creating it if needed. Callers must
// hold the mutex.
func (m *SessionManager) getLocked(id string) *session {
	s, ok := m.sessions[id]
	if !ok {
		s = &session{}
		m.sessions[id] = s
	}
	return s
}
