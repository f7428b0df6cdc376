package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure SessionManager implements the interface.
var _ driving.SessionManager = (*SessionManager)(nil)

// SessionManager keeps the session collection in memory and writes every
// change through to the key-value store. A change that fails to persist is
// rolled back. Messages staged on the active session are held back until the
// next switch or append.
type SessionManager struct {
	kv  driven.KeyValueStore
	now func() time.Time

	mu       sync.Mutex
	sessions []domain.Session
	activeID string
	staged   []domain.Message
}

// NewSessionManager creates a session manager. Call Load to restore state.
func NewSessionManager(kv driven.KeyValueStore) *SessionManager {
	return &SessionManager{
		kv:  kv,
		now: time.Now,
	}
}

// Load restores persisted sessions and the active session.
func (m *SessionManager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions = nil
	m.activeID = ""
	m.staged = nil

	raw, err := m.kv.Get(driven.KeySessions)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return &domain.StorageError{Op: "loading sessions", Err: err}
	}

	var sessions []domain.Session
	if err := json.Unmarshal(raw, &sessions); err != nil {
		logger.Warn("session state is corrupt, starting fresh: %v", err)
		return m.persistLocked()
	}
	m.sessions = sessions

	if current, err := m.kv.Get(driven.KeyCurrentSession); err == nil && m.indexLocked(string(current)) >= 0 {
		m.activeID = string(current)
	} else if len(m.sessions) > 0 {
		m.activeID = m.sessions[0].ID
	}

	logger.Debug("loaded %d sessions, active %q", len(m.sessions), m.activeID)
	return nil
}

// CreateSession prepends a new session and makes it active.
func (m *SessionManager) CreateSession(name string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshotLocked()
	m.flushLocked()

	name = strings.TrimSpace(name)
	if name == "" {
		name = domain.DefaultSessionName(len(m.sessions) + 1)
	}
	now := m.now()
	session := domain.Session{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []domain.Message{},
	}

	m.sessions = append([]domain.Session{session}, m.sessions...)
	m.activeID = session.ID
	if err := m.commitLocked(snap); err != nil {
		return nil, err
	}

	logger.Info("created session %s (%s)", session.Name, session.ID)
	return &session, nil
}

// SwitchSession flushes the active log and activates id.
func (m *SessionManager) SwitchSession(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.indexLocked(id) < 0 || id == m.activeID {
		return nil
	}

	snap := m.snapshotLocked()
	m.flushLocked()
	m.activeID = id
	return m.commitLocked(snap)
}

// DeleteSession removes id. When it was active the first remaining session
// takes over, or no session is active if none remain.
func (m *SessionManager) DeleteSession(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(id)
	if i < 0 {
		return nil
	}

	snap := m.snapshotLocked()
	m.sessions = append(m.sessions[:i], m.sessions[i+1:]...)
	if id == m.activeID {
		m.staged = nil
		m.activeID = ""
		if len(m.sessions) > 0 {
			m.activeID = m.sessions[0].ID
		}
	}
	return m.commitLocked(snap)
}

// RenameSession changes a session's display name.
func (m *SessionManager) RenameSession(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &domain.ValidationError{Field: "name", Reason: "empty"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	snap := m.snapshotLocked()
	m.sessions[i].Name = name
	m.sessions[i].UpdatedAt = m.now()
	return m.commitLocked(snap)
}

// AppendTurn appends the user message and reply as one unit. An empty id
// targets the active session. A staged copy of the user message is replaced
// by the persisted one, as is a copy already flushed into the session.
func (m *SessionManager) AppendTurn(id string, user, reply domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = m.activeID
	}
	if id == "" {
		return domain.ErrNoActiveSession
	}
	i := m.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	snap := m.snapshotLocked()
	now := m.now()
	user = stamp(user, now)
	m.staged = slices.DeleteFunc(m.staged, func(msg domain.Message) bool { return sameMessage(msg, user) })
	if id == m.activeID {
		m.flushLocked()
	}

	msgs := m.sessions[i].Messages
	if n := len(msgs); n == 0 || !sameMessage(msgs[n-1], user) {
		msgs = append(msgs, user)
	}
	m.sessions[i].Messages = append(msgs, stamp(reply, now))
	m.sessions[i].UpdatedAt = now
	return m.commitLocked(snap)
}

// StageMessage appends to the active session without persisting. Chat uses
// it to show a message while its reply is pending.
func (m *SessionManager) StageMessage(msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeID == "" {
		return domain.ErrNoActiveSession
	}
	m.staged = append(m.staged, stamp(msg, m.now()))
	return nil
}

// Current returns the active session including staged messages.
func (m *SessionManager) Current() (*domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(m.activeID)
	if i < 0 {
		return nil, false
	}
	s := m.sessions[i].Clone()
	s.Messages = append(s.Messages, m.staged...)
	return &s, true
}

// Get returns a session by id.
func (m *SessionManager) Get(id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(id)
	if i < 0 {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	s := m.sessions[i].Clone()
	if id == m.activeID {
		s.Messages = append(s.Messages, m.staged...)
	}
	return &s, nil
}

// List returns all sessions, newest first.
func (m *SessionManager) List() []domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Session, len(m.sessions))
	for i := range m.sessions {
		out[i] = m.sessions[i].Clone()
	}
	return out
}

// GroupByDay groups sessions by local creation date, keeping list order.
func (m *SessionManager) GroupByDay() []domain.SessionGroup {
	var groups []domain.SessionGroup
	index := make(map[string]int)
	for _, s := range m.List() {
		day := s.CreatedAt.Local().Format("2006-01-02")
		i, ok := index[day]
		if !ok {
			i = len(groups)
			index[day] = i
			groups = append(groups, domain.SessionGroup{Day: day})
		}
		groups[i].Sessions = append(groups[i].Sessions, s)
	}
	return groups
}

// flushLocked moves staged messages into the active session. The caller
// persists afterwards.
func (m *SessionManager) flushLocked() {
	if len(m.staged) == 0 {
		return
	}
	if i := m.indexLocked(m.activeID); i >= 0 {
		m.sessions[i].Messages = append(m.sessions[i].Messages, m.staged...)
		m.sessions[i].UpdatedAt = m.now()
	}
	m.staged = nil
}

// sessionState is the in-memory state a failed write restores.
type sessionState struct {
	sessions []domain.Session
	activeID string
	staged   []domain.Message
}

func (m *SessionManager) snapshotLocked() sessionState {
	return sessionState{
		sessions: slices.Clone(m.sessions),
		activeID: m.activeID,
		staged:   slices.Clone(m.staged),
	}
}

// commitLocked persists the current state, restoring snap on failure.
func (m *SessionManager) commitLocked(snap sessionState) error {
	err := m.persistLocked()
	if err != nil {
		m.sessions = snap.sessions
		m.activeID = snap.activeID
		m.staged = snap.staged
		logger.Warn("session change rolled back: %v", err)
	}
	return err
}

func (m *SessionManager) persistLocked() error {
	sessions := m.sessions
	if sessions == nil {
		sessions = []domain.Session{}
	}
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("encoding sessions: %w", err)
	}
	if err := m.kv.Set(driven.KeySessions, data); err != nil {
		return &domain.StorageError{Op: "saving sessions", Err: err}
	}

	if m.activeID == "" {
		err = m.kv.Delete(driven.KeyCurrentSession)
	} else {
		err = m.kv.Set(driven.KeyCurrentSession, []byte(m.activeID))
	}
	if err != nil {
		return &domain.StorageError{Op: "saving active session", Err: err}
	}
	return nil
}

func (m *SessionManager) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range m.sessions {
		if m.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

// sameMessage reports whether a and b are the same log entry.
func sameMessage(a, b domain.Message) bool {
	return a.Role == b.Role && a.Content == b.Content && a.Timestamp.Equal(b.Timestamp)
}

func stamp(msg domain.Message, now time.Time) domain.Message {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}
	return msg
}
