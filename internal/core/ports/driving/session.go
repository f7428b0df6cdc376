package driving

import "github.com/custodia-labs/docchat/internal/core/domain"

// SessionManager owns chat sessions and their message logs.
// Every mutation is written through to the key-value store.
type SessionManager interface {
	// Load restores persisted sessions and the active session.
	// Corrupt state is replaced by an empty collection.
	Load() error

	// CreateSession prepends a new session and makes it active.
	// An empty name becomes "Session N".
	CreateSession(name string) (*domain.Session, error)

	// SwitchSession flushes the active log and activates id.
	// Unknown ids are a no-op.
	SwitchSession(id string) error

	// DeleteSession removes id, promoting the first remaining session when
	// it was active. Unknown ids are ignored.
	DeleteSession(id string) error

	// RenameSession changes a session's display name.
	RenameSession(id, name string) error

	// AppendTurn appends the user message and reply as one unit. A staged
	// or already flushed copy of user is not duplicated.
	AppendTurn(id string, user, reply domain.Message) error

	// StageMessage appends to the active in-memory log without persisting.
	// The message is flushed by the next switch or append. Chat stages the
	// user message while waiting for the backend so Current shows it.
	StageMessage(msg domain.Message) error

	// Current returns the active session, including staged messages.
	Current() (*domain.Session, bool)

	// Get returns a session by id.
	Get(id string) (*domain.Session, error)

	// List returns all sessions, newest first.
	List() []domain.Session

	// GroupByDay groups sessions by their creation date.
	GroupByDay() []domain.SessionGroup
}
