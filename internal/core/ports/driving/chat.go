package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// ChatService runs the chat-send workflow: gather context, call the backend,
// append the turn to the session.
type ChatService interface {
	// Send posts message to the backend with context from the selected
	// documents. A failed completion appends an error turn and returns the error.
	Send(ctx context.Context, sessionID, message string, opts domain.SendOptions) (*domain.SendResult, error)

	// SelectDocuments applies the embedding policy to a new selection.
	SelectDocuments(ctx context.Context, ids []int64, progress ProgressReporter) error
}

// BackendService exposes account and persona operations of the chat backend.
type BackendService interface {
	// Login authenticates and stores the bearer token.
	Login(ctx context.Context, username, password string) (*domain.LoginResult, error)

	// Logout forgets the stored token.
	Logout() error

	// IsAuthenticated reports whether a token is stored.
	IsAuthenticated() bool

	// Health returns the backend status.
	Health(ctx context.Context) (string, error)

	// History returns server-side chat history. An empty sessionID means all.
	History(ctx context.Context, sessionID string) ([]domain.HistoryEntry, error)

	// ListPersonas returns all personas.
	ListPersonas(ctx context.Context) ([]domain.Persona, error)

	// CreatePersona adds a persona.
	CreatePersona(ctx context.Context, persona domain.Persona) (*domain.Persona, error)

	// SwitchPersona activates a persona by name.
	SwitchPersona(ctx context.Context, name string) error

	// DeletePersona removes a persona by id.
	DeletePersona(ctx context.Context, id string) error

	// SendFeedback rates a reply.
	SendFeedback(ctx context.Context, feedback domain.Feedback) error
}

// KnowledgeBaseService lists local documents together with server resources.
type KnowledgeBaseService interface {
	// List returns local documents first, then server resources when
	// authenticated. Server failures degrade to local only.
	List(ctx context.Context) ([]domain.KnowledgeEntry, error)
}
