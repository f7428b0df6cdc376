package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// ChatBackend is the remote chat product reached over HTTP/JSON.
// Every method except Login and Health needs a bearer token.
type ChatBackend interface {
	// Login exchanges credentials for a bearer token.
	Login(ctx context.Context, username, password string) (*domain.LoginResult, error)

	// Health returns the backend status string.
	Health(ctx context.Context) (string, error)

	// SendMessage asks for a completion without client-side documents.
	SendMessage(ctx context.Context, req domain.ChatRequest) (*domain.ChatReply, error)

	// SendClientDocuments asks for a completion grounded on req.Documents.
	SendClientDocuments(ctx context.Context, req domain.ChatRequest) (*domain.ChatReply, error)

	// History returns the latest server-side chat history, optionally
	// filtered to one session.
	History(ctx context.Context, sessionID string) ([]domain.HistoryEntry, error)

	// ListPersonas returns the configured personas.
	ListPersonas(ctx context.Context) ([]domain.Persona, error)

	// CreatePersona adds a persona.
	CreatePersona(ctx context.Context, persona domain.Persona) (*domain.Persona, error)

	// SwitchPersona makes the named persona active.
	SwitchPersona(ctx context.Context, name string) error

	// DeletePersona removes a persona by id.
	DeletePersona(ctx context.Context, id string) error

	// SendFeedback rates a reply.
	SendFeedback(ctx context.Context, feedback domain.Feedback) error

	// ListResources returns the server knowledge-base files.
	ListResources(ctx context.Context) ([]domain.Resource, error)
}

// TokenProvider provides bearer tokens for authenticated backend calls.
type TokenProvider interface {
	// GetToken returns the current token or domain.ErrUnauthenticated.
	GetToken(ctx context.Context) (string, error)

	// IsAuthenticated returns true if a token is available.
	IsAuthenticated() bool
}
