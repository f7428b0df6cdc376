package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure BackendService implements the interface.
var _ driving.BackendService = (*BackendService)(nil)

// BackendService wraps the chat backend's account, persona and feedback
// endpoints. The bearer token lives in the key-value store.
type BackendService struct {
	backend driven.ChatBackend
	kv      driven.KeyValueStore
}

// NewBackendService creates a backend service.
func NewBackendService(backend driven.ChatBackend, kv driven.KeyValueStore) *BackendService {
	return &BackendService{backend: backend, kv: kv}
}

// Login authenticates and stores the bearer token.
func (s *BackendService) Login(ctx context.Context, username, password string) (*domain.LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, &domain.ValidationError{Field: "username", Reason: "empty"}
	}
	if password == "" {
		return nil, &domain.ValidationError{Field: "password", Reason: "empty"}
	}

	result, err := s.backend.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if err := s.kv.Set(driven.KeyAuthToken, []byte(result.Token)); err != nil {
		return nil, &domain.StorageError{Op: "saving auth token", Err: err}
	}

	logger.Info("logged in as %s", username)
	return result, nil
}

// Logout forgets the stored token.
func (s *BackendService) Logout() error {
	if err := s.kv.Delete(driven.KeyAuthToken); err != nil {
		return &domain.StorageError{Op: "removing auth token", Err: err}
	}
	return nil
}

// IsAuthenticated reports whether a token is stored.
func (s *BackendService) IsAuthenticated() bool {
	token, err := s.kv.Get(driven.KeyAuthToken)
	return err == nil && len(token) > 0
}

// Health returns the backend status.
func (s *BackendService) Health(ctx context.Context) (string, error) {
	return s.backend.Health(ctx)
}

// History returns server-side chat history.
func (s *BackendService) History(ctx context.Context, sessionID string) ([]domain.HistoryEntry, error) {
	return s.backend.History(ctx, sessionID)
}

// ListPersonas returns all personas.
func (s *BackendService) ListPersonas(ctx context.Context) ([]domain.Persona, error) {
	return s.backend.ListPersonas(ctx)
}

// CreatePersona validates and adds a persona.
func (s *BackendService) CreatePersona(ctx context.Context, persona domain.Persona) (*domain.Persona, error) {
	persona.Name = strings.TrimSpace(persona.Name)
	if err := validateStruct(persona); err != nil {
		return nil, err
	}
	if persona.DisplayName == "" {
		persona.DisplayName = persona.Name
	}

	created, err := s.backend.CreatePersona(ctx, persona)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("persona %q: %w", persona.Name, err)
		}
		return nil, err
	}
	return created, nil
}

// SwitchPersona activates a persona by name.
func (s *BackendService) SwitchPersona(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &domain.ValidationError{Field: "persona_name", Reason: "empty"}
	}
	return s.backend.SwitchPersona(ctx, name)
}

// DeletePersona removes a persona by id.
func (s *BackendService) DeletePersona(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &domain.ValidationError{Field: "id", Reason: "empty"}
	}
	return s.backend.DeletePersona(ctx, id)
}

// SendFeedback validates and submits a rating.
func (s *BackendService) SendFeedback(ctx context.Context, feedback domain.Feedback) error {
	if err := validateStruct(feedback); err != nil {
		return err
	}
	return s.backend.SendFeedback(ctx, feedback)
}
