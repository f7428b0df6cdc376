package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure KVTokenProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*KVTokenProvider)(nil)

// KVTokenProvider serves the backend bearer token stored under
// driven.KeyAuthToken. Tokens are opaque and not refreshed; an expired
// token surfaces as domain.ErrUnauthenticated from the backend.
type KVTokenProvider struct {
	store driven.KeyValueStore
}

// NewKVTokenProvider creates a token provider backed by the key-value store.
func NewKVTokenProvider(store driven.KeyValueStore) *KVTokenProvider {
	return &KVTokenProvider{store: store}
}

// GetToken returns the stored token or domain.ErrUnauthenticated.
func (p *KVTokenProvider) GetToken(_ context.Context) (string, error) {
	raw, err := p.store.Get(driven.KeyAuthToken)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.ErrUnauthenticated
	}
	if err != nil {
		return "", fmt.Errorf("read auth token: %w", err)
	}
	if len(raw) == 0 {
		return "", domain.ErrUnauthenticated
	}
	return string(raw), nil
}

// SetToken stores a token returned by login.
func (p *KVTokenProvider) SetToken(token string) error {
	if token == "" {
		return &domain.ValidationError{Field: "token", Reason: "empty"}
	}
	return p.store.Set(driven.KeyAuthToken, []byte(token))
}

// Clear forgets the stored token.
func (p *KVTokenProvider) Clear() error {
	return p.store.Delete(driven.KeyAuthToken)
}

// IsAuthenticated returns true if a non-empty token is stored.
func (p *KVTokenProvider) IsAuthenticated() bool {
	raw, err := p.store.Get(driven.KeyAuthToken)
	return err == nil && len(raw) > 0
}
