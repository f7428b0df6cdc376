package auth

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// TokenSourceAdapter adapts a driven.TokenProvider to oauth2.TokenSource so
// that oauth2.NewClient can attach the bearer header to backend requests.
type TokenSourceAdapter struct {
	provider driven.TokenProvider
	ctx      context.Context
}

// NewTokenSource creates an oauth2.TokenSource from a TokenProvider.
func NewTokenSource(ctx context.Context, provider driven.TokenProvider) oauth2.TokenSource {
	return &TokenSourceAdapter{
		provider: provider,
		ctx:      ctx,
	}
}

// Token implements oauth2.TokenSource. The token is read on every request,
// so a login or logout takes effect without rebuilding the client.
func (t *TokenSourceAdapter) Token() (*oauth2.Token, error) {
	accessToken, err := t.provider.GetToken(t.ctx)
	if err != nil {
		return nil, err
	}

	return &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}, nil
}
