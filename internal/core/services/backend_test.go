package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/adapters/driven/auth"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

func setupBackendService(t *testing.T) (*BackendService, *fakeBackend, *memory.KeyValueStore) {
	t.Helper()
	kv := memory.NewKeyValueStore()
	backend := &fakeBackend{loginToken: "tok-123"}
	return NewBackendService(backend, kv), backend, kv
}

func TestBackendService_LoginStoresToken(t *testing.T) {
	svc, _, kv := setupBackendService(t)
	ctx := context.Background()

	assert.False(t, svc.IsAuthenticated())

	result, err := svc.Login(ctx, " alice ", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", result.Token)
	assert.Equal(t, "alice", result.User["username"])
	assert.True(t, svc.IsAuthenticated())

	raw, err := kv.Get(driven.KeyAuthToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", string(raw))

	// The adapter-side provider sees the same token
	token, err := auth.NewKVTokenProvider(kv).GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)

	require.NoError(t, svc.Logout())
	assert.False(t, svc.IsAuthenticated())
	require.NoError(t, svc.Logout(), "logout is idempotent")
}

func TestBackendService_LoginFailures(t *testing.T) {
	svc, _, kv := setupBackendService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "", "secret")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Login(ctx, "alice", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Login(ctx, "alice", "wrong")
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Invalid credentials", pe.Message)

	_, err = kv.Get(driven.KeyAuthToken)
	assert.ErrorIs(t, err, domain.ErrNotFound, "failed logins store nothing")
}

func TestBackendService_Personas(t *testing.T) {
	svc, backend, _ := setupBackendService(t)
	ctx := context.Background()

	created, err := svc.CreatePersona(ctx, domain.Persona{Name: " tutor ", Prompt: "Teach."})
	require.NoError(t, err)
	assert.Equal(t, "tutor", created.Name)
	assert.Equal(t, "tutor", created.DisplayName, "display name defaults to the name")
	assert.Equal(t, int64(1), created.ID)

	_, err = svc.CreatePersona(ctx, domain.Persona{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	personas, err := svc.ListPersonas(ctx)
	require.NoError(t, err)
	assert.Len(t, personas, 1)

	require.NoError(t, svc.SwitchPersona(ctx, "tutor"))
	assert.Equal(t, "tutor", backend.switched)
	assert.ErrorIs(t, svc.SwitchPersona(ctx, ""), domain.ErrInvalidInput)

	require.NoError(t, svc.DeletePersona(ctx, "1"))
	assert.Equal(t, "1", backend.deleted)
	assert.ErrorIs(t, svc.DeletePersona(ctx, " "), domain.ErrInvalidInput)
}

func TestBackendService_CreatePersonaConflict(t *testing.T) {
	svc, backend, _ := setupBackendService(t)
	backend.err = &domain.ProviderError{Provider: "backend", StatusCode: 409, Err: domain.ErrAlreadyExists}

	_, err := svc.CreatePersona(context.Background(), domain.Persona{Name: "tutor"})
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
	assert.Contains(t, err.Error(), `"tutor"`)
}

func TestBackendService_Feedback(t *testing.T) {
	svc, backend, _ := setupBackendService(t)
	ctx := context.Background()

	require.NoError(t, svc.SendFeedback(ctx, domain.Feedback{ChatHistoryID: 7, Rating: 5, Comment: "great"}))
	require.Len(t, backend.feedback, 1)
	assert.Equal(t, int64(7), backend.feedback[0].ChatHistoryID)

	tests := []struct {
		name     string
		feedback domain.Feedback
		field    string
	}{
		{"rating too low", domain.Feedback{ChatHistoryID: 1, Rating: 0}, "Rating"},
		{"rating too high", domain.Feedback{ChatHistoryID: 1, Rating: 6}, "Rating"},
		{"missing history id", domain.Feedback{Rating: 3}, "ChatHistoryID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.SendFeedback(ctx, tt.feedback)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
	assert.Len(t, backend.feedback, 1, "invalid feedback is never sent")
}

func TestBackendService_History(t *testing.T) {
	svc, backend, _ := setupBackendService(t)
	backend.history = []domain.HistoryEntry{
		{ID: 1, SessionID: "a", Message: "q1"},
		{ID: 2, SessionID: "b", Message: "q2"},
	}

	all, err := svc.History(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyB, err := svc.History(context.Background(), "b")
	require.NoError(t, err)
	require.Len(t, onlyB, 1)
	assert.Equal(t, "q2", onlyB[0].Message)
}

func TestKnowledgeBaseService_List(t *testing.T) {
	content, store := setupContentService(t)
	ctx := context.Background()
	kv := memory.NewKeyValueStore()
	backend := &fakeBackend{resources: []domain.Resource{
		{ID: 1, Filename: "policy.md", FileSize: 120},
		{ID: 2, Filepath: "kb/faq.md"},
	}}

	older, err := content.StoreDocument(ctx, textUpload("older.txt", "one"), domain.DocumentMetadata{})
	require.NoError(t, err)
	newer, err := content.StoreDocument(ctx, textUpload("newer.txt", "two"), domain.DocumentMetadata{})
	require.NoError(t, err)

	// Pin upload dates so ordering does not depend on the clock
	older.UploadDate = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer.UploadDate = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveDocument(ctx, older))
	require.NoError(t, store.SaveDocument(ctx, newer))

	svc := NewKnowledgeBaseService(content, backend, auth.NewKVTokenProvider(kv))

	entries, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2, "server resources need a token")
	assert.Equal(t, "newer.txt", entries[0].Name)
	assert.Equal(t, domain.OriginLocal, entries[0].Origin)

	require.NoError(t, kv.Set(driven.KeyAuthToken, []byte("tok")))
	entries, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, domain.OriginServer, entries[2].Origin)
	assert.Equal(t, "policy.md", entries[2].Name)
	assert.Equal(t, int64(120), entries[2].Size)
	assert.Equal(t, "kb/faq.md", entries[3].Name)

	backend.err = errors.New("connection refused")
	entries, err = svc.List(ctx)
	require.NoError(t, err, "server failures degrade to local only")
	assert.Len(t, entries, 2)
}
