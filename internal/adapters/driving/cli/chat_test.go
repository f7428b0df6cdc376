package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func TestChat_NoDocuments(t *testing.T) {
	env := setupTestServices(t)

	out, err := executeCommand(t, "chat", "what is due?", "--persona", "tutor")

	require.NoError(t, err)
	assert.Contains(t, out, "You: what is due?")
	assert.Contains(t, out, "Assistant: Here is what I found.")
	assert.Contains(t, out, "Source: notes.md")
	assert.Contains(t, out, "- Tell me more")
	assert.Contains(t, out, "Tokens: 10 prompt, 5 completion")
	assert.Contains(t, out, "Rate this reply: docchat feedback 42 <1-5>")
	assert.NotContains(t, out, "context items")

	req := env.backend.lastRequest()
	assert.Equal(t, "tutor", req.PersonaName)
	assert.Empty(t, req.Documents)
}

func TestChat_FullDocuments(t *testing.T) {
	env := setupTestServices(t)
	env.store(t, "notes.txt", "reports are due friday")

	out, err := executeCommand(t, "chat", "when are reports due?", "--doc", "1")

	require.NoError(t, err)
	assert.Contains(t, out, "(1 context items, full_documents)")

	req := env.backend.lastRequest()
	require.Len(t, req.Documents, 1)
	assert.Equal(t, "notes.txt", req.Documents[0].Filename)
	assert.Equal(t, "reports are due friday", req.Documents[0].Content)
	assert.Equal(t, domain.SearchMethodFullDocuments, req.SearchMethod)
}

func TestChat_SemanticContext(t *testing.T) {
	env := setupTestServices(t)
	initEngine(t)
	env.store(t, "fruit.txt", "apple orchard")
	env.store(t, "yellow.txt", "banana boat")
	_, err := executeCommand(t, "embed")
	require.NoError(t, err)

	out, err := executeCommand(t, "chat", "tell me about apple", "-d", "1", "-d", "2")

	require.NoError(t, err)
	assert.Contains(t, out, "semantic_search")
	req := env.backend.lastRequest()
	require.NotEmpty(t, req.Documents)
	assert.Equal(t, "fruit.txt", req.Documents[0].Filename)
	assert.Equal(t, domain.SearchMethodSemanticSearch, req.SearchMethod)
}

func TestChat_UnknownDocument(t *testing.T) {
	setupTestServices(t)

	_, err := executeCommand(t, "chat", "hi", "--doc", "5")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChat_BackendError(t *testing.T) {
	env := setupTestServices(t)
	env.backend.err = errors.New("backend down")

	out, err := executeCommand(t, "chat", "hello")

	require.Error(t, err)
	assert.Contains(t, out, "Error: backend down")

	current, ok := env.sessions.Current()
	require.True(t, ok)
	require.Len(t, current.Messages, 2)
	assert.Equal(t, domain.RoleError, current.Messages[1].Role)
}

func TestChat_EmptyMessage(t *testing.T) {
	setupTestServices(t)

	_, err := executeCommand(t, "chat", "   ")

	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
}
