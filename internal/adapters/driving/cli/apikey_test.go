package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func TestAPIKeySet(t *testing.T) {
	env := setupTestServices(t)

	out, err := executeCommand(t, "apikey", "set", "key-1234567890")

	require.NoError(t, err)
	assert.Contains(t, out, "API key saved. Semantic search is enabled.")
	assert.True(t, env.engine.IsInitialized())
}

func TestAPIKeySet_FromInput(t *testing.T) {
	env := setupTestServices(t)

	out, err := executeCommandWithInput(t, "key-from-stdin\n", "apikey", "set")

	require.NoError(t, err)
	assert.Contains(t, out, "API key: ")
	assert.Equal(t, "key-from-stdin", env.engine.APIKey())
}

func TestAPIKeySet_Empty(t *testing.T) {
	setupTestServices(t)

	_, err := executeCommandWithInput(t, "\n", "apikey", "set")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingAPIKey)
}

func TestAPIKeyStatus(t *testing.T) {
	setupTestServices(t)

	out, err := executeCommand(t, "apikey", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "API Key: (not set)")
	assert.Contains(t, out, "Status: not initialised")

	_, err = executeCommand(t, "apikey", "set", "key-1234567890")
	require.NoError(t, err)

	out, err = executeCommand(t, "apikey", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "API Key: key-...7890")
	assert.Contains(t, out, "Status: ready")
	assert.NotContains(t, out, "key-1234567890")
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcd...wxyz", maskAPIKey("abcdefghijklmnopqrstuvwxyz"))
}
