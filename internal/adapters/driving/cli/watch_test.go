package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchOnce(t *testing.T) {
	env := setupTestServices(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha")
	writeFile(t, dir, "b.md", "# Beta")

	out, err := executeCommand(t, "watch", dir, "--once")

	require.NoError(t, err)
	assert.Contains(t, out, "Added 2, replaced 0, skipped 0, failed 0")

	docs, err := env.content.GetAllDocuments(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	out, err = executeCommand(t, "watch", dir, "--once")
	require.NoError(t, err)
	assert.Contains(t, out, "Added 0, replaced 0, skipped 2, failed 0")
}

func TestWatchOnce_Embed(t *testing.T) {
	env := setupTestServices(t)
	initEngine(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "apple")

	_, err := executeCommand(t, "watch", dir, "--once", "--embed")
	require.NoError(t, err)

	doc, err := env.content.GetDocument(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, doc.EmbeddingsGenerated)
}

func TestWatch_NotADirectory(t *testing.T) {
	setupTestServices(t)
	path := writeFile(t, t.TempDir(), "a.txt", "alpha")

	_, err := executeCommand(t, "watch", path, "--once")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a directory")

	_, err = executeCommand(t, "watch", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot watch")
}
