package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDocumentCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, cmd := range documentCmd.Commands() {
		names = append(names, cmd.Name())
	}

	for _, want := range []string{"upload", "list", "get", "update", "delete", "search", "stats", "clear", "export", "import"} {
		assert.Contains(t, names, want)
	}
}

func TestDocumentUpload(t *testing.T) {
	env := setupTestServices(t)
	dir := t.TempDir()
	notes := writeFile(t, dir, "notes.md", "# Deadlines\n\nReports are due on Friday.")
	image := writeFile(t, dir, "photo.png", "not text")

	out, err := executeCommand(t, "document", "upload", notes, image, "--tags", "work,urgent")

	require.NoError(t, err)
	assert.Contains(t, out, "Uploaded notes.md as document 1")
	assert.Contains(t, out, "Skipped "+image)

	docs, err := env.content.GetAllDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, []string{"work", "urgent"}, docs[0].Tags)
	assert.Equal(t, "Deadlines", docs[0].Description)
}

func TestDocumentUpload_AllFailed(t *testing.T) {
	setupTestServices(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "a.txt", "same text")

	_, err := executeCommand(t, "document", "upload", path)
	require.NoError(t, err)

	out, err := executeCommand(t, "document", "upload", path)

	require.Error(t, err)
	assert.Contains(t, out, "identical content")
}

func TestDocumentUpload_RequiresArgs(t *testing.T) {
	_, err := executeCommand(t, "document", "upload")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestDocumentList(t *testing.T) {
	env := setupTestServices(t)

	out, err := executeCommand(t, "document", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No documents uploaded yet.")

	env.store(t, "a.txt", "alpha")
	env.store(t, "b.txt", "beta")

	out, err = executeCommand(t, "document", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "[1] a.txt")
	assert.Contains(t, out, "[2] b.txt")
	assert.Contains(t, out, "Total: 2 documents")
}

func TestDocumentGet(t *testing.T) {
	env := setupTestServices(t)
	doc := env.store(t, "a.txt", "alpha text")

	out, err := executeCommand(t, "document", "get", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Filename:    a.txt")
	assert.Contains(t, out, doc.ContentHash)
	assert.NotContains(t, out, "alpha text")

	out, err = executeCommand(t, "document", "get", "1", "--content")
	require.NoError(t, err)
	assert.Contains(t, out, "alpha text")
}

func TestDocumentGet_Errors(t *testing.T) {
	setupTestServices(t)

	_, err := executeCommand(t, "document", "get", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid document id")

	_, err = executeCommand(t, "document", "get", "9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDocumentUpdate(t *testing.T) {
	env := setupTestServices(t)
	env.store(t, "a.txt", "alpha")

	out, err := executeCommand(t, "document", "update", "1", "--filename", "renamed.txt", "--tags", "x")
	require.NoError(t, err)
	assert.Contains(t, out, "Document 1 updated.")

	doc, err := env.content.GetDocument(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "renamed.txt", doc.Filename)
	assert.Equal(t, []string{"x"}, doc.Tags)

	_, err = executeCommand(t, "document", "update", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to update")
}

func TestDocumentDeleteAndSearch(t *testing.T) {
	env := setupTestServices(t)
	env.store(t, "apple.txt", "apple pie recipe")
	env.store(t, "other.txt", "nothing relevant")

	out, err := executeCommand(t, "document", "search", "APPLE")
	require.NoError(t, err)
	assert.Contains(t, out, "apple.txt")
	assert.NotContains(t, out, "other.txt")

	out, err = executeCommand(t, "document", "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Document 1 deleted.")

	out, err = executeCommand(t, "document", "search", "apple")
	require.NoError(t, err)
	assert.Contains(t, out, "No matching documents.")
}

func TestDocumentStats(t *testing.T) {
	env := setupTestServices(t)
	env.store(t, "a.txt", "alpha")
	env.store(t, "b.md", "# beta")

	out, err := executeCommand(t, "document", "stats")

	require.NoError(t, err)
	assert.Contains(t, out, "Documents: 2")
	assert.Contains(t, out, ".md: 1")
	assert.Contains(t, out, ".txt: 1")
}

func TestDocumentClear_RequiresYes(t *testing.T) {
	env := setupTestServices(t)
	env.store(t, "a.txt", "alpha")

	_, err := executeCommand(t, "document", "clear")
	require.Error(t, err)

	out, err := executeCommand(t, "document", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "All documents and embeddings deleted.")

	docs, err := env.content.GetAllDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDocumentExportImport(t *testing.T) {
	env := setupTestServices(t)
	env.store(t, "a.txt", "alpha")
	backup := filepath.Join(t.TempDir(), "backup.json")

	out, err := executeCommand(t, "document", "export", backup)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 documents")

	out, err = executeCommand(t, "document", "import", backup)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 documents.")

	docs, err := env.content.GetAllDocuments(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestDocumentImport_InvalidBackup(t *testing.T) {
	setupTestServices(t)
	path := writeFile(t, t.TempDir(), "bad.json", `{"version":"1.0"}`)

	_, err := executeCommand(t, "document", "import", path)

	assert.ErrorIs(t, err, domain.ErrInvalidBackup)
}
