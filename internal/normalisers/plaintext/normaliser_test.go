package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.IsType(t, &Normaliser{}, normaliser)
}

func TestSupportedTypes(t *testing.T) {
	normaliser := New()
	assert.Equal(t, []string{"text/plain"}, normaliser.SupportedMIMETypes())
	assert.Equal(t, []string{".txt"}, normaliser.SupportedExtensions())
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 5, New().Priority())
}

func TestNormalise_Success(t *testing.T) {
	normaliser := New()

	upload := &domain.Upload{
		Filename: "my_notes-2024.txt",
		MIMEType: "text/plain",
		Content:  []byte("This is plain text content.\n"),
	}

	result, err := normaliser.Normalise(context.Background(), upload)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "This is plain text content.\n", result.Content)
	assert.Equal(t, "my notes 2024", result.Title)
}

func TestNormalise_InvalidUTF8(t *testing.T) {
	upload := &domain.Upload{
		Filename: "bad.txt",
		Content:  []byte{'o', 'k', 0xff, '!'},
	}

	result, err := New().Normalise(context.Background(), upload)
	require.NoError(t, err)
	assert.Equal(t, "ok�!", result.Content)
}

func TestNormalise_EmptyContent(t *testing.T) {
	result, err := New().Normalise(context.Background(), &domain.Upload{Filename: "empty.txt"})
	require.NoError(t, err)
	assert.Empty(t, result.Content)
}

func TestNormalise_NilUpload(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}
