package pdf

import (
	"context"
	"strings"
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
	assert.Equal(t, []string{"application/pdf"}, normaliser.SupportedMIMETypes())
	assert.Equal(t, []string{".pdf"}, normaliser.SupportedExtensions())
	assert.Equal(t, 50, normaliser.Priority())
}

func TestNormalise_NilUpload(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_Empty(t *testing.T) {
	result, err := New().Normalise(context.Background(), &domain.Upload{Filename: "a.pdf"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_NotAPDF(t *testing.T) {
	upload := &domain.Upload{Filename: "fake.pdf", Content: []byte("just some text pretending")}
	result, err := New().Normalise(context.Background(), upload)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{name: "first line as title", content: "Document Title\n\nSome content here.", expected: "Document Title"},
		{name: "skip empty lines", content: "\n\n\nActual Title\nContent", expected: "Actual Title"},
		{name: "empty content", content: "", expected: ""},
		{name: "skip very long first line", content: strings.Repeat("x", 250) + "\nShort Title\nContent", expected: "Short Title"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, extractTitle(tc.content))
		})
	}
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}
