package normalisers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

type stubNormaliser struct {
	mimeTypes  []string
	extensions []string
	priority   int
	content    string
}

func (s *stubNormaliser) SupportedMIMETypes() []string  { return s.mimeTypes }
func (s *stubNormaliser) SupportedExtensions() []string { return s.extensions }
func (s *stubNormaliser) Priority() int                 { return s.priority }
func (s *stubNormaliser) Normalise(_ context.Context, _ *domain.Upload) (*driven.NormaliseResult, error) {
	return &driven.NormaliseResult{Content: s.content}, nil
}

func TestRegistry_PriorityOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubNormaliser{mimeTypes: []string{"text/plain"}, priority: 5, content: "low"})
	r.Register(&stubNormaliser{mimeTypes: []string{"text/plain"}, priority: 80, content: "high"})

	result, err := r.Normalise(context.Background(), &domain.Upload{Filename: "a.txt", MIMEType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, "high", result.Content)
}

func TestRegistry_MIMEParametersIgnored(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubNormaliser{mimeTypes: []string{"text/plain"}, priority: 5, content: "plain"})

	result, err := r.Normalise(context.Background(), &domain.Upload{Filename: "a", MIMEType: "text/plain; charset=utf-8"})
	require.NoError(t, err)
	assert.Equal(t, "plain", result.Content)
}

func TestRegistry_FallsBackToExtension(t *testing.T) {
	r := NewDefaultRegistry()

	upload := &domain.Upload{Filename: "README.MD", MIMEType: "application/octet-stream", Content: []byte("# Hello\n")}
	result, err := r.Normalise(context.Background(), upload)
	require.NoError(t, err)
	assert.Equal(t, "Hello", result.Title)
}

func TestRegistry_Unsupported(t *testing.T) {
	r := NewDefaultRegistry()

	_, err := r.Normalise(context.Background(), &domain.Upload{Filename: "photo.png", MIMEType: "image/png"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestRegistry_NilUpload(t *testing.T) {
	_, err := NewDefaultRegistry().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRegistry_SupportedMIMETypes(t *testing.T) {
	types := NewDefaultRegistry().SupportedMIMETypes()
	assert.Contains(t, types, "text/plain")
	assert.Contains(t, types, "text/markdown")
	assert.Contains(t, types, "application/pdf")
}

func TestRegistry_RegisterNil(t *testing.T) {
	r := NewRegistry()
	r.Register(nil)
	assert.Empty(t, r.SupportedMIMETypes())
}
