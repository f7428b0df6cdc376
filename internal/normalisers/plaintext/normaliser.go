// Package plaintext passes text files through unchanged.
package plaintext

import (
	"context"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/plain"}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".txt"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise returns the upload bytes as text. Invalid UTF-8 sequences are
// replaced so the stored content is always valid text.
func (n *Normaliser) Normalise(_ context.Context, upload *domain.Upload) (*driven.NormaliseResult, error) {
	if upload == nil {
		return nil, domain.ErrInvalidInput
	}

	content := string(upload.Content)
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "�")
	}

	return &driven.NormaliseResult{
		Content: content,
		Title:   extractTitle(upload.Filename),
	}, nil
}

// extractTitle extracts a human-readable title from a filename.
func extractTitle(filename string) string {
	filename = filepath.Base(filename)

	// Remove common extensions for cleaner title
	ext := filepath.Ext(filename)
	if ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}

	// Replace underscores and dashes with spaces
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")

	return filename
}
