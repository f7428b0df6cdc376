package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// Normaliser extracts text from an uploaded file.
// Each normaliser handles specific MIME types (e.g., PDF, Markdown).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// SupportedExtensions returns file extensions (with dot) this normaliser handles.
	SupportedExtensions() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise extracts the text of an upload.
	Normalise(ctx context.Context, upload *domain.Upload) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
type NormaliseResult struct {
	// Content is the extracted text stored on the document.
	Content string

	// Title is a suggested description, e.g. the first heading.
	Title string
}
