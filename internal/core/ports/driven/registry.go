package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// NormaliserRegistry selects the appropriate normaliser for an upload.
// It maintains a priority-ordered list of normalisers and dispatches
// on MIME type first, then file extension.
type NormaliserRegistry interface {
	// Normalise extracts text using the best matching normaliser.
	// Returns domain.ErrUnsupportedType if nothing matches.
	Normalise(ctx context.Context, upload *domain.Upload) (*NormaliseResult, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedMIMETypes returns all MIME types that can be normalised.
	SupportedMIMETypes() []string
}
