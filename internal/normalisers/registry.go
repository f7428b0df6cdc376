package normalisers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
	"github.com/custodia-labs/docchat/internal/normalisers/markdown"
	"github.com/custodia-labs/docchat/internal/normalisers/pdf"
	"github.com/custodia-labs/docchat/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches uploads to registered normalisers.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewDefaultRegistry creates a registry with the built-in normalisers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(pdf.New())
	return r
}

// Register adds a normaliser, keeping the list sorted by descending priority.
func (r *Registry) Register(n driven.Normaliser) {
	if n == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.normalisers = append(r.normalisers, n)
	sort.SliceStable(r.normalisers, func(i, j int) bool {
		return r.normalisers[i].Priority() > r.normalisers[j].Priority()
	})
}

// SupportedMIMETypes returns all MIME types that can be normalised.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var types []string
	for _, n := range r.normalisers {
		for _, t := range n.SupportedMIMETypes() {
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}
	return types
}

// Normalise extracts text with the best matching normaliser. MIME type
// matches win over extension matches.
func (r *Registry) Normalise(ctx context.Context, upload *domain.Upload) (*driven.NormaliseResult, error) {
	if upload == nil {
		return nil, domain.ErrInvalidInput
	}

	n := r.find(upload)
	if n == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, upload.Filename)
	}

	logger.Debug("normalising %s with %T", upload.Filename, n)
	return n.Normalise(ctx, upload)
}

func (r *Registry) find(upload *domain.Upload) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mimeType := baseMIMEType(upload.MIMEType)
	if mimeType != "" {
		for _, n := range r.normalisers {
			if contains(n.SupportedMIMETypes(), mimeType) {
				return n
			}
		}
	}

	ext := upload.Extension()
	if ext != "" {
		for _, n := range r.normalisers {
			if contains(n.SupportedExtensions(), ext) {
				return n
			}
		}
	}
	return nil
}

// baseMIMEType strips parameters such as "; charset=utf-8".
func baseMIMEType(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
