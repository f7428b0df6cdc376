// Package pdf extracts plain text from PDF uploads.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// maxTitleLength bounds the first-line title heuristic.
const maxTitleLength = 200

// Normaliser handles PDF documents.
type Normaliser struct{}

// New creates a new PDF normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts the text of every page, separated by blank lines.
func (n *Normaliser) Normalise(ctx context.Context, upload *domain.Upload) (*driven.NormaliseResult, error) {
	if upload == nil {
		return nil, domain.ErrInvalidInput
	}
	if len(upload.Content) == 0 {
		return nil, &domain.ValidationError{Field: "content", Reason: "empty PDF"}
	}

	reader, err := pdf.NewReader(bytes.NewReader(upload.Content), int64(len(upload.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: reading pdf %s: %v", domain.ErrInvalidInput, upload.Filename, err)
	}

	var pages []string
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("pdf %s: skipping page %d: %v", upload.Filename, i, err)
			continue
		}
		if s := strings.TrimSpace(pageText); s != "" {
			pages = append(pages, s)
		}
	}

	logger.Debug("pdf %s: extracted %d of %d pages", upload.Filename, len(pages), numPages)

	content := strings.Join(pages, "\n\n")
	return &driven.NormaliseResult{
		Content: content,
		Title:   extractTitle(content),
	}, nil
}

// extractTitle uses the first short non-empty line as a title.
func extractTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && len(line) <= maxTitleLength {
			return line
		}
	}
	return ""
}
