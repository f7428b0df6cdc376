// Package markdown normalises Markdown uploads. The markdown source is
// stored as-is; the first heading is offered as the document title.
package markdown

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct {
	md goldmark.Markdown
}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".md", ".markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// Normalise keeps the markdown source and extracts a title.
func (n *Normaliser) Normalise(_ context.Context, upload *domain.Upload) (*driven.NormaliseResult, error) {
	if upload == nil {
		return nil, domain.ErrInvalidInput
	}

	title := n.firstHeading(upload.Content)
	if title == "" {
		title = titleFromFilename(upload.Filename)
	}

	return &driven.NormaliseResult{
		Content: string(upload.Content),
		Title:   title,
	}, nil
}

// firstHeading returns the text of the first heading of any level.
func (n *Normaliser) firstHeading(src []byte) string {
	doc := n.md.Parser().Parse(text.NewReader(src))

	var title string
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if heading, ok := node.(*ast.Heading); ok {
			title = strings.TrimSpace(inlineText(heading, src))
			if title != "" {
				return ast.WalkStop, nil
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return title
}

// inlineText concatenates the literal text beneath node.
func inlineText(node ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			buf.Write(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(v.Value)
		default:
			buf.WriteString(inlineText(c, src))
		}
	}
	return buf.String()
}

func titleFromFilename(filename string) string {
	filename = filepath.Base(filename)
	ext := filepath.Ext(filename)
	if ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
