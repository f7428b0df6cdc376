package mcp

import (
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls into.
type Ports struct {
	// Content reads and searches stored documents.
	Content driving.ContentService

	// Embedding answers semantic queries. Optional.
	Embedding driving.EmbeddingEngine
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Content == nil {
		return ErrMissingContentService
	}
	return nil
}
