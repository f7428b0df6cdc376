// Package mcp provides an MCP (Model Context Protocol) server adapter for docchat.
// It lets AI assistants search and read the local document library.
package mcp

import "errors"

// ErrMissingContentService is returned when the content service is not provided.
var ErrMissingContentService = errors.New("mcp: content service is required")

// ErrSemanticSearchUnavailable is returned by semantic_search when no
// embedding engine is wired or it has no provider yet.
var ErrSemanticSearchUnavailable = errors.New("mcp: semantic search unavailable, set an API key with 'docchat apikey set'")
