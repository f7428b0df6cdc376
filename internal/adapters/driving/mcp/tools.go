package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// Default result caps.
const (
	defaultTopK        = 5
	defaultSearchLimit = 10
	excerptLength      = 300
)

// SemanticSearchInput is the input schema for the semantic_search tool.
type SemanticSearchInput struct {
	Query       string  `json:"query" jsonschema:"natural-language question to match against document chunks"`
	TopK        int     `json:"top_k,omitempty" jsonschema:"maximum number of chunks to return (default 5)"`
	DocumentIDs []int64 `json:"document_ids,omitempty" jsonschema:"restrict the search to these document ids"`
}

// SemanticSearchOutput is the output schema for the semantic_search tool.
type SemanticSearchOutput struct {
	Results []ChunkOutput `json:"results"`
	Count   int           `json:"count"`
}

// ChunkOutput is one ranked chunk.
type ChunkOutput struct {
	DocumentID int64   `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Similarity float64 `json:"similarity"`
	Text       string  `json:"text"`
}

// SearchDocumentsInput is the input schema for the search_documents tool.
type SearchDocumentsInput struct {
	Query string `json:"query" jsonschema:"text to find in filenames and content (case-insensitive)"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of documents to return (default 10)"`
}

// DocumentListOutput is the output schema for search_documents and list_documents.
type DocumentListOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput summarises one stored document.
type DocumentOutput struct {
	ID          int64     `json:"id"`
	Filename    string    `json:"filename"`
	FileType    string    `json:"file_type"`
	FileSize    int64     `json:"file_size"`
	UploadDate  time.Time `json:"upload_date"`
	Embedded    bool      `json:"embedded"`
	Tags        []string  `json:"tags,omitempty"`
	Description string    `json:"description,omitempty"`
	URI         string    `json:"uri"`
	Excerpt     string    `json:"excerpt,omitempty"`
}

// ListDocumentsInput is the (empty) input schema for list_documents.
type ListDocumentsInput struct{}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "semantic_search",
		Description: "Find the document chunks most similar in meaning to a question",
	}, s.handleSemanticSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_documents",
		Description: "Find documents whose filename or text contains a phrase",
	}, s.handleSearchDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List every document in the local library, newest first",
	}, s.handleListDocuments)
}

func (s *Server) handleSemanticSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SemanticSearchInput,
) (*mcp.CallToolResult, SemanticSearchOutput, error) {
	if s.ports.Embedding == nil || !s.ports.Embedding.IsInitialized() {
		return nil, SemanticSearchOutput{}, ErrSemanticSearchUnavailable
	}

	topK := input.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	results, err := s.ports.Embedding.SemanticSearch(ctx, domain.SemanticQuery{
		Text:        input.Query,
		TopK:        topK,
		DocumentIDs: input.DocumentIDs,
	})
	if err != nil {
		return nil, SemanticSearchOutput{}, err
	}

	output := SemanticSearchOutput{
		Results: make([]ChunkOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		chunk := results[i].Chunk
		output.Results[i] = ChunkOutput{
			DocumentID: chunk.DocumentID,
			Filename:   chunk.DocumentFilename,
			ChunkIndex: chunk.ChunkIndex,
			Similarity: results[i].Similarity,
			Text:       chunk.Text,
		}
	}

	return nil, output, nil
}

func (s *Server) handleSearchDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchDocumentsInput,
) (*mcp.CallToolResult, DocumentListOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	docs, err := s.ports.Content.SearchDocuments(ctx, input.Query)
	if err != nil {
		return nil, DocumentListOutput{}, err
	}
	if len(docs) > limit {
		docs = docs[:limit]
	}

	return nil, toDocumentList(docs, true), nil
}

func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, DocumentListOutput, error) {
	docs, err := s.ports.Content.GetAllDocuments(ctx)
	if err != nil {
		return nil, DocumentListOutput{}, err
	}
	return nil, toDocumentList(docs, false), nil
}

func toDocumentList(docs []domain.Document, withExcerpt bool) DocumentListOutput {
	out := DocumentListOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		d := &docs[i]
		out.Documents[i] = DocumentOutput{
			ID:          d.ID,
			Filename:    d.Filename,
			FileType:    d.FileType,
			FileSize:    d.FileSize,
			UploadDate:  d.UploadDate,
			Embedded:    d.EmbeddingsGenerated,
			Tags:        d.Tags,
			Description: d.Description,
			URI:         documentURI(d.ID),
		}
		if withExcerpt {
			out.Documents[i].Excerpt = excerpt(d.Content)
		}
	}
	return out
}

func excerpt(text string) string {
	r := []rune(text)
	if len(r) <= excerptLength {
		return text
	}
	return string(r[:excerptLength]) + "..."
}
