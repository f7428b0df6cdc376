package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

var (
	searchTopK int
	searchDocs []int64
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Semantic search over embedded documents",
	Long: `Ranks cached chunks by cosine similarity to the query.
Documents must be embedded first with 'docchat embed'.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "maximum number of chunks (default from settings)")
	searchCmd.Flags().Int64SliceVar(&searchDocs, "doc", nil, "restrict to these document ids")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if embeddingEngine == nil {
		return errors.New("embedding engine not configured")
	}

	query := domain.SemanticQuery{
		Text:        args[0],
		TopK:        searchTopK,
		DocumentIDs: searchDocs,
	}

	results, err := embeddingEngine.SemanticSearch(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

// searchResultJSON is the --json shape of one result.
type searchResultJSON struct {
	DocumentID int64   `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Similarity float64 `json:"similarity"`
	Text       string  `json:"text"`
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	out := make([]searchResultJSON, len(results))
	for i, r := range results {
		out[i] = searchResultJSON{
			DocumentID: r.Chunk.DocumentID,
			Filename:   r.Chunk.DocumentFilename,
			ChunkIndex: r.Chunk.ChunkIndex,
			Similarity: r.Similarity,
			Text:       r.Chunk.Text,
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		chunk := results[i].Chunk
		cmd.Printf("  [%d] %s #%d (%.3f)\n", i+1, chunk.DocumentFilename, chunk.ChunkIndex, results[i].Similarity)
		cmd.Printf("      %s\n", snippet(chunk.Text, 160))
		cmd.Println()
	}
	return nil
}

// snippet collapses whitespace and truncates to maxLen runes.
func snippet(text string, maxLen int) string {
	s := strings.Join(strings.Fields(text), " ")
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
