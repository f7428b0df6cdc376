package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

var embedCmd = &cobra.Command{
	Use:   "embed [doc-id...]",
	Short: "Generate embeddings for documents",
	Long: `Generate and cache embeddings for the given documents, or for every
document when no ids are given. Chunks already cached are reused, so an
interrupted run only fills the gaps when repeated.`,
	Args: cobra.ArbitraryArgs,
	RunE: runEmbed,
}

var embedStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show embedding cache statistics",
	Args:  cobra.NoArgs,
	RunE:  runEmbedStats,
}

var embedClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached embedding",
	Args:  cobra.NoArgs,
	RunE:  runEmbedClear,
}

func init() {
	embedCmd.AddCommand(embedStatsCmd)
	embedCmd.AddCommand(embedClearCmd)
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
	if contentService == nil || embeddingEngine == nil {
		return errors.New("embedding engine not configured")
	}
	if !embeddingEngine.IsInitialized() {
		return fmt.Errorf("%w: run 'docchat apikey set' first", domain.ErrEngineNotInitialized)
	}

	ctx := cmd.Context()
	var docs []domain.Document
	if len(args) == 0 {
		all, err := contentService.GetAllDocuments(ctx)
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}
		docs = all
	} else {
		ids, err := parseDocumentIDs(args)
		if err != nil {
			return err
		}
		for _, id := range ids {
			doc, err := contentService.GetDocument(ctx, id)
			if err != nil {
				return fmt.Errorf("document %d: %w", id, err)
			}
			docs = append(docs, *doc)
		}
	}

	report, err := embeddingEngine.EnsureEmbeddings(ctx, docs, progressPrinter(cmd))
	if report != nil && (report.ChunksEmbedded > 0 || report.ChunksReused > 0) {
		cmd.Println()
	}
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}

	if report.DocumentsProcessed == 0 {
		cmd.Println("All documents already have embeddings.")
		return nil
	}
	cmd.Printf("Embedded %d documents (%d new chunks, %d reused)\n",
		report.DocumentsProcessed, report.ChunksEmbedded, report.ChunksReused)
	return nil
}

// progressPrinter rewrites a single status line per event.
func progressPrinter(cmd *cobra.Command) driving.ProgressReporter {
	return driving.ProgressFunc(func(p domain.EmbeddingProgress) {
		cmd.Printf("\r  [%d/%d] %s: chunk %d/%d", p.DocumentIndex+1, p.TotalDocuments,
			p.CurrentDocument, p.ChunkProgress, p.TotalChunks)
	})
}

func runEmbedStats(cmd *cobra.Command, _ []string) error {
	if embeddingEngine == nil {
		return errors.New("embedding engine not configured")
	}

	stats, err := embeddingEngine.GetStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get embedding stats: %w", err)
	}

	cmd.Println("[Embeddings]")
	cmd.Printf("  Documents: %d (%d embedded)\n", stats.TotalDocuments, stats.DocumentsWithEmbeddings)
	cmd.Printf("  Chunks: %d\n", stats.TotalEmbeddingChunks)
	cmd.Printf("  Average chunks per document: %.2f\n", stats.AverageChunksPerDocument)
	cmd.Printf("  Cache size: %s\n", stats.CacheSize)
	return nil
}

func runEmbedClear(cmd *cobra.Command, _ []string) error {
	if embeddingEngine == nil {
		return errors.New("embedding engine not configured")
	}

	if err := embeddingEngine.ClearCache(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear embeddings: %w", err)
	}

	cmd.Println("Embedding cache cleared.")
	return nil
}
