package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage uploaded documents",
	Long:  `Upload, list, edit, search, export and import the local document library.`,
}

var documentUploadCmd = &cobra.Command{
	Use:   "upload [file...]",
	Short: "Upload text, markdown or PDF files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDocumentUpload,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents, newest first",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentUpdateCmd = &cobra.Command{
	Use:   "update [doc-id]",
	Short: "Edit a document's filename, tags or description",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentUpdate,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its embeddings",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var documentSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find documents whose filename or content contains the query",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentSearch,
}

var documentStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show storage statistics",
	Args:  cobra.NoArgs,
	RunE:  runDocumentStats,
}

var documentClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every document and embedding",
	Args:  cobra.NoArgs,
	RunE:  runDocumentClear,
}

var documentExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write a JSON backup of all documents",
	Long:  `Write a JSON backup of all documents. Use "-" to write to stdout.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentExport,
}

var documentImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import documents from a JSON backup",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentImport,
}

var (
	uploadTags        []string
	uploadDescription string

	updateFilename    string
	updateTags        []string
	updateDescription string

	showContent bool
	clearYes    bool
)

func init() {
	documentUploadCmd.Flags().StringSliceVar(&uploadTags, "tags", nil, "comma-separated tags")
	documentUploadCmd.Flags().StringVar(&uploadDescription, "description", "", "description for every uploaded file")

	documentUpdateCmd.Flags().StringVar(&updateFilename, "filename", "", "new filename")
	documentUpdateCmd.Flags().StringSliceVar(&updateTags, "tags", nil, "replace tags")
	documentUpdateCmd.Flags().StringVar(&updateDescription, "description", "", "new description")

	documentGetCmd.Flags().BoolVar(&showContent, "content", false, "print the extracted text")
	documentClearCmd.Flags().BoolVar(&clearYes, "yes", false, "confirm deleting everything")

	documentCmd.AddCommand(documentUploadCmd)
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentUpdateCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentSearchCmd)
	documentCmd.AddCommand(documentStatsCmd)
	documentCmd.AddCommand(documentClearCmd)
	documentCmd.AddCommand(documentExportCmd)
	documentCmd.AddCommand(documentImportCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentUpload(cmd *cobra.Command, args []string) error {
	if contentService == nil {
		return errors.New("content service not configured")
	}

	ctx := cmd.Context()
	meta := domain.DocumentMetadata{Tags: uploadTags, Description: uploadDescription}

	var failed int
	for _, path := range args {
		upload, err := readUpload(path)
		if err == nil {
			var doc *domain.Document
			doc, err = contentService.StoreDocument(ctx, upload, meta)
			if err == nil {
				cmd.Printf("Uploaded %s as document %d (%s)\n",
					doc.Filename, doc.ID, humanize.IBytes(uint64(doc.FileSize)))
				continue
			}
		}
		failed++
		cmd.PrintErrf("Skipped %s: %v\n", path, err)
	}

	if failed == len(args) {
		return fmt.Errorf("no files uploaded")
	}
	return nil
}

// readUpload reads a file from disk into an Upload. The MIME type is left
// for the content store to infer from the extension.
func readUpload(path string) (*domain.Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > domain.MaxUploadSize {
		return nil, domain.ErrFileTooLarge
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &domain.Upload{
		Filename:     filepath.Base(path),
		Size:         int64(len(data)),
		Content:      data,
		LastModified: info.ModTime(),
	}, nil
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if contentService == nil {
		return errors.New("content service not configured")
	}

	docs, err := contentService.GetAllDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents uploaded yet.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		printDocumentLine(cmd, &docs[i])
	}
	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func printDocumentLine(cmd *cobra.Command, doc *domain.Document) {
	embedded := ""
	if doc.EmbeddingsGenerated {
		embedded = "  [embedded]"
	}
	cmd.Printf("  [%d] %s (%s, uploaded %s)%s\n", doc.ID, doc.Filename,
		humanize.IBytes(uint64(doc.FileSize)), humanize.Time(doc.UploadDate), embedded)
	if len(doc.Tags) > 0 {
		cmd.Printf("      Tags: %s\n", strings.Join(doc.Tags, ", "))
	}
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if contentService == nil {
		return errors.New("content service not configured")
	}

	id, err := parseDocumentID(args[0])
	if err != nil {
		return err
	}

	doc, err := contentService.GetDocument(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %d\n\n", doc.ID)
	cmd.Printf("  Filename:    %s\n", doc.Filename)
	cmd.Printf("  Type:        %s\n", doc.FileType)
	cmd.Printf("  Size:        %s\n", humanize.IBytes(uint64(doc.FileSize)))
	cmd.Printf("  Hash:        %s\n", doc.ContentHash)
	cmd.Printf("  Uploaded:    %s\n", doc.UploadDate.Local().Format("2006-01-02 15:04:05"))
	cmd.Printf("  Modified:    %s\n", doc.LastModified.Local().Format("2006-01-02 15:04:05"))
	cmd.Printf("  Embedded:    %t\n", doc.EmbeddingsGenerated)
	if len(doc.Tags) > 0 {
		cmd.Printf("  Tags:        %s\n", strings.Join(doc.Tags, ", "))
	}
	if doc.Description != "" {
		cmd.Printf("  Description: %s\n", doc.Description)
	}

	if showContent {
		cmd.Println()
		cmd.Println(doc.Content)
	}
	return nil
}

func runDocumentUpdate(cmd *cobra.Command, args []string) error {
	if contentService == nil {
		return errors.New("content service not configured")
	}

	id, err := parseDocumentID(args[0])
	if err != nil {
		return err
	}

	var update domain.DocumentUpdate
	flags := cmd.Flags()
	if flags.Changed("filename") {
		update.Filename = &updateFilename
	}
	if flags.Changed("tags") {
		update.Tags = append([]string{}, updateTags...)
	}
	if flags.Changed("description") {
		update.Description = &updateDescription
	}
	if update.IsEmpty() {
		return errors.New("nothing to update: pass --filename, --tags or --description")
	}

	doc, err := contentService.UpdateDocument(cmd.Context(), id, update)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	cmd.Printf("Document %d updated.\n", doc.ID)
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if contentService == nil {
		return errors.New("content service not configured")
	}

	id, err := parseDocumentID(args[0])
	if err != nil {
		return err
	}

	if err := contentService.DeleteDocument(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %d deleted.\n", id)
	return nil
}

func runDocumentSearch(cmd *cobra.Command, args []string) error {
	if contentService == nil {
		return errors.New("content service not configured")
	}

	docs, err := contentService.SearchDocuments(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No matching documents.")
		return nil
	}

	for i := range docs {
		printDocumentLine(cmd, &docs[i])
	}
	return nil
}

func runDocumentStats(cmd *cobra.Command, _ []string) error {
	if contentService == nil {
		return errors.New("content service not configured")
	}

	stats, err := contentService.GetStorageStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get storage stats: %w", err)
	}

	cmd.Println("[Storage]")
	cmd.Printf("  Documents: %d\n", stats.TotalDocuments)
	cmd.Printf("  Size: %s\n", stats.TotalSizeFormatted)

	if len(stats.ByType) > 0 {
		types := make([]string, 0, len(stats.ByType))
		for ext := range stats.ByType {
			types = append(types, ext)
		}
		sort.Strings(types)
		for _, ext := range types {
			cmd.Printf("  .%s: %d\n", ext, stats.ByType[ext])
		}
	}
	return nil
}

func runDocumentClear(cmd *cobra.Command, _ []string) error {
	if contentService == nil {
		return errors.New("content service not configured")
	}
	if !clearYes {
		return errors.New("refusing to delete every document without --yes")
	}

	if err := contentService.ClearAllDocuments(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}

	cmd.Println("All documents and embeddings deleted.")
	return nil
}

func runDocumentExport(cmd *cobra.Command, args []string) error {
	if contentService == nil {
		return errors.New("content service not configured")
	}

	backup, err := contentService.ExportDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to export documents: %w", err)
	}

	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	if args[0] == "-" {
		cmd.Println(string(data))
		return nil
	}
	if err := os.WriteFile(args[0], data, 0600); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}

	cmd.Printf("Exported %d documents to %s\n", len(backup.Documents), args[0])
	return nil
}

func runDocumentImport(cmd *cobra.Command, args []string) error {
	if contentService == nil {
		return errors.New("content service not configured")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}

	report, err := contentService.ImportDocuments(cmd.Context(), data)
	if err != nil {
		return fmt.Errorf("failed to import documents: %w", err)
	}

	cmd.Printf("Imported %d documents.\n", len(report.Imported))
	for _, f := range report.Failed {
		name := f.Filename
		if name == "" {
			name = "(unnamed)"
		}
		cmd.Printf("  entry %d %s: %s\n", f.Index, name, f.Reason)
	}
	return nil
}
