// Package cli provides the cobra command tree for docchat.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services injected by main before Execute.
var (
	contentService       driving.ContentService
	embeddingEngine      driving.EmbeddingEngine
	sessionManager       driving.SessionManager
	chatService          driving.ChatService
	backendService       driving.BackendService
	knowledgeBaseService driving.KnowledgeBaseService
	settingsService      driving.SettingsService
	folderSyncService    driving.FolderSyncService
)

// Services groups the driving ports the commands call into.
type Services struct {
	Content       driving.ContentService
	Embedding     driving.EmbeddingEngine
	Sessions      driving.SessionManager
	Chat          driving.ChatService
	Backend       driving.BackendService
	KnowledgeBase driving.KnowledgeBaseService
	Settings      driving.SettingsService
	FolderSync    driving.FolderSyncService
}

// SetServices injects the services used by every command.
func SetServices(s Services) {
	contentService = s.Content
	embeddingEngine = s.Embedding
	sessionManager = s.Sessions
	chatService = s.Chat
	backendService = s.Backend
	knowledgeBaseService = s.KnowledgeBase
	settingsService = s.Settings
	folderSyncService = s.FolderSync
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Chat with your documents",
	Long: `docchat keeps a local library of text, markdown and PDF documents,
caches their embeddings and sends the most relevant passages along with
your questions to a chat backend.

Get started:
  docchat apikey set
  docchat document upload notes.md
  docchat embed
  docchat chat "What do my notes say about deadlines?"`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "print debug logs to stderr")
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// parseDocumentID parses a positional document id.
func parseDocumentID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid document id %q", arg)
	}
	return id, nil
}

// parseDocumentIDs parses every arg with parseDocumentID.
func parseDocumentIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseDocumentID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
