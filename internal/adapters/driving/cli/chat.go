package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/logger"
)

var (
	chatDocs    []int64
	chatPersona string
	chatFull    bool
	chatSession string
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send a message to the chat backend",
	Long: `Send a message in the active session (or --session). Selected documents
are searched semantically for relevant chunks when embeddings exist; otherwise
their full text is sent. Use --full to always send full documents.`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().Int64SliceVarP(&chatDocs, "doc", "d", nil, "document ids to use as context")
	chatCmd.Flags().StringVarP(&chatPersona, "persona", "p", "", "backend persona name")
	chatCmd.Flags().BoolVar(&chatFull, "full", false, "send full documents instead of semantic chunks")
	chatCmd.Flags().StringVar(&chatSession, "session", "", "session id (default: active session)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	ctx := cmd.Context()
	if len(chatDocs) > 0 {
		if err := chatService.SelectDocuments(ctx, chatDocs, progressPrinter(cmd)); err != nil {
			logger.Warn("embedding selected documents: %v", err)
		}
	}

	result, err := chatService.Send(ctx, chatSession, args[0], domain.SendOptions{
		DocumentIDs:        chatDocs,
		Persona:            chatPersona,
		ForceFullDocuments: chatFull,
	})
	if err != nil {
		errorStyle.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return fmt.Errorf("chat failed: %w", err)
	}

	out := cmd.OutOrStdout()
	renderMessage(out, &result.UserMessage)
	renderMessage(out, &result.Reply)
	if result.ContextCount > 0 {
		faintStyle.Fprintf(out, "(%d context items, %s)\n", result.ContextCount, result.SearchMethod)
	}
	return nil
}

var (
	userStyle      = color.New(color.FgCyan, color.Bold)
	assistantStyle = color.New(color.FgGreen, color.Bold)
	errorStyle     = color.New(color.FgRed, color.Bold)
	hintStyle      = color.New(color.FgYellow)
	faintStyle     = color.New(color.Faint)
)

// renderMessage prints one transcript entry.
func renderMessage(w io.Writer, msg *domain.Message) {
	switch msg.Role {
	case domain.RoleUser:
		userStyle.Fprint(w, "You: ")
		fmt.Fprintln(w, msg.Content)
	case domain.RoleError:
		errorStyle.Fprintln(w, msg.Content)
	default:
		label := "Assistant"
		if msg.Persona != "" {
			label += " (" + msg.Persona + ")"
		}
		assistantStyle.Fprint(w, label+": ")
		fmt.Fprintln(w, msg.Content)

		if msg.SourceFile != "" {
			faintStyle.Fprintf(w, "  Source: %s\n", msg.SourceFile)
		}
		if len(msg.FollowUpSuggestions) > 0 {
			hintStyle.Fprintln(w, "  Follow-ups:")
			for _, s := range msg.FollowUpSuggestions {
				hintStyle.Fprintf(w, "    - %s\n", s)
			}
		}
		if msg.TokenUsage != nil {
			faintStyle.Fprintf(w, "  Tokens: %d prompt, %d completion\n",
				msg.TokenUsage.PromptTokens, msg.TokenUsage.CompletionTokens)
		}
		if msg.HistoryID > 0 {
			faintStyle.Fprintf(w, "  Rate this reply: docchat feedback %d <1-5>\n", msg.HistoryID)
		}
	}
	fmt.Fprintln(w)
}
