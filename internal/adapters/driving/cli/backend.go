package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Log in to the chat backend",
	Long:  `Log in to the chat backend. The password is prompted for unless --password is given.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored backend token",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the chat backend",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show chat history stored by the backend",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "List local documents and server knowledge-base files",
	Args:  cobra.NoArgs,
	RunE:  runKnowledgeBase,
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback [history-id] [rating]",
	Short: "Rate a reply from 1 to 5",
	Args:  cobra.ExactArgs(2),
	RunE:  runFeedback,
}

var (
	loginPassword   string
	historySession  string
	feedbackComment string
)

func init() {
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "password (prompted when omitted)")
	historyCmd.Flags().StringVar(&historySession, "session", "", "only this session id")
	feedbackCmd.Flags().StringVar(&feedbackComment, "comment", "", "optional comment")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(kbCmd)
	rootCmd.AddCommand(feedbackCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	if backendService == nil {
		return errors.New("backend service not configured")
	}

	password := loginPassword
	if password == "" {
		cmd.Print("Password: ")
		password = readPassword(cmd)
		cmd.Println()
	}

	result, err := backendService.Login(cmd.Context(), args[0], password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	name := args[0]
	if u, ok := result.User["username"].(string); ok && u != "" {
		name = u
	}
	cmd.Printf("Logged in as %s.\n", name)
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	if backendService == nil {
		return errors.New("backend service not configured")
	}

	if err := backendService.Logout(); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	cmd.Println("Logged out.")
	return nil
}

func runHealth(cmd *cobra.Command, _ []string) error {
	if backendService == nil {
		return errors.New("backend service not configured")
	}

	status, err := backendService.Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}

	cmd.Printf("Backend: %s\n", status)
	if backendService.IsAuthenticated() {
		cmd.Println("Authenticated: yes")
	} else {
		cmd.Println("Authenticated: no")
	}
	return nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if backendService == nil {
		return errors.New("backend service not configured")
	}

	entries, err := backendService.History(cmd.Context(), historySession)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}

	if len(entries) == 0 {
		cmd.Println("No chat history.")
		return nil
	}

	for i := range entries {
		e := &entries[i]
		cmd.Printf("#%d  %s  [%s]\n", e.ID, e.CreatedAt, e.SessionID)
		cmd.Printf("  Q: %s\n", snippet(e.Message, 120))
		cmd.Printf("  A: %s\n", snippet(e.Response, 240))
		cmd.Println()
	}
	return nil
}

func runKnowledgeBase(cmd *cobra.Command, _ []string) error {
	if knowledgeBaseService == nil {
		return errors.New("knowledge base service not configured")
	}

	entries, err := knowledgeBaseService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list knowledge base: %w", err)
	}

	if len(entries) == 0 {
		cmd.Println("Knowledge base is empty.")
		return nil
	}

	for _, e := range entries {
		switch e.Origin {
		case domain.OriginLocal:
			embedded := ""
			if e.Embedded {
				embedded = "  [embedded]"
			}
			cmd.Printf("  local   [%d] %s (%s)%s\n", e.DocumentID, e.Name, humanize.IBytes(uint64(e.Size)), embedded)
		default:
			cmd.Printf("  server  %s (%s)\n", e.Name, humanize.IBytes(uint64(e.Size)))
		}
	}
	return nil
}

func runFeedback(cmd *cobra.Command, args []string) error {
	if backendService == nil {
		return errors.New("backend service not configured")
	}

	historyID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid history id %q", args[0])
	}
	rating, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid rating %q", args[1])
	}

	err = backendService.SendFeedback(cmd.Context(), domain.Feedback{
		ChatHistoryID: historyID,
		Rating:        rating,
		Comment:       feedbackComment,
	})
	if err != nil {
		return fmt.Errorf("failed to send feedback: %w", err)
	}

	cmd.Println("Thanks for the feedback.")
	return nil
}
