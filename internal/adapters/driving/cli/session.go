package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage chat sessions",
}

var sessionNewCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Start a new session and make it active",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionNew,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions grouped by day",
	Args:  cobra.NoArgs,
	RunE:  runSessionList,
}

var sessionSwitchCmd = &cobra.Command{
	Use:   "switch [session-id]",
	Short: "Make a session active",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionSwitch,
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete [session-id]",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionDelete,
}

var sessionRenameCmd = &cobra.Command{
	Use:   "rename [session-id] [name]",
	Short: "Rename a session",
	Args:  cobra.ExactArgs(2),
	RunE:  runSessionRename,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Print a session transcript (default: active session)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionShow,
}

func init() {
	sessionCmd.AddCommand(sessionNewCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionSwitchCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
	sessionCmd.AddCommand(sessionRenameCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionNew(cmd *cobra.Command, args []string) error {
	if sessionManager == nil {
		return errors.New("session manager not configured")
	}

	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	session, err := sessionManager.CreateSession(name)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	cmd.Printf("Created session %q (%s)\n", session.Name, session.ID)
	return nil
}

func runSessionList(cmd *cobra.Command, _ []string) error {
	if sessionManager == nil {
		return errors.New("session manager not configured")
	}

	groups := sessionManager.GroupByDay()
	if len(groups) == 0 {
		cmd.Println("No sessions yet. Start one with 'docchat session new'.")
		return nil
	}

	activeID := ""
	if current, ok := sessionManager.Current(); ok {
		activeID = current.ID
	}

	for _, group := range groups {
		cmd.Println(group.Day)
		for i := range group.Sessions {
			s := &group.Sessions[i]
			marker := " "
			if s.ID == activeID {
				marker = "*"
			}
			cmd.Printf("  %s %s  %s (%d messages)\n", marker, s.ID, s.Name, len(s.Messages))
		}
	}
	return nil
}

func runSessionSwitch(cmd *cobra.Command, args []string) error {
	if sessionManager == nil {
		return errors.New("session manager not configured")
	}

	session, err := sessionManager.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to switch session: %w", err)
	}
	if err := sessionManager.SwitchSession(session.ID); err != nil {
		return fmt.Errorf("failed to switch session: %w", err)
	}

	cmd.Printf("Switched to %q\n", session.Name)
	return nil
}

func runSessionDelete(cmd *cobra.Command, args []string) error {
	if sessionManager == nil {
		return errors.New("session manager not configured")
	}

	if err := sessionManager.DeleteSession(args[0]); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	cmd.Printf("Session %s deleted.\n", args[0])
	if current, ok := sessionManager.Current(); ok {
		cmd.Printf("Active session: %q\n", current.Name)
	}
	return nil
}

func runSessionRename(cmd *cobra.Command, args []string) error {
	if sessionManager == nil {
		return errors.New("session manager not configured")
	}

	if err := sessionManager.RenameSession(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to rename session: %w", err)
	}

	cmd.Printf("Session %s renamed to %q\n", args[0], args[1])
	return nil
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	if sessionManager == nil {
		return errors.New("session manager not configured")
	}

	var session *domain.Session
	if len(args) > 0 {
		s, err := sessionManager.Get(args[0])
		if err != nil {
			return fmt.Errorf("failed to get session: %w", err)
		}
		session = s
	} else {
		s, ok := sessionManager.Current()
		if !ok {
			return domain.ErrNoActiveSession
		}
		session = s
	}

	cmd.Printf("%s (%s)\n\n", session.Name, session.ID)
	if len(session.Messages) == 0 {
		cmd.Println("No messages yet.")
		return nil
	}
	for i := range session.Messages {
		renderMessage(cmd.OutOrStdout(), &session.Messages[i])
	}
	return nil
}
