package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

var personaCmd = &cobra.Command{
	Use:   "persona",
	Short: "Manage chat backend personas",
}

var personaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List personas",
	Args:  cobra.NoArgs,
	RunE:  runPersonaList,
}

var personaSwitchCmd = &cobra.Command{
	Use:   "switch [name]",
	Short: "Make a persona the backend default",
	Args:  cobra.ExactArgs(1),
	RunE:  runPersonaSwitch,
}

var personaCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a persona",
	Args:  cobra.ExactArgs(1),
	RunE:  runPersonaCreate,
}

var personaDeleteCmd = &cobra.Command{
	Use:   "delete [persona-id]",
	Short: "Delete a persona",
	Args:  cobra.ExactArgs(1),
	RunE:  runPersonaDelete,
}

var (
	personaDisplayName string
	personaDescription string
	personaPromptFile  string
)

func init() {
	personaCreateCmd.Flags().StringVar(&personaDisplayName, "display-name", "", "display name (default: name)")
	personaCreateCmd.Flags().StringVar(&personaDescription, "description", "", "short description")
	personaCreateCmd.Flags().StringVar(&personaPromptFile, "prompt-file", "", "file holding the system prompt")

	personaCmd.AddCommand(personaListCmd)
	personaCmd.AddCommand(personaSwitchCmd)
	personaCmd.AddCommand(personaCreateCmd)
	personaCmd.AddCommand(personaDeleteCmd)
	rootCmd.AddCommand(personaCmd)
}

func runPersonaList(cmd *cobra.Command, _ []string) error {
	if backendService == nil {
		return errors.New("backend service not configured")
	}

	personas, err := backendService.ListPersonas(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list personas: %w", err)
	}

	if len(personas) == 0 {
		cmd.Println("No personas.")
		return nil
	}

	for i := range personas {
		p := &personas[i]
		marker := " "
		if p.IsCurrent {
			marker = "*"
		}
		cmd.Printf("  %s [%d] %s", marker, p.ID, p.Name)
		if p.DisplayName != "" && p.DisplayName != p.Name {
			cmd.Printf(" (%s)", p.DisplayName)
		}
		cmd.Println()
		if p.Description != "" {
			cmd.Printf("      %s\n", p.Description)
		}
	}
	return nil
}

func runPersonaSwitch(cmd *cobra.Command, args []string) error {
	if backendService == nil {
		return errors.New("backend service not configured")
	}

	if err := backendService.SwitchPersona(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to switch persona: %w", err)
	}

	cmd.Printf("Persona switched to %s.\n", args[0])
	return nil
}

func runPersonaCreate(cmd *cobra.Command, args []string) error {
	if backendService == nil {
		return errors.New("backend service not configured")
	}

	persona := domain.Persona{
		Name:        args[0],
		DisplayName: personaDisplayName,
		Description: personaDescription,
	}
	if personaPromptFile != "" {
		data, err := os.ReadFile(personaPromptFile)
		if err != nil {
			return fmt.Errorf("failed to read prompt file: %w", err)
		}
		persona.Prompt = string(data)
	}

	created, err := backendService.CreatePersona(cmd.Context(), persona)
	if err != nil {
		return fmt.Errorf("failed to create persona: %w", err)
	}

	cmd.Printf("Created persona %s (%d).\n", created.Name, created.ID)
	return nil
}

func runPersonaDelete(cmd *cobra.Command, args []string) error {
	if backendService == nil {
		return errors.New("backend service not configured")
	}

	if err := backendService.DeletePersona(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete persona: %w", err)
	}

	cmd.Printf("Persona %s deleted.\n", args[0])
	return nil
}
