package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage the embedding provider API key",
}

var apikeySetCmd = &cobra.Command{
	Use:   "set [key]",
	Short: "Store the embedding API key",
	Long: `Store the embedding API key and initialise the embedding engine.

Without an argument the key is read from the terminal without echo.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAPIKeySet,
}

var apikeyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether an API key is configured",
	Args:  cobra.NoArgs,
	RunE:  runAPIKeyStatus,
}

var apikeyCheck bool

func init() {
	apikeySetCmd.Flags().BoolVar(&apikeyCheck, "check", false, "ping the provider before storing the key")
	apikeyCmd.AddCommand(apikeySetCmd)
	apikeyCmd.AddCommand(apikeyStatusCmd)
	rootCmd.AddCommand(apikeyCmd)
}

func runAPIKeySet(cmd *cobra.Command, args []string) error {
	if embeddingEngine == nil {
		return errors.New("embedding engine not configured")
	}

	var key string
	if len(args) > 0 {
		key = args[0]
	} else {
		cmd.Print("API key: ")
		key = readPassword(cmd)
		cmd.Println()
	}
	key = strings.TrimSpace(key)

	if apikeyCheck && settingsService != nil {
		if err := settingsService.ValidateEmbeddingConfig(key); err != nil {
			return fmt.Errorf("key rejected: %w", err)
		}
	}

	if err := embeddingEngine.Init(cmd.Context(), key); err != nil {
		return fmt.Errorf("failed to set API key: %w", err)
	}

	cmd.Println("API key saved. Semantic search is enabled.")
	return nil
}

func runAPIKeyStatus(cmd *cobra.Command, _ []string) error {
	if embeddingEngine == nil {
		return errors.New("embedding engine not configured")
	}

	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			cmd.Printf("Provider: %s\n", settings.Embedding.Provider.Description())
			cmd.Printf("Model: %s\n", settings.Embedding.Model)
		}
	}

	if key := embeddingEngine.APIKey(); key != "" {
		cmd.Printf("API Key: %s\n", maskAPIKey(key))
	} else {
		cmd.Println("API Key: (not set)")
	}

	status := "ready"
	if !embeddingEngine.IsInitialized() {
		status = "not initialised"
	}
	cmd.Printf("Status: %s\n", status)
	return nil
}

// readPassword reads a line without echo when stdin is a terminal.
func readPassword(cmd *cobra.Command) string {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return string(password)
		}
	}
	reader := bufio.NewReader(in)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
