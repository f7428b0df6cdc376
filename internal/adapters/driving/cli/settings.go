package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change the settings stored in ~/.docchat/config.toml.

Changes to embedding or backend settings apply the next time docchat starts.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change one setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List settable keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

var settingsProviderCmd = &cobra.Command{
	Use:   "provider [provider] [model]",
	Short: "Choose the embedding provider",
	Long: `Choose the embedding provider and optionally its model.

Available providers:
  gemini  - Google Gemini (requires API key)
  openai  - OpenAI (requires API key)
  ollama  - local Ollama, no key needed

Changing provider invalidates cached embeddings; run 'docchat embed clear'.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSettingsProvider,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsProviderCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	cmd.Printf("  Chunk size: %d (overlap %d)\n", settings.Embedding.ChunkSize, settings.Embedding.ChunkOverlap)
	cmd.Printf("  Batch size: %d\n", settings.Embedding.BatchSize)
	cmd.Printf("  Request delay: %s\n", settings.Embedding.RequestDelay)
	if settings.Embedding.RequestsPerSecond > 0 {
		cmd.Printf("  Requests/sec: %g\n", settings.Embedding.RequestsPerSecond)
	} else {
		cmd.Println("  Requests/sec: unlimited")
	}
	cmd.Printf("  Policy: %s\n", settings.Embedding.Policy.Description())
	if settings.Embedding.Provider.RequiresAPIKey() && embeddingEngine != nil {
		if key := embeddingEngine.APIKey(); key != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(key))
		} else {
			cmd.Println("  API Key: (not set)")
		}
	}
	cmd.Println()

	cmd.Println("[Search]")
	semantic := "enabled"
	if !settings.Search.Semantic {
		semantic = "disabled"
	}
	cmd.Printf("  Semantic: %s\n", semantic)
	cmd.Printf("  Top K: %d\n", settings.Search.TopK)
	cmd.Println()

	cmd.Println("[Backend]")
	cmd.Printf("  URL: %s\n", settings.Backend.URL)
	cmd.Println()

	cmd.Println("[Log]")
	if settings.Log.File != "" {
		cmd.Printf("  File: %s\n", settings.Log.File)
	} else {
		cmd.Println("  File: (default)")
	}

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}

	cmd.Printf("%s = %s\n", args[0], args[1])
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	for _, key := range settingsService.Keys() {
		cmd.Println(key)
	}
	return nil
}

func runSettingsProvider(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	provider := domain.AIProvider(strings.ToLower(args[0]))
	if !provider.IsValid() {
		names := make([]string, 0, len(domain.AllEmbeddingProviders()))
		for _, p := range domain.AllEmbeddingProviders() {
			names = append(names, p.String())
		}
		return fmt.Errorf("unknown provider %q (choose %s)", args[0], strings.Join(names, ", "))
	}

	model := ""
	if len(args) > 1 {
		model = args[1]
	}
	if err := settingsService.SetEmbeddingProvider(provider, model); err != nil {
		return fmt.Errorf("failed to set provider: %w", err)
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	cmd.Printf("Embedding provider: %s (%s)\n", provider.Description(), settings.Embedding.Model)
	if provider.RequiresAPIKey() {
		cmd.Println("Set the API key with 'docchat apikey set'.")
	}
	return nil
}
