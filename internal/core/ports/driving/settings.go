package driving

import "github.com/custodia-labs/docchat/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save validates and persists application settings.
	Save(settings *domain.AppSettings) error

	// Set updates a single setting from its string form.
	Set(key, value string) error

	// Keys returns the settable keys.
	Keys() []string

	// SetEmbeddingProvider configures the embedding provider and model.
	SetEmbeddingProvider(provider domain.AIProvider, model string) error

	// Validate checks that current settings are well formed.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// ValidateEmbeddingConfig pings the configured provider with apiKey.
	ValidateEmbeddingConfig(apiKey string) error
}
