package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedChunkSize    = "embedding.chunk_size"
	keyEmbedChunkOverlap = "embedding.chunk_overlap"
	keyEmbedBatchSize    = "embedding.batch_size"
	keyEmbedDelayMS      = "embedding.request_delay_ms"
	keyEmbedRPS          = "embedding.requests_per_second"
	keyEmbedPolicy       = "embedding.policy"
	keySearchSemantic    = "search.semantic"
	keySearchTopK        = "search.top_k"
	keyBackendURL        = "backend.url"
	keyLogFile           = "log.file"
)

// settingSetters parse a string value into the settings struct.
var settingSetters = map[string]func(s *domain.AppSettings, value string) error{
	keyEmbedProvider: func(s *domain.AppSettings, v string) error {
		p := domain.AIProvider(v)
		if !p.IsValid() {
			return fmt.Errorf("unknown provider %q", v)
		}
		s.Embedding.Provider = p
		return nil
	},
	keyEmbedModel:   func(s *domain.AppSettings, v string) error { s.Embedding.Model = v; return nil },
	keyEmbedBaseURL: func(s *domain.AppSettings, v string) error { s.Embedding.BaseURL = v; return nil },
	keyEmbedChunkSize: func(s *domain.AppSettings, v string) error {
		return parseInt(v, &s.Embedding.ChunkSize)
	},
	keyEmbedChunkOverlap: func(s *domain.AppSettings, v string) error {
		return parseInt(v, &s.Embedding.ChunkOverlap)
	},
	keyEmbedBatchSize: func(s *domain.AppSettings, v string) error {
		return parseInt(v, &s.Embedding.BatchSize)
	},
	keyEmbedDelayMS: func(s *domain.AppSettings, v string) error {
		var ms int
		if err := parseInt(v, &ms); err != nil {
			return err
		}
		s.Embedding.RequestDelay = time.Duration(ms) * time.Millisecond
		return nil
	},
	keyEmbedRPS: func(s *domain.AppSettings, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", v)
		}
		s.Embedding.RequestsPerSecond = f
		return nil
	},
	keyEmbedPolicy: func(s *domain.AppSettings, v string) error {
		p := domain.EmbeddingPolicy(v)
		if !p.IsValid() {
			return fmt.Errorf("unknown policy %q", v)
		}
		s.Embedding.Policy = p
		return nil
	},
	keySearchSemantic: func(s *domain.AppSettings, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("not a boolean: %q", v)
		}
		s.Search.Semantic = b
		return nil
	},
	keySearchTopK: func(s *domain.AppSettings, v string) error {
		return parseInt(v, &s.Search.TopK)
	},
	keyBackendURL: func(s *domain.AppSettings, v string) error { s.Backend.URL = strings.TrimRight(v, "/"); return nil },
	keyLogFile:    func(s *domain.AppSettings, v string) error { s.Log.File = v; return nil },
}

func parseInt(v string, dst *int) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("not an integer: %q", v)
	}
	*dst = n
	return nil
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings. Missing or invalid values
// fall back to defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	provider := s.getProvider(keyEmbedProvider, defaults.Embedding.Provider)
	model := s.configStore.GetString(keyEmbedModel)
	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:          provider,
			Model:             model,
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL),
			ChunkSize:         s.getInt(keyEmbedChunkSize, defaults.Embedding.ChunkSize),
			ChunkOverlap:      s.getInt(keyEmbedChunkOverlap, defaults.Embedding.ChunkOverlap),
			BatchSize:         s.getInt(keyEmbedBatchSize, defaults.Embedding.BatchSize),
			RequestDelay:      s.getDelay(defaults.Embedding.RequestDelay),
			RequestsPerSecond: s.configStore.GetFloat(keyEmbedRPS),
			Policy:            s.getPolicy(defaults.Embedding.Policy),
		},
		Search: domain.SearchSettings{
			Semantic: s.getBool(keySearchSemantic, defaults.Search.Semantic),
			TopK:     s.getInt(keySearchTopK, defaults.Search.TopK),
		},
		Backend: domain.BackendSettings{
			URL: s.getString(keyBackendURL, defaults.Backend.URL),
		},
		Log: domain.LogSettings{
			File: s.configStore.GetString(keyLogFile),
		},
	}

	return settings, nil
}

// Save validates and persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := validateSettings(settings); err != nil {
		return err
	}

	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedChunkSize, settings.Embedding.ChunkSize},
		{keyEmbedChunkOverlap, settings.Embedding.ChunkOverlap},
		{keyEmbedBatchSize, settings.Embedding.BatchSize},
		{keyEmbedDelayMS, int(settings.Embedding.RequestDelay / time.Millisecond)},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyEmbedPolicy, string(settings.Embedding.Policy)},
		{keySearchSemantic, settings.Search.Semantic},
		{keySearchTopK, settings.Search.TopK},
		{keyBackendURL, settings.Backend.URL},
		{keyLogFile, settings.Log.File},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// Set updates one setting from its string form. The whole configuration
// is validated before anything is written.
func (s *SettingsService) Set(key, value string) error {
	setter, ok := settingSetters[key]
	if !ok {
		return &domain.ValidationError{Field: key, Reason: "unknown setting"}
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if err := setter(settings, value); err != nil {
		return &domain.ValidationError{Field: key, Reason: err.Error()}
	}
	if err := validateSettings(settings); err != nil {
		return err
	}

	switch key {
	case keyEmbedProvider:
		// A new provider starts from its own default model
		if _, set := s.configStore.Get(keyEmbedModel); set {
			if err := s.configStore.Unset(keyEmbedModel); err != nil {
				return fmt.Errorf("reset %s: %w", keyEmbedModel, err)
			}
		}
		return s.configStore.Set(key, value)
	case keyEmbedDelayMS:
		return s.configStore.Set(key, int(settings.Embedding.RequestDelay/time.Millisecond))
	case keyEmbedChunkSize, keyEmbedChunkOverlap, keyEmbedBatchSize, keySearchTopK:
		n, _ := strconv.Atoi(value)
		return s.configStore.Set(key, n)
	case keyEmbedRPS:
		return s.configStore.Set(key, settings.Embedding.RequestsPerSecond)
	case keySearchSemantic:
		return s.configStore.Set(key, settings.Search.Semantic)
	case keyBackendURL:
		return s.configStore.Set(key, settings.Backend.URL)
	default:
		return s.configStore.Set(key, value)
	}
}

// Keys returns the settable keys in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingSetters))
	for k := range settingSetters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetEmbeddingProvider configures the embedding provider and model.
// An empty model selects the provider's default.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model string) error {
	if !provider.IsValid() {
		return &domain.ValidationError{Field: "provider", Reason: fmt.Sprintf("unknown provider %q", provider)}
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Embedding.Provider = provider
	settings.Embedding.Model = strings.TrimSpace(model)
	if settings.Embedding.Model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	return s.Save(settings)
}

// Validate checks that current settings are well formed.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return validateSettings(settings)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by
// pinging the provider with apiKey.
func (s *SettingsService) ValidateEmbeddingConfig(apiKey string) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding, apiKey)
}

func validateSettings(settings *domain.AppSettings) error {
	if !settings.Embedding.Provider.IsValid() {
		return &domain.ValidationError{Field: keyEmbedProvider, Reason: fmt.Sprintf("unknown provider %q", settings.Embedding.Provider)}
	}
	if !settings.Embedding.Policy.IsValid() {
		return &domain.ValidationError{Field: keyEmbedPolicy, Reason: fmt.Sprintf("unknown policy %q", settings.Embedding.Policy)}
	}
	return validateStruct(settings)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDelay(defaultVal time.Duration) time.Duration {
	if _, exists := s.configStore.Get(keyEmbedDelayMS); !exists {
		return defaultVal
	}
	return time.Duration(s.configStore.GetInt(keyEmbedDelayMS)) * time.Millisecond
}

func (s *SettingsService) getPolicy(defaultVal domain.EmbeddingPolicy) domain.EmbeddingPolicy {
	policy := domain.EmbeddingPolicy(s.configStore.GetString(keyEmbedPolicy))
	if !policy.IsValid() {
		return defaultVal
	}
	return policy
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
