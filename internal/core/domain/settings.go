package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available embedding providers.
const (
	// AIProviderGemini is the Google Generative Language API.
	AIProviderGemini AIProvider = "gemini"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderGemini, AIProviderOpenAI, AIProviderOllama:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderGemini || p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderOllama:
		return "Ollama (local)"
	default:
		return unknownDescription
	}
}

// EmbeddingPolicy decides when embeddings are generated for selected documents.
type EmbeddingPolicy string

// Available embedding policies.
const (
	// EmbeddingPolicyManual generates embeddings only on explicit request.
	EmbeddingPolicyManual EmbeddingPolicy = "manual"

	// EmbeddingPolicyOnSelect generates embeddings whenever the selection changes.
	EmbeddingPolicyOnSelect EmbeddingPolicy = "on_select"
)

// IsValid returns true if the policy is recognised.
func (p EmbeddingPolicy) IsValid() bool {
	return p == EmbeddingPolicyManual || p == EmbeddingPolicyOnSelect
}

// Description returns a human-readable description of the policy.
func (p EmbeddingPolicy) Description() string {
	switch p {
	case EmbeddingPolicyManual:
		return "Manual (docchat embed)"
	case EmbeddingPolicyOnSelect:
		return "On select (before each chat)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider and chunking configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider `validate:"required"`

	// Model is the embedding model name.
	Model string `validate:"required"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `validate:"omitempty,url"`

	// ChunkSize is the target chunk length in characters.
	ChunkSize int `validate:"gt=0"`

	// ChunkOverlap is the overlap between consecutive chunks.
	ChunkOverlap int `validate:"gte=0,ltfield=ChunkSize"`

	// BatchSize bounds in-flight provider calls.
	BatchSize int `validate:"gt=0,lte=16"`

	// RequestDelay is slept before each provider call.
	RequestDelay time.Duration `validate:"gte=0"`

	// RequestsPerSecond throttles provider calls. Zero disables throttling.
	RequestsPerSecond float64 `validate:"gte=0"`

	// Policy decides when embeddings are generated.
	Policy EmbeddingPolicy `validate:"required"`
}

// SearchSettings holds retrieval configuration.
type SearchSettings struct {
	// Semantic enables chunk retrieval before chat sends.
	Semantic bool

	// TopK is the default number of chunks returned.
	TopK int `validate:"gt=0,lte=100"`
}

// BackendSettings locates the chat backend.
type BackendSettings struct {
	// URL is the backend base URL.
	URL string `validate:"required,url"`
}

// LogSettings configures the log file.
type LogSettings struct {
	// File is the JSON log path. Empty disables file logging.
	File string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	Search    SearchSettings
	Backend   BackendSettings
	Log       LogSettings
}

// DefaultAppSettings returns settings with sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:          AIProviderGemini,
			Model:             DefaultEmbeddingModels()[AIProviderGemini],
			ChunkSize:         1000,
			ChunkOverlap:      200,
			BatchSize:         3,
			RequestDelay:      200 * time.Millisecond,
			RequestsPerSecond: 0,
			Policy:            EmbeddingPolicyManual,
		},
		Search: SearchSettings{
			Semantic: true,
			TopK:     5,
		},
		Backend: BackendSettings{
			URL: "http://localhost:5000/api",
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderGemini,
		AIProviderOpenAI,
		AIProviderOllama,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderGemini: "text-embedding-004",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderOllama: "nomic-embed-text",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Gemini models
		"text-embedding-004": 768,
		"embedding-001":      768,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
