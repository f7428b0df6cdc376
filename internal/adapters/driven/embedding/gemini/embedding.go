// Package gemini implements driven.EmbeddingService against the Google
// Generative Language API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/docchat/internal/adapters/driven/embedding"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	// DefaultBaseURL is the Generative Language API root.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// DefaultModel is the default embedding model.
	DefaultModel = "text-embedding-004"
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second
	// DefaultDimensions is the vector size of text-embedding-004.
	DefaultDimensions = 768

	providerName = "gemini"
)

// Config holds configuration for the Gemini embedding service.
type Config struct {
	// APIKey is the Google AI Studio key (required).
	APIKey string

	// BaseURL overrides the API root.
	BaseURL string

	// Model is the embedding model name, without the "models/" prefix.
	Model string

	// TaskType is an optional embedding task hint, e.g. RETRIEVAL_DOCUMENT.
	TaskType string

	// Timeout bounds a single request.
	Timeout time.Duration

	// Dimensions overrides the reported vector size.
	Dimensions int

	// RequestsPerSecond throttles requests; zero means unlimited.
	RequestsPerSecond float64
}

// EmbeddingService implements driven.EmbeddingService using Gemini.
type EmbeddingService struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	taskType   string
	dimensions int
	limiter    *embedding.RateLimiter
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type embedRequest struct {
	Model    string  `json:"model"`
	Content  content `json:"content"`
	TaskType string  `json:"taskType,omitempty"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

type batchRequest struct {
	Requests []embedRequest `json:"requests"`
}

type batchResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewEmbeddingService creates a new Gemini embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", domain.ErrMissingAPIKey)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	return &EmbeddingService{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      strings.TrimPrefix(cfg.Model, "models/"),
		taskType:   cfg.TaskType,
		dimensions: cfg.Dimensions,
		limiter:    embedding.NewRateLimiter(cfg.RequestsPerSecond),
	}, nil
}

// Embed generates an embedding for a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	req := embedRequest{
		Model:    "models/" + s.model,
		Content:  content{Parts: []part{{Text: text}}},
		TaskType: s.taskType,
	}

	var resp embedResponse
	if err := s.post(ctx, ":embedContent", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding.Values) == 0 {
		return nil, &domain.ProviderError{Provider: providerName, Message: "invalid embedding response format"}
	}
	return resp.Embedding.Values, nil
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batch := batchRequest{Requests: make([]embedRequest, len(texts))}
	for i, text := range texts {
		batch.Requests[i] = embedRequest{
			Model:    "models/" + s.model,
			Content:  content{Parts: []part{{Text: text}}},
			TaskType: s.taskType,
		}
	}

	var resp batchResponse
	if err := s.post(ctx, ":batchEmbedContents", batch, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, &domain.ProviderError{
			Provider: providerName,
			Message:  fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings)),
		}
	}

	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the model name.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping checks that the key is accepted and the model exists.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models/"+s.model, http.NoBody)
	if err != nil {
		return fmt.Errorf("gemini: failed to create ping request: %w", err)
	}
	req.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return &domain.ProviderError{Provider: providerName, Err: fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return s.statusError(resp)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// post sends a JSON request to the model endpoint and decodes the reply.
func (s *EmbeddingService) post(ctx context.Context, method string, body, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := s.baseURL + "/models/" + s.model + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.apiKey)

	logger.Debug("gemini: POST %s", method)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &domain.ProviderError{Provider: providerName, Err: fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return s.statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.ProviderError{Provider: providerName, Message: "invalid embedding response format", Err: err}
	}
	return nil
}

// statusError converts a non-200 response into a ProviderError.
func (s *EmbeddingService) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	msg := resp.Status
	var apiErr errorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	} else if len(body) > 0 {
		msg = strings.TrimSpace(string(body))
	}

	perr := &domain.ProviderError{Provider: providerName, StatusCode: resp.StatusCode, Message: msg}
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		s.limiter.RecordRateLimitError(embedding.RetryAfter(resp.Header))
		perr.Err = domain.ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		perr.Err = domain.ErrMissingAPIKey
	default:
		if resp.StatusCode >= 500 {
			perr.Err = domain.ErrEmbeddingUnavailable
		}
	}
	return perr
}
