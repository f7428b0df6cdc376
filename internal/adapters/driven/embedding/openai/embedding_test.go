package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func newTestService(t *testing.T, model string, handler http.HandlerFunc) *EmbeddingService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: server.URL, Model: model})
	require.NoError(t, err)
	return svc
}

func TestNewEmbeddingService(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.ErrorIs(t, err, domain.ErrMissingAPIKey)

	svc, err := NewEmbeddingService(Config{APIKey: "k", Model: "text-embedding-3-large"})
	require.NoError(t, err)
	assert.Equal(t, 3072, svc.Dimensions())
	assert.Equal(t, "text-embedding-3-large", svc.ModelName())

	svc, err = NewEmbeddingService(Config{APIKey: "k", Model: "custom"})
	require.NoError(t, err)
	assert.Equal(t, 1536, svc.Dimensions())
}

func TestEmbedBatch_OrdersByIndex(t *testing.T) {
	svc := newTestService(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"a", "b"}, req.Input)
		assert.Equal(t, 1536, req.Dimensions)

		_, _ = w.Write([]byte(`{"data":[{"embedding":[2],"index":1},{"embedding":[1],"index":0}]}`))
	})

	vecs, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}}, vecs)
}

func TestEmbed_NoDimensionsForAda(t *testing.T) {
	svc := newTestService(t, "text-embedding-ada-002", func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Zero(t, req.Dimensions)
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.5],"index":0}]}`))
	})

	vec, err := svc.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5}, vec)
}

func TestEmbed_ErrorStatus(t *testing.T) {
	svc := newTestService(t, "", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	})

	_, err := svc.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrMissingAPIKey)
	assert.Equal(t, "openai error (status 401): Incorrect API key provided", err.Error())
}

func TestEmbed_RateLimited(t *testing.T) {
	svc := newTestService(t, "", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := svc.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestEmbed_EmptyData(t *testing.T) {
	svc := newTestService(t, "", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	_, err := svc.Embed(context.Background(), "x")
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	svc := newTestService(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	assert.NoError(t, svc.Ping(context.Background()))
}

func TestPing_ServerError(t *testing.T) {
	svc := newTestService(t, "", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	assert.ErrorIs(t, svc.Ping(context.Background()), domain.ErrEmbeddingUnavailable)
}
