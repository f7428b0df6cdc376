package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// fakeEmbedder turns text into a small feature vector: one dimension per
// keyword counting its occurrences, plus a constant so no vector is zero.
type fakeEmbedder struct {
	keywords []string
	calls    atomic.Int32
	failOn   string
	closed   atomic.Bool
	vectors  map[string][]float32
}

func newFakeEmbedder(keywords ...string) *fakeEmbedder {
	return &fakeEmbedder{keywords: keywords}
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, &domain.ProviderError{Provider: "fake", StatusCode: 500, Message: "boom", Err: domain.ErrEmbeddingUnavailable}
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	vec := make([]float32, 0, len(f.keywords)+1)
	for _, kw := range f.keywords {
		vec = append(vec, float32(strings.Count(text, kw)))
	}
	return append(vec, 0.001), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return len(f.keywords) + 1 }

func (f *fakeEmbedder) ModelName() string { return "fake-embed" }

func (f *fakeEmbedder) Ping(context.Context) error { return nil }

func (f *fakeEmbedder) Close() error {
	f.closed.Store(true)
	return nil
}

// fakeFactory hands out the same embedder and records the keys it was given.
type fakeFactory struct {
	mu       sync.Mutex
	embedder *fakeEmbedder
	keys     []string
	err      error
}

func (f *fakeFactory) Create(_ domain.EmbeddingSettings, apiKey string) (driven.EmbeddingService, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, apiKey)
	if f.err != nil {
		return nil, f.err
	}
	return f.embedder, nil
}

func (f *fakeFactory) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

// fakeBackend records chat requests and returns a canned reply.
type fakeBackend struct {
	mu        sync.Mutex
	requests  []domain.ChatRequest
	endpoints []string
	reply     *domain.ChatReply
	err       error
	block     chan struct{}

	loginToken string
	personas   []domain.Persona
	resources  []domain.Resource
	history    []domain.HistoryEntry
	feedback   []domain.Feedback
	switched   string
	deleted    string
}

func (b *fakeBackend) record(endpoint string, req domain.ChatRequest) (*domain.ChatReply, error) {
	if b.block != nil {
		<-b.block
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.endpoints = append(b.endpoints, endpoint)
	b.requests = append(b.requests, req)
	if b.err != nil {
		return nil, b.err
	}
	if b.reply != nil {
		r := *b.reply
		return &r, nil
	}
	return &domain.ChatReply{Response: "ok"}, nil
}

func (b *fakeBackend) lastRequest() (string, domain.ChatRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.requests) == 0 {
		return "", domain.ChatRequest{}
	}
	return b.endpoints[len(b.endpoints)-1], b.requests[len(b.requests)-1]
}

func (b *fakeBackend) Login(_ context.Context, username, password string) (*domain.LoginResult, error) {
	if password != "secret" {
		return nil, &domain.ProviderError{Provider: "backend", StatusCode: 401, Message: "Invalid credentials", Err: domain.ErrUnauthenticated}
	}
	return &domain.LoginResult{Token: b.loginToken, User: map[string]any{"username": username}}, nil
}

func (b *fakeBackend) Health(context.Context) (string, error) { return "ok", b.err }

func (b *fakeBackend) SendMessage(_ context.Context, req domain.ChatRequest) (*domain.ChatReply, error) {
	return b.record("message", req)
}

func (b *fakeBackend) SendClientDocuments(_ context.Context, req domain.ChatRequest) (*domain.ChatReply, error) {
	return b.record("client-documents", req)
}

func (b *fakeBackend) History(_ context.Context, sessionID string) ([]domain.HistoryEntry, error) {
	var out []domain.HistoryEntry
	for _, h := range b.history {
		if sessionID == "" || h.SessionID == sessionID {
			out = append(out, h)
		}
	}
	return out, b.err
}

func (b *fakeBackend) ListPersonas(context.Context) ([]domain.Persona, error) { return b.personas, b.err }

func (b *fakeBackend) CreatePersona(_ context.Context, p domain.Persona) (*domain.Persona, error) {
	p.ID = int64(len(b.personas) + 1)
	b.personas = append(b.personas, p)
	return &p, b.err
}

func (b *fakeBackend) SwitchPersona(_ context.Context, name string) error {
	b.switched = name
	return b.err
}

func (b *fakeBackend) DeletePersona(_ context.Context, id string) error {
	b.deleted = id
	return b.err
}

func (b *fakeBackend) SendFeedback(_ context.Context, fb domain.Feedback) error {
	b.feedback = append(b.feedback, fb)
	return b.err
}

func (b *fakeBackend) ListResources(context.Context) ([]domain.Resource, error) { return b.resources, b.err }
