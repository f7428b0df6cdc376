package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
	"github.com/custodia-labs/docchat/internal/postprocessors/chunker"
)

// Ensure EmbeddingEngine implements the interface.
var _ driving.EmbeddingEngine = (*EmbeddingEngine)(nil)

// Query vectors are memoised for this long.
const (
	queryCacheTTL     = 10 * time.Minute
	queryCachePurge   = 20 * time.Minute
	defaultSearchTopK = 5
)

// EmbeddingEngine chunks documents, caches their vectors through the
// content store and ranks cached chunks against a query.
type EmbeddingEngine struct {
	content  driving.ContentService
	kv       driven.KeyValueStore
	factory  driven.EmbeddingServiceFactory
	chunker  *chunker.Processor
	settings domain.EmbeddingSettings
	topK     int

	queries *cache.Cache
	sleep   func(ctx context.Context, d time.Duration) error

	mu          sync.RWMutex
	service     driven.EmbeddingService
	apiKey      string
	unsubscribe func()
}

// NewEmbeddingEngine creates an engine. It has no provider until Init is called.
func NewEmbeddingEngine(
	content driving.ContentService,
	kv driven.KeyValueStore,
	factory driven.EmbeddingServiceFactory,
	settings domain.EmbeddingSettings,
	topK int,
) *EmbeddingEngine {
	if settings.BatchSize <= 0 {
		settings.BatchSize = 3
	}
	if topK <= 0 {
		topK = defaultSearchTopK
	}
	return &EmbeddingEngine{
		content:  content,
		kv:       kv,
		factory:  factory,
		chunker:  chunker.New(chunker.WithChunkSize(settings.ChunkSize), chunker.WithOverlap(settings.ChunkOverlap)),
		settings: settings,
		topK:     topK,
		queries:  cache.New(queryCacheTTL, queryCachePurge),
		sleep:    sleepContext,
	}
}

// Init builds the embedding service for apiKey and persists the key.
func (e *EmbeddingEngine) Init(ctx context.Context, apiKey string) error {
	key := strings.TrimSpace(apiKey)
	if key == "" && e.settings.Provider.RequiresAPIKey() {
		return fmt.Errorf("%s embeddings: %w", e.settings.Provider, domain.ErrMissingAPIKey)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	svc, err := e.factory.Create(e.settings, key)
	if err != nil {
		return fmt.Errorf("create embedding service: %w", err)
	}

	e.mu.Lock()
	e.replaceServiceLocked(svc, key)
	e.mu.Unlock()

	if key != "" {
		if err := e.kv.Set(driven.KeyEmbeddingAPIKey, []byte(key)); err != nil {
			return &domain.StorageError{Op: "saving api key", Err: err}
		}
	}

	e.subscribe()
	logger.Info("embedding engine ready (%s, %s)", e.settings.Provider, svc.ModelName())
	return nil
}

// InitFromStore initialises the engine with the persisted API key.
func (e *EmbeddingEngine) InitFromStore(ctx context.Context) error {
	raw, err := e.kv.Get(driven.KeyEmbeddingAPIKey)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return &domain.StorageError{Op: "reading api key", Err: err}
	}
	return e.Init(ctx, string(raw))
}

// subscribe rebuilds the service whenever the stored key changes.
func (e *EmbeddingEngine) subscribe() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.unsubscribe != nil {
		return
	}
	e.unsubscribe = e.kv.Subscribe(driven.KeyEmbeddingAPIKey, e.onKeyChange)
}

func (e *EmbeddingEngine) onKeyChange(value []byte) {
	key := strings.TrimSpace(string(value))

	e.mu.Lock()
	defer e.mu.Unlock()

	if key == e.apiKey && e.service != nil {
		return
	}
	if key == "" && e.settings.Provider.RequiresAPIKey() {
		logger.Info("embedding api key removed, semantic search disabled")
		e.replaceServiceLocked(nil, "")
		return
	}

	svc, err := e.factory.Create(e.settings, key)
	if err != nil {
		logger.Warn("rebuilding embedding service: %v", err)
		e.replaceServiceLocked(nil, "")
		return
	}
	logger.Debug("embedding api key changed, service rebuilt")
	e.replaceServiceLocked(svc, key)
}

// replaceServiceLocked swaps the service and drops memoised query vectors.
func (e *EmbeddingEngine) replaceServiceLocked(svc driven.EmbeddingService, key string) {
	if e.service != nil && e.service != svc {
		_ = e.service.Close()
	}
	e.service = svc
	e.apiKey = key
	e.queries.Flush()
}

// IsInitialized reports whether an embedding service is available.
func (e *EmbeddingEngine) IsInitialized() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.service != nil
}

// APIKey returns the key the current service was built with.
func (e *EmbeddingEngine) APIKey() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.apiKey
}

func (e *EmbeddingEngine) currentService() (driven.EmbeddingService, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.service == nil {
		return nil, domain.ErrEngineNotInitialized
	}
	return e.service, nil
}

// SplitTextIntoChunks splits text into overlapping, sentence-aware chunks.
func (e *EmbeddingEngine) SplitTextIntoChunks(text string) []string {
	return e.chunker.Split(text)
}

// GenerateEmbedding embeds one piece of text.
func (e *EmbeddingEngine) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	svc, err := e.currentService()
	if err != nil {
		return nil, err
	}
	return embedWith(ctx, svc, text)
}

func embedWith(ctx context.Context, svc driven.EmbeddingService, text string) ([]float32, error) {
	vector, err := svc.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, &domain.ProviderError{Provider: svc.ModelName(), Message: "response has no embedding vector"}
	}
	return vector, nil
}

// EnsureEmbeddings caches vectors for every document that lacks them.
// Documents are processed in order; the first failure stops the run.
func (e *EmbeddingEngine) EnsureEmbeddings(
	ctx context.Context, docs []domain.Document, progress driving.ProgressReporter,
) (*domain.EmbeddingReport, error) {
	svc, err := e.currentService()
	if err != nil {
		return nil, err
	}
	if progress == nil {
		progress = driving.ProgressFunc(func(domain.EmbeddingProgress) {})
	}

	pending := make([]domain.Document, 0, len(docs))
	for i := range docs {
		if !docs[i].EmbeddingsGenerated {
			pending = append(pending, docs[i])
		}
	}

	report := &domain.EmbeddingReport{}
	if len(pending) == 0 {
		logger.Debug("all %d documents already have embeddings", len(docs))
		return report, nil
	}

	logger.Section("Ensure Embeddings")
	logger.Info("%d of %d documents need embeddings", len(pending), len(docs))

	for i := range pending {
		if err := e.embedDocument(ctx, svc, &pending[i], i, len(pending), progress, report); err != nil {
			return report, fmt.Errorf("embeddings for %s: %w", pending[i].Filename, err)
		}
		report.DocumentsProcessed++
	}

	logger.Info("embeddings ready: %d generated, %d reused", report.ChunksEmbedded, report.ChunksReused)
	return report, nil
}

// embedDocument embeds the chunks of one document in batches and marks it
// generated once every chunk is cached.
func (e *EmbeddingEngine) embedDocument(
	ctx context.Context,
	svc driven.EmbeddingService,
	doc *domain.Document,
	index, total int,
	progress driving.ProgressReporter,
	report *domain.EmbeddingReport,
) error {
	chunks := e.nonEmptyChunks(doc.Content)
	logger.Debug("document %d %s: %d chunks", doc.ID, doc.Filename, len(chunks))

	var mu sync.Mutex
	done := 0

	batch := e.settings.BatchSize
	for start := 0; start < len(chunks); start += batch {
		end := min(start+batch, len(chunks))

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				reused, err := e.embedChunk(gctx, svc, doc, i, chunks[i])
				if err != nil {
					return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
				}

				mu.Lock()
				defer mu.Unlock()
				done++
				if reused {
					report.ChunksReused++
				} else {
					report.ChunksEmbedded++
				}
				progress.Report(domain.EmbeddingProgress{
					DocumentIndex:   index,
					TotalDocuments:  total,
					ChunkProgress:   done,
					TotalChunks:     len(chunks),
					CurrentDocument: doc.Filename,
				})
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	return e.content.MarkEmbeddingsGenerated(ctx, doc.ID)
}

// embedChunk returns true when the chunk was already cached. A vector cached
// for another document is copied into a record owned by doc.
func (e *EmbeddingEngine) embedChunk(
	ctx context.Context, svc driven.EmbeddingService, doc *domain.Document, index int, text string,
) (bool, error) {
	hit, err := e.content.HasEmbedding(ctx, text)
	if err != nil {
		return false, err
	}
	if hit != nil {
		if hit.DocumentID == doc.ID {
			return true, nil
		}
		_, err := e.content.StoreEmbedding(ctx, doc.ID, text, hit.Vector, domain.ChunkMetadata{
			ChunkIndex:       index,
			DocumentFilename: doc.Filename,
		})
		return true, err
	}

	if err := e.sleep(ctx, e.settings.RequestDelay); err != nil {
		return false, err
	}

	vector, err := embedWith(ctx, svc, text)
	if err != nil {
		return false, err
	}

	_, err = e.content.StoreEmbedding(ctx, doc.ID, text, vector, domain.ChunkMetadata{
		ChunkIndex:       index,
		DocumentFilename: doc.Filename,
	})
	return false, err
}

func (e *EmbeddingEngine) nonEmptyChunks(text string) []string {
	chunks := e.chunker.Split(text)
	out := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}

// SemanticSearch ranks cached chunks by cosine similarity to the query.
func (e *EmbeddingEngine) SemanticSearch(ctx context.Context, query domain.SemanticQuery) ([]domain.SearchResult, error) {
	text := strings.TrimSpace(query.Text)
	if text == "" {
		return nil, &domain.ValidationError{Field: "query", Reason: "empty"}
	}

	svc, err := e.currentService()
	if err != nil {
		return nil, err
	}

	topK := query.TopK
	if topK <= 0 {
		topK = e.topK
	}

	queryVector, err := e.queryVector(ctx, svc, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := e.content.GetAllEmbeddings(ctx)
	if err != nil {
		return nil, err
	}

	var filter map[int64]bool
	if len(query.DocumentIDs) > 0 {
		filter = make(map[int64]bool, len(query.DocumentIDs))
		for _, id := range query.DocumentIDs {
			filter[id] = true
		}
	}

	results := make([]domain.SearchResult, 0, len(chunks))
	for i := range chunks {
		if filter != nil && !filter[chunks[i].DocumentID] {
			continue
		}
		results = append(results, domain.SearchResult{
			Chunk:      chunks[i],
			Similarity: CosineSimilarity(queryVector, chunks[i].Vector),
		})
	}

	logger.Debug("semantic search over %d chunks for %q", len(results), text)

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// queryVector embeds the query, reusing a recent vector for the same text.
func (e *EmbeddingEngine) queryVector(ctx context.Context, svc driven.EmbeddingService, text string) ([]float32, error) {
	key := svc.ModelName() + "\x00" + text
	if v, ok := e.queries.Get(key); ok {
		return v.([]float32), nil
	}

	vector, err := embedWith(ctx, svc, text)
	if err != nil {
		return nil, err
	}
	e.queries.SetDefault(key, vector)
	return vector, nil
}

// CosineSimilarity returns dot(a,b)/(|a||b|). Mismatched lengths, empty
// vectors and zero norms give 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ClearCache drops every cached vector and resets the document flags.
func (e *EmbeddingEngine) ClearCache(ctx context.Context) error {
	if err := e.content.ClearEmbeddings(ctx); err != nil {
		return err
	}
	logger.Info("embedding cache cleared")
	return nil
}

// GetStats reports cache statistics.
func (e *EmbeddingEngine) GetStats(ctx context.Context) (*domain.EmbeddingStats, error) {
	return e.content.GetEmbeddingStats(ctx)
}

// Close releases the embedding service and key subscription.
func (e *EmbeddingEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
	var err error
	if e.service != nil {
		err = e.service.Close()
		e.service = nil
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
