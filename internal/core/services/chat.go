package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// ChatService gathers context for a message, asks the backend for a
// completion and records the turn in the session.
type ChatService struct {
	content  driving.ContentService
	engine   driving.EmbeddingEngine
	sessions driving.SessionManager
	backend  driven.ChatBackend
	search   domain.SearchSettings
	policy   domain.EmbeddingPolicy
	now      func() time.Time

	mu      sync.Mutex
	sending map[string]bool
}

// NewChatService creates a chat service. engine may be nil when semantic
// search is unavailable.
func NewChatService(
	content driving.ContentService,
	engine driving.EmbeddingEngine,
	sessions driving.SessionManager,
	backend driven.ChatBackend,
	settings domain.AppSettings,
) *ChatService {
	return &ChatService{
		content:  content,
		engine:   engine,
		sessions: sessions,
		backend:  backend,
		search:   settings.Search,
		policy:   settings.Embedding.Policy,
		now:      time.Now,
		sending:  make(map[string]bool),
	}
}

// Send posts message to the backend. An empty sessionID targets the active
// session, creating one when there is none.
func (s *ChatService) Send(
	ctx context.Context, sessionID, message string, opts domain.SendOptions,
) (*domain.SendResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, &domain.ValidationError{Field: "message", Reason: "empty", Err: domain.ErrEmptyMessage}
	}

	sessionID, err := s.resolveSession(sessionID)
	if err != nil {
		return nil, err
	}

	if !s.begin(sessionID) {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrSendInProgress)
	}
	defer s.end(sessionID)

	docs, err := s.selectedDocuments(ctx, opts.DocumentIDs)
	if err != nil {
		return nil, err
	}

	userMsg := domain.Message{Role: domain.RoleUser, Content: message, Timestamp: s.now()}
	s.showPending(sessionID, userMsg)

	req := domain.ChatRequest{
		Message:     message,
		SessionID:   sessionID,
		PersonaName: opts.Persona,
	}
	var reply *domain.ChatReply
	if len(docs) == 0 {
		reply, err = s.backend.SendMessage(ctx, req)
	} else {
		req.Documents, req.SearchMethod, err = s.gatherContext(ctx, message, docs, opts)
		if err == nil {
			reply, err = s.backend.SendClientDocuments(ctx, req)
		}
	}
	if err != nil {
		s.recordFailure(sessionID, userMsg, err)
		return nil, err
	}

	replyMsg := domain.Message{
		Role:                domain.RoleAssistant,
		Content:             reply.Response,
		Timestamp:           s.now(),
		SourceFile:          reply.SourceFile,
		TokenUsage:          reply.TokenUsage,
		FollowUpSuggestions: reply.FollowUpSuggestions,
		Persona:             reply.Persona,
		SearchMethod:        req.SearchMethod,
		HistoryID:           reply.ID,
	}
	if err := s.sessions.AppendTurn(sessionID, userMsg, replyMsg); err != nil {
		return nil, err
	}

	logger.Debug("chat reply for session %s (%s, %d context items)", sessionID, req.SearchMethod, len(req.Documents))
	return &domain.SendResult{
		UserMessage:  userMsg,
		Reply:        replyMsg,
		SearchMethod: req.SearchMethod,
		ContextCount: len(req.Documents),
	}, nil
}

// gatherContext returns the chunks closest to the message, or the whole
// selected documents when semantic search cannot be used or finds nothing.
func (s *ChatService) gatherContext(
	ctx context.Context, message string, docs []domain.Document, opts domain.SendOptions,
) ([]domain.ChatDocument, domain.SearchMethod, error) {
	if s.semanticAvailable() && !opts.ForceFullDocuments {
		ids := make([]int64, len(docs))
		for i := range docs {
			ids[i] = docs[i].ID
		}
		results, err := s.engine.SemanticSearch(ctx, domain.SemanticQuery{
			Text:        message,
			TopK:        s.search.TopK,
			DocumentIDs: ids,
		})
		if err != nil {
			return nil, "", fmt.Errorf("semantic search: %w", err)
		}
		if len(results) > 0 {
			out := make([]domain.ChatDocument, len(results))
			for i, r := range results {
				name := r.Chunk.DocumentFilename
				if name == "" {
					name = "unknown"
				}
				out[i] = domain.ChatDocument{Filename: name, Content: r.Chunk.Text}
			}
			return out, domain.SearchMethodSemanticSearch, nil
		}
		logger.Debug("no relevant chunks found, sending full documents")
	}

	out := make([]domain.ChatDocument, len(docs))
	for i := range docs {
		out[i] = domain.ChatDocument{Filename: docs[i].Filename, Content: docs[i].Content}
	}
	return out, domain.SearchMethodFullDocuments, nil
}

func (s *ChatService) semanticAvailable() bool {
	return s.search.Semantic && s.engine != nil && s.engine.IsInitialized()
}

// SelectDocuments generates embeddings for the selection when the policy
// asks for it. Otherwise it only checks that the documents exist.
func (s *ChatService) SelectDocuments(ctx context.Context, ids []int64, progress driving.ProgressReporter) error {
	docs, err := s.selectedDocuments(ctx, ids)
	if err != nil {
		return err
	}
	if len(docs) == 0 || s.policy != domain.EmbeddingPolicyOnSelect {
		return nil
	}
	if s.engine == nil || !s.engine.IsInitialized() {
		logger.Debug("embedding engine not initialised, skipping embeddings for selection")
		return nil
	}

	_, err = s.engine.EnsureEmbeddings(ctx, docs, progress)
	return err
}

func (s *ChatService) selectedDocuments(ctx context.Context, ids []int64) ([]domain.Document, error) {
	docs := make([]domain.Document, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		doc, err := s.content.GetDocument(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", id, err)
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

func (s *ChatService) resolveSession(id string) (string, error) {
	if id != "" {
		if _, err := s.sessions.Get(id); err != nil {
			return "", err
		}
		return id, nil
	}
	if current, ok := s.sessions.Current(); ok {
		return current.ID, nil
	}
	created, err := s.sessions.CreateSession("")
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// showPending stages the user message when sessionID is active so readers
// of the active session see it before the reply arrives.
func (s *ChatService) showPending(sessionID string, msg domain.Message) {
	current, ok := s.sessions.Current()
	if !ok || current.ID != sessionID {
		return
	}
	if err := s.sessions.StageMessage(msg); err != nil {
		logger.Debug("staging message for session %s: %v", sessionID, err)
	}
}

// recordFailure appends the user message and an error reply so the
// transcript shows what went wrong.
func (s *ChatService) recordFailure(sessionID string, userMsg domain.Message, cause error) {
	errMsg := domain.Message{
		Role:      domain.RoleError,
		Content:   "Error: " + cause.Error(),
		Timestamp: s.now(),
	}
	if err := s.sessions.AppendTurn(sessionID, userMsg, errMsg); err != nil {
		logger.Warn("recording failed chat turn: %v", err)
	}
}

func (s *ChatService) begin(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sending[sessionID] {
		return false
	}
	s.sending[sessionID] = true
	return true
}

func (s *ChatService) end(sessionID string) {
	s.mu.Lock()
	delete(s.sending, sessionID)
	s.mu.Unlock()
}
