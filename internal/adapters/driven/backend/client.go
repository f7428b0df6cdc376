// Package backend is the HTTP/JSON client for the remote chat backend:
// login, completions, history, personas, feedback and resources.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/docchat/internal/adapters/driven/auth"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.ChatBackend = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:5000/api"
	DefaultTimeout = 120 * time.Second

	providerName = "backend"
)

// Config holds configuration for the backend client.
type Config struct {
	// BaseURL includes the API prefix, e.g. http://localhost:5000/api.
	BaseURL string

	// Timeout bounds each request. Completions can be slow.
	Timeout time.Duration
}

// Client implements driven.ChatBackend over HTTP.
type Client struct {
	baseURL string

	// public sends unauthenticated requests (login, health).
	public *http.Client

	// authed attaches the bearer token from the token provider.
	authed *http.Client
}

// NewClient creates a backend client. Authenticated calls read the token
// from provider on every request.
func NewClient(cfg Config, provider driven.TokenProvider) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	// oauth2.NewClient would cache a token without expiry forever, so the
	// transport is built directly to pick up login and logout immediately.
	transport := &oauth2.Transport{
		Source: auth.NewTokenSource(context.Background(), provider),
		Base:   http.DefaultTransport,
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		public:  &http.Client{Timeout: cfg.Timeout},
		authed:  &http.Client{Timeout: cfg.Timeout, Transport: transport},
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (*domain.LoginResult, error) {
	body := map[string]string{"username": username, "password": password}

	var result domain.LoginResult
	if err := c.do(ctx, c.public, http.MethodPost, "/auth/login", body, &result); err != nil {
		return nil, err
	}
	if result.Token == "" {
		return nil, &domain.ProviderError{Provider: providerName, Message: "login response has no token"}
	}
	return &result, nil
}

// Health returns the backend status string.
func (c *Client) Health(ctx context.Context) (string, error) {
	var result struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, c.public, http.MethodGet, "/health", nil, &result); err != nil {
		return "", err
	}
	return result.Status, nil
}

// SendMessage asks for a completion grounded on server-side resources.
func (c *Client) SendMessage(ctx context.Context, req domain.ChatRequest) (*domain.ChatReply, error) {
	body := struct {
		Message     string `json:"message"`
		SessionID   string `json:"session_id"`
		PersonaName string `json:"persona_name,omitempty"`
	}{req.Message, req.SessionID, req.PersonaName}

	var reply domain.ChatReply
	if err := c.do(ctx, c.authed, http.MethodPost, "/chat/message", body, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// SendClientDocuments asks for a completion grounded on req.Documents.
func (c *Client) SendClientDocuments(ctx context.Context, req domain.ChatRequest) (*domain.ChatReply, error) {
	if req.Documents == nil {
		req.Documents = []domain.ChatDocument{}
	}
	if req.SearchMethod == "" {
		req.SearchMethod = domain.SearchMethodFullDocuments
	}

	var reply domain.ChatReply
	if err := c.do(ctx, c.authed, http.MethodPost, "/chat/message/client-documents", req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// History returns the latest chat history, optionally for one session.
func (c *Client) History(ctx context.Context, sessionID string) ([]domain.HistoryEntry, error) {
	path := "/chat/history"
	if sessionID != "" {
		path += "?session_id=" + url.QueryEscape(sessionID)
	}

	var result struct {
		Items []domain.HistoryEntry `json:"items"`
	}
	if err := c.do(ctx, c.authed, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// ListPersonas returns the user's personas. The current one is flagged
// even when the backend only reports it by name.
func (c *Client) ListPersonas(ctx context.Context) ([]domain.Persona, error) {
	var result struct {
		Personas []domain.Persona `json:"personas"`
		Current  string           `json:"current"`
	}
	if err := c.do(ctx, c.authed, http.MethodGet, "/personas", nil, &result); err != nil {
		return nil, err
	}
	for i := range result.Personas {
		if result.Personas[i].Name == result.Current {
			result.Personas[i].IsCurrent = true
		}
	}
	return result.Personas, nil
}

// CreatePersona adds a persona and returns it with its server id.
func (c *Client) CreatePersona(ctx context.Context, persona domain.Persona) (*domain.Persona, error) {
	var result struct {
		Persona domain.Persona `json:"persona"`
	}
	if err := c.do(ctx, c.authed, http.MethodPost, "/personas", persona, &result); err != nil {
		return nil, err
	}
	if result.Persona.Prompt == "" {
		result.Persona.Prompt = persona.Prompt
	}
	return &result.Persona, nil
}

// SwitchPersona makes the named persona current.
func (c *Client) SwitchPersona(ctx context.Context, name string) error {
	body := map[string]string{"persona_name": name}
	return c.do(ctx, c.authed, http.MethodPost, "/personas/switch", body, nil)
}

// DeletePersona removes a persona by id.
func (c *Client) DeletePersona(ctx context.Context, id string) error {
	return c.do(ctx, c.authed, http.MethodDelete, "/personas/"+url.PathEscape(id), nil, nil)
}

// SendFeedback rates a chat history entry.
func (c *Client) SendFeedback(ctx context.Context, feedback domain.Feedback) error {
	return c.do(ctx, c.authed, http.MethodPost, "/feedback", feedback, nil)
}

// ListResources returns the server knowledge-base files.
func (c *Client) ListResources(ctx context.Context) ([]domain.Resource, error) {
	var result struct {
		Resources []domain.Resource `json:"resources"`
	}
	if err := c.do(ctx, c.authed, http.MethodGet, "/resources", nil, &result); err != nil {
		return nil, err
	}
	return result.Resources, nil
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, client *http.Client, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger.Debug("backend %s %s", method, path)

	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// The token source fails before any request is sent.
		if errors.Is(err, domain.ErrUnauthenticated) {
			return domain.ErrUnauthenticated
		}
		return &domain.ProviderError{Provider: providerName, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, body)
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &domain.ProviderError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Message:    "invalid response format",
			Err:        err,
		}
	}
	return nil
}

// statusError maps a non-2xx response to a domain error.
func statusError(status int, body []byte) error {
	var eb errorBody
	msg := ""
	if json.Unmarshal(body, &eb) == nil {
		msg = eb.Error
		if msg == "" {
			msg = eb.Message
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}

	pe := &domain.ProviderError{Provider: providerName, StatusCode: status, Message: msg}
	switch {
	case status == http.StatusUnauthorized:
		pe.Err = domain.ErrUnauthenticated
	case status == http.StatusNotFound:
		pe.Err = domain.ErrNotFound
	case status == http.StatusConflict:
		pe.Err = domain.ErrAlreadyExists
	case status == http.StatusBadRequest:
		pe.Err = domain.ErrInvalidInput
	}
	return pe
}
