package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file type that cannot be uploaded.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrFileTooLarge indicates an upload above MaxUploadSize.
	ErrFileTooLarge = errors.New("file too large")

	// ErrDuplicateContent indicates a document with the same content hash is already stored.
	ErrDuplicateContent = errors.New("document with identical content already exists")

	// ErrEmptyMessage indicates a chat message with no text.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrInvalidBackup indicates an import file without a documents list.
	ErrInvalidBackup = errors.New("invalid backup format")

	// ErrSendInProgress indicates a send is already running for the session.
	ErrSendInProgress = errors.New("send in progress")

	// ErrNoActiveSession indicates there is no session to append to.
	ErrNoActiveSession = errors.New("no active session")

	// Embedding Errors.

	// ErrMissingAPIKey indicates the embedding provider has no API key.
	ErrMissingAPIKey = errors.New("embedding API key is required")

	// ErrEngineNotInitialized indicates the embedding engine has no provider yet.
	ErrEngineNotInitialized = errors.New("embedding engine not initialised")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Semantic search is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates the provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// Backend Errors.

	// ErrUnauthenticated indicates the backend rejected or lacks a bearer token.
	ErrUnauthenticated = errors.New("not authenticated")
)

// ValidationError is returned when input is rejected before any side effect.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// ProviderError wraps a failure from an external provider: the embedding
// API or the chat backend. Local state is never modified when one is returned.
type ProviderError struct {
	// Provider names the remote service, e.g. "gemini" or "backend".
	Provider string

	// StatusCode is the HTTP status, zero for transport errors.
	StatusCode int

	// Message is the provider's own error text where available.
	Message string

	Err error
}

func (e *ProviderError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s error (status %d)", e.Provider, e.StatusCode)
	case e.Message != "":
		return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s error: %v", e.Provider, e.Err)
	default:
		return e.Provider + " error"
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// StorageError wraps a failure of the local store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
