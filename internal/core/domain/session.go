package domain

import (
	"fmt"
	"time"
)

// Role identifies who produced a message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleError     Role = "error"
)

// IsValid returns true if the role is recognised.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleError:
		return true
	default:
		return false
	}
}

// SearchMethod records how context was gathered for an assistant reply.
type SearchMethod string

// Search methods sent to the chat backend.
const (
	SearchMethodFullDocuments  SearchMethod = "full_documents"
	SearchMethodSemanticSearch SearchMethod = "semantic_search"
)

// TokenUsage holds completion token counters.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Message is one turn in a session. Messages are append-only.
type Message struct {
	Role                Role         `json:"role"`
	Content             string       `json:"content"`
	Timestamp           time.Time    `json:"timestamp"`
	SourceFile          string       `json:"sourceFile,omitempty"`
	TokenUsage          *TokenUsage  `json:"tokenUsage,omitempty"`
	FollowUpSuggestions []string     `json:"followUpSuggestions,omitempty"`
	Persona             string       `json:"persona,omitempty"`
	SearchMethod        SearchMethod `json:"searchMethod,omitempty"`

	// HistoryID is the backend's chat history id, used for feedback.
	HistoryID int64 `json:"historyId,omitempty"`
}

// Session is one conversation thread.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Messages  []Message `json:"messages"`
}

// Clone returns a copy whose message slice does not alias the original.
func (s *Session) Clone() Session {
	c := *s
	c.Messages = append([]Message(nil), s.Messages...)
	return c
}

// DefaultSessionName returns the name given to the n-th session.
func DefaultSessionName(n int) string {
	return fmt.Sprintf("Session %d", n)
}

// SessionGroup is a set of sessions created on the same calendar day.
type SessionGroup struct {
	// Day is the local date formatted as 2006-01-02.
	Day      string
	Sessions []Session
}
