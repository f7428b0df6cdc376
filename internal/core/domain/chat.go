package domain

// ChatDocument is a named block of context sent with a chat message.
// In semantic mode it holds a chunk, otherwise a whole document.
type ChatDocument struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// ChatRequest is what the chat backend receives for one send.
type ChatRequest struct {
	Message      string         `json:"message" validate:"required"`
	SessionID    string         `json:"session_id" validate:"required"`
	PersonaName  string         `json:"persona_name,omitempty"`
	Documents    []ChatDocument `json:"documents,omitempty"`
	SearchMethod SearchMethod   `json:"search_method,omitempty"`
}

// ChatReply is the backend's completion.
type ChatReply struct {
	ID                  int64       `json:"id"`
	Response            string      `json:"response"`
	SourceFile          string      `json:"source_file"`
	TokenUsage          *TokenUsage `json:"token_usage"`
	FollowUpSuggestions []string    `json:"follow_up_suggestions"`
	Persona             string      `json:"persona"`
	SearchMethod        string      `json:"search_method,omitempty"`
}

// SendOptions configures one chat send.
type SendOptions struct {
	// DocumentIDs are the selected documents used as context.
	DocumentIDs []int64

	// Persona names the backend persona, if any.
	Persona string

	// ForceFullDocuments skips semantic search.
	ForceFullDocuments bool
}

// SendResult reports the outcome of a chat send.
type SendResult struct {
	// UserMessage and Reply are the pair appended to the session.
	UserMessage Message
	Reply       Message

	// SearchMethod is how the context was gathered.
	SearchMethod SearchMethod

	// ContextCount is the number of chunks or documents sent.
	ContextCount int
}

// LoginResult is returned by the backend on successful login.
type LoginResult struct {
	Token string         `json:"token"`
	User  map[string]any `json:"user"`
}

// Persona is a backend chat persona.
type Persona struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name" validate:"required"`
	DisplayName string `json:"display_name,omitempty"`
	Description string `json:"description,omitempty"`
	Prompt      string `json:"prompt_content,omitempty"`
	IsCurrent   bool   `json:"is_current,omitempty"`
	IsDefault   bool   `json:"is_default,omitempty"`
}

// HistoryEntry is one exchange from the backend's chat history.
type HistoryEntry struct {
	ID         int64       `json:"id"`
	SessionID  string      `json:"session_id"`
	Message    string      `json:"message"`
	Response   string      `json:"response"`
	SourceFile string      `json:"source_file,omitempty"`
	TokenUsage *TokenUsage `json:"token_usage,omitempty"`
	CreatedAt  string      `json:"created_at"`
}

// Feedback rates a reply stored in the backend's chat history.
type Feedback struct {
	ChatHistoryID int64  `json:"chat_history_id" validate:"required,gt=0"`
	Rating        int    `json:"rating" validate:"min=1,max=5"`
	Comment       string `json:"comment,omitempty"`
}

// Resource is a server-side knowledge-base file.
type Resource struct {
	ID        int64  `json:"id"`
	Filename  string `json:"filename"`
	Filepath  string `json:"filepath,omitempty"`
	FileSize  int64  `json:"file_size,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// KnowledgeOrigin says where a knowledge-base entry lives.
type KnowledgeOrigin string

// Knowledge-base entry origins.
const (
	OriginLocal  KnowledgeOrigin = "local"
	OriginServer KnowledgeOrigin = "server"
)

// KnowledgeEntry merges local documents and server resources for listing.
type KnowledgeEntry struct {
	Origin     KnowledgeOrigin
	DocumentID int64
	Name       string
	Size       int64
	Embedded   bool
}
