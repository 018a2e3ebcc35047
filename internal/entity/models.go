package entity

import (
	"fmt"
	"time"
)

// ResponseStyle controls the tone the assistant answers with.
type ResponseStyle string

const (
	ResponseStyleFormal       ResponseStyle = "formal"
	ResponseStyleFriendly     ResponseStyle = "friendly"
	ResponseStyleProfessional ResponseStyle = "professional"
)

func (rs ResponseStyle) Validate() error {
	switch rs {
	case ResponseStyleFormal, ResponseStyleFriendly, ResponseStyleProfessional:
		return nil
	default:
		return fmt.Errorf("unknown response style: %s", rs)
	}
}

// ContextStrategy selects how document material reaches the completion
// service: excerpts embedded into the prompt, or delegation to the remote
// RAG store via uploaded data sources.
type ContextStrategy string

const (
	ContextStrategyEmbedded  ContextStrategy = "embedded"
	ContextStrategyRemoteRAG ContextStrategy = "remote_rag"
)

func (cs ContextStrategy) Validate() error {
	switch cs {
	case ContextStrategyEmbedded, ContextStrategyRemoteRAG:
		return nil
	default:
		return fmt.Errorf("unknown context strategy: %s", cs)
	}
}

// SyncAction tags a document change notification.
type SyncAction string

const (
	SyncActionAdded   SyncAction = "added"
	SyncActionChanged SyncAction = "changed"
	SyncActionRemoved SyncAction = "removed"
)

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// Assistant pairs a monitored document folder with chat behavior settings.
type Assistant struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Slug              string          `json:"slug"`
	Description       string          `json:"description"`
	WelcomeMessage    string          `json:"welcome_message"`
	FolderPath        string          `json:"folder_path"`
	IsActive          bool            `json:"is_active"`
	ResponseStyle     ResponseStyle   `json:"response_style"`
	MaxResponseLength int             `json:"max_response_length"`
	CitationsEnabled  bool            `json:"citations_enabled"`
	ContextStrategy   ContextStrategy `json:"context_strategy"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	LastSyncedAt      *time.Time      `json:"last_synced_at,omitempty"`
}

// Document is the processed representation of one source file, owned by
// exactly one assistant. (AssistantID, FilePath) is the upsert key.
type Document struct {
	ID             string     `json:"id"`
	AssistantID    string     `json:"assistant_id"`
	FilePath       string     `json:"file_path"`
	Filename       string     `json:"filename"`
	MediaType      string     `json:"media_type"`
	SizeBytes      int64      `json:"size_bytes"`
	Content        string     `json:"content"`
	Title          string     `json:"title"`
	Keywords       []string   `json:"keywords"`
	Checksum       string     `json:"checksum"`
	FileModifiedAt time.Time  `json:"file_modified_at"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	// ExternalID caches the remote knowledge-store identifier so a document
	// is uploaded at most once. Persisted, so it survives restarts.
	ExternalID *string   `json:"external_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Conversation holds the append-only message history for one chat session.
type Conversation struct {
	ID             string     `json:"id"`
	AssistantID    string     `json:"assistant_id"`
	SessionID      string     `json:"session_id"`
	Messages       []Message  `json:"messages"`
	Rating         *int       `json:"rating,omitempty"`
	RatingComment  *string    `json:"rating_comment,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
}

type Message struct {
	ID             string      `json:"id"`
	Role           MessageRole `json:"role"`
	Content        string      `json:"content"`
	Citations      []Citation  `json:"citations,omitempty"`
	ResponseTimeMs *int64      `json:"response_time_ms,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Citation points a message back at the document excerpt it was grounded
// on. Score is in [0,1].
type Citation struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Excerpt    string  `json:"excerpt"`
	Score      float64 `json:"score"`
}
