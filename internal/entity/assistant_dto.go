package entity

// CreateAssistantRequest carries the staff form for registering a new
// assistant.
type CreateAssistantRequest struct {
	Name              string          `json:"name"`
	Slug              string          `json:"slug,omitempty"`
	Description       string          `json:"description"`
	WelcomeMessage    string          `json:"welcome_message"`
	FolderPath        string          `json:"folder_path"`
	ResponseStyle     ResponseStyle   `json:"response_style"`
	MaxResponseLength int             `json:"max_response_length"`
	CitationsEnabled  bool            `json:"citations_enabled"`
	ContextStrategy   ContextStrategy `json:"context_strategy,omitempty"`
}

// UpdateAssistantRequest mutates assistant settings. Nil fields are left
// unchanged.
type UpdateAssistantRequest struct {
	ID                string
	Name              *string          `json:"name,omitempty"`
	Description       *string          `json:"description,omitempty"`
	WelcomeMessage    *string          `json:"welcome_message,omitempty"`
	FolderPath        *string          `json:"folder_path,omitempty"`
	IsActive          *bool            `json:"is_active,omitempty"`
	ResponseStyle     *ResponseStyle   `json:"response_style,omitempty"`
	MaxResponseLength *int             `json:"max_response_length,omitempty"`
	CitationsEnabled  *bool            `json:"citations_enabled,omitempty"`
	ContextStrategy   *ContextStrategy `json:"context_strategy,omitempty"`
}

// ListAssistantsRequest supports paging over registered assistants.
type ListAssistantsRequest struct {
	Skip  int
	Limit int
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func (r *ListAssistantsRequest) Normalize() {
	if r.Skip < 0 {
		r.Skip = 0
	}
	if r.Limit <= 0 {
		r.Limit = defaultListLimit
	}
	if r.Limit > maxListLimit {
		r.Limit = maxListLimit
	}
}

// AssistantSummary is the list-view projection of an assistant.
type AssistantSummary struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Slug          string        `json:"slug"`
	IsActive      bool          `json:"is_active"`
	ResponseStyle ResponseStyle `json:"response_style"`
	DocumentCount int           `json:"document_count"`
	LastSyncedAt  *string       `json:"last_synced_at,omitempty"`
}

// ListAssistantsResponse wraps the assistant list endpoint payload.
type ListAssistantsResponse struct {
	Assistants []*AssistantSummary `json:"assistants"`
}

// DeleteAssistantResponse confirms a completed delete.
type DeleteAssistantResponse struct {
	Status string `json:"status"`
}

// DocumentDetail is the list-view projection of a processed document.
// Extracted content stays server-side.
type DocumentDetail struct {
	ID             string   `json:"id"`
	Filename       string   `json:"filename"`
	MediaType      string   `json:"media_type"`
	SizeBytes      int64    `json:"size_bytes"`
	Title          string   `json:"title"`
	Keywords       []string `json:"keywords"`
	Checksum       string   `json:"checksum"`
	FileModifiedAt string   `json:"file_modified_at"`
	ProcessedAt    *string  `json:"processed_at,omitempty"`
}

// ListDocumentsResponse wraps the per-assistant document list payload.
type ListDocumentsResponse struct {
	Documents []*DocumentDetail `json:"documents"`
}

// SyncResult reports the outcome of a manual folder sync.
type SyncResult struct {
	AssistantID    string `json:"assistant_id"`
	ProcessedCount int    `json:"processed_count"`
}
