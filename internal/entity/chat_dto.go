package entity

// ChatRequest is one user turn against an assistant, addressed by slug.
// SessionID lets a client resume the same conversation across requests;
// ConversationID resumes one explicitly and takes precedence when set.
type ChatRequest struct {
	SessionID      string `json:"session_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

// ChatResponse is the generated reply plus any excerpt citations.
type ChatResponse struct {
	ConversationID string     `json:"conversation_id"`
	Reply          string     `json:"reply"`
	Citations      []Citation `json:"citations,omitempty"`
	ResponseTimeMs int64      `json:"response_time_ms"`
}

// ListConversationsResponse wraps an assistant's conversation history.
type ListConversationsResponse struct {
	Conversations []*Conversation `json:"conversations"`
}

// RateConversationRequest attaches a single satisfaction rating to a
// conversation.
type RateConversationRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}
