package entity

import "encoding/json"

// ChatCompletionMessage is one turn in the message list sent to the remote
// completion service.
type ChatCompletionMessage struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// CompletionRequest is the structured request the remote completion/RAG
// service accepts.
type CompletionRequest struct {
	Model       string                  `json:"model"`
	Messages    []ChatCompletionMessage `json:"messages"`
	Temperature float64                 `json:"temperature"`
	MaxTokens   int                     `json:"max_tokens,omitempty"`
	// DataSources carries external knowledge-store identifiers when the
	// assistant delegates retrieval to the remote RAG store.
	DataSources []string `json:"data_sources,omitempty"`
}

// CompletionEnvelope mirrors the several response shapes the provider has
// been observed to return. Exactly one of the content carriers is set.
type CompletionEnvelope struct {
	Content string          `json:"content"`
	Data    json.RawMessage `json:"data"`
	Message json.RawMessage `json:"message"`
	Choices json.RawMessage `json:"choices"`
}
