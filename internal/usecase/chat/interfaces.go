package chat

import (
	"context"

	"github.com/jacfrist/student-support-assistant/internal/entity"
	"github.com/jacfrist/student-support-assistant/internal/relevance"
)

// AIConnector is the remote completion service client.
type AIConnector interface {
	Model() string
	Temperature() float64
	Complete(ctx context.Context, req *entity.CompletionRequest) (string, error)
}

// KnowledgeConnector mirrors documents into the remote RAG store and
// returns their external identifiers.
type KnowledgeConnector interface {
	EnsureUploaded(ctx context.Context, docs []*entity.Document) []string
}

// AssistantProvider resolves assistants for incoming chat turns.
type AssistantProvider interface {
	GetAssistantBySlug(ctx context.Context, slug string) (*entity.Assistant, error)
}

// ContextSelector picks per-document excerpts relevant to a query.
type ContextSelector interface {
	SelectForDocuments(docs []*entity.Document, query string) []relevance.DocumentExcerpt
}
