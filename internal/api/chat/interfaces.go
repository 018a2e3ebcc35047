package chat

import (
	"context"

	"github.com/jacfrist/student-support-assistant/internal/entity"
)

type ChatUsecase interface {
	GenerateResponse(ctx context.Context, slug string, req *entity.ChatRequest) (*entity.ChatResponse, error)
	GetConversation(ctx context.Context, id string) (*entity.Conversation, error)
	ListConversations(ctx context.Context, assistantID string) ([]*entity.Conversation, error)
	RateConversation(ctx context.Context, conversationID string, req *entity.RateConversationRequest) error
}

type AssistantProvider interface {
	GetAssistant(ctx context.Context, id string) (*entity.Assistant, error)
}
