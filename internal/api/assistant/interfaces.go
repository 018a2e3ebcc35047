package assistant

import (
	"context"

	"github.com/jacfrist/student-support-assistant/internal/entity"
)

type AssistantUsecase interface {
	CreateAssistant(ctx context.Context, req *entity.CreateAssistantRequest) (*entity.Assistant, error)
	ListAssistants(ctx context.Context, req *entity.ListAssistantsRequest) ([]*entity.AssistantSummary, error)
	GetAssistant(ctx context.Context, id string) (*entity.Assistant, error)
	UpdateAssistant(ctx context.Context, req *entity.UpdateAssistantRequest) (*entity.Assistant, error)
	DeleteAssistant(ctx context.Context, id string) error
	SyncNow(ctx context.Context, id string) (*entity.SyncResult, error)
	ListDocuments(ctx context.Context, assistantID string) ([]*entity.Document, error)
}
