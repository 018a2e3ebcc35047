package knowledge

import (
	"context"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/jacfrist/student-support-assistant/internal/entity"
	"go.uber.org/zap"
)

// MockConnector is the knowledge store connector used when ENABLE_MOCKS
// is set.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) EnsureUploaded(ctx context.Context, docs []*entity.Document) []string {
	ctxzap.Info(ctx, "[MOCK] uploading documents to knowledge store",
		zap.Int("document_count", len(docs)),
	)

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.ExternalID != nil && *doc.ExternalID != "" {
			ids = append(ids, *doc.ExternalID)
			continue
		}
		ids = append(ids, fmt.Sprintf("mock-ext-%s", doc.ID))
	}
	return ids
}
