package ai

import (
	"context"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/jacfrist/student-support-assistant/internal/entity"
	"go.uber.org/zap"
)

// MockConnector is the completion connector used when ENABLE_MOCKS is set.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) Model() string {
	return "mock-model"
}

func (m *MockConnector) Temperature() float64 {
	return 0
}

func (m *MockConnector) Complete(ctx context.Context, req *entity.CompletionRequest) (string, error) {
	ctxzap.Info(ctx, "[MOCK] requesting completion",
		zap.String("model", req.Model),
		zap.Int("message_count", len(req.Messages)),
	)

	lastUser := ""
	for _, msg := range req.Messages {
		if msg.Role == entity.MessageRoleUser {
			lastUser = msg.Content
		}
	}

	return fmt.Sprintf("This is a mock answer to: %q. Based on the provided documents, "+
		"please consult the relevant policy section for details.", lastUser), nil
}
