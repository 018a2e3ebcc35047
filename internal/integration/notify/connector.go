package notify

import (
	"context"
	"net/http"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/jacfrist/student-support-assistant/internal/config"
	"github.com/jacfrist/student-support-assistant/internal/entity"
	"github.com/jacfrist/student-support-assistant/internal/integration/common"
	pkghttp "github.com/jacfrist/student-support-assistant/pkg/http"
	"go.uber.org/zap"
)

// Connector delivers fire-and-forget document change notifications.
// Delivery failures are logged and never propagated: a broken hook must
// not fail a sync.
type Connector struct {
	config    config.NotifyConnectorConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(
	cfg config.NotifyConnectorConfig,
	logger *zap.Logger,
) *Connector {
	return &Connector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		config:    cfg,
		logger:    logger,
	}
}

func (c *Connector) SendDocumentEvent(ctx context.Context, event entity.DocumentEvent) {
	if c.config.EventEndpoint == "" {
		return
	}

	err := c.connector.DoRequest(ctx, http.MethodPost, c.config.EventEndpoint, &event, nil)
	if err != nil {
		ctxzap.Warn(ctx, "failed to deliver document event",
			zap.String("assistant_id", event.AssistantID),
			zap.String("file_path", event.FilePath),
			zap.String("action", string(event.Action)),
			zap.Error(err),
		)
		return
	}

	ctxzap.Debug(ctx, "document event delivered",
		zap.String("file_path", event.FilePath),
		zap.String("action", string(event.Action)),
	)
}
