package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/avast/retry-go/v4"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/jacfrist/student-support-assistant/internal/config"
	"github.com/jacfrist/student-support-assistant/internal/entity"
	"github.com/jacfrist/student-support-assistant/internal/integration/common"
	pkghttp "github.com/jacfrist/student-support-assistant/pkg/http"
	"go.uber.org/zap"
)

type Connector struct {
	config    config.AIConnectorConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(
	cfg config.AIConnectorConfig,
	logger *zap.Logger,
) *Connector {
	return &Connector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		config:    cfg,
		logger:    logger,
	}
}

// Model reports the configured model identifier.
func (c *Connector) Model() string {
	return c.config.Model
}

// Temperature reports the configured sampling temperature.
func (c *Connector) Temperature() float64 {
	return c.config.Temperature
}

// Complete sends the message list to the remote completion service and
// returns the generated text.
func (c *Connector) Complete(ctx context.Context, req *entity.CompletionRequest) (string, error) {
	ctxzap.Info(ctx, "requesting completion",
		zap.String("model", req.Model),
		zap.Int("message_count", len(req.Messages)),
		zap.Int("data_source_count", len(req.DataSources)),
	)

	opts := append(c.config.Retry.ToRetryOptions(), retry.Context(ctx))

	reply, err := retry.DoWithData(func() (string, error) {
		var raw json.RawMessage
		if err := c.connector.DoRequest(ctx, http.MethodPost, c.config.CompletionEndpoint, req, &raw); err != nil {
			return "", err
		}
		return NormalizeResponse(raw)
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	ctxzap.Info(ctx, "completion received", zap.Int("reply_length", len(reply)))

	return reply, nil
}

// NormalizeResponse defensively extracts generated text from the response
// shapes the provider has been observed to return: top-level content,
// nested data.content, message.content, or an OpenAI-style choices array.
// Anything else is entity.ErrRemoteResponseUnrecognized.
func NormalizeResponse(raw []byte) (string, error) {
	var envelope entity.CompletionEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", fmt.Errorf("%w: %v", entity.ErrRemoteResponseUnrecognized, err)
	}

	switch {
	case envelope.Content != "":
		return envelope.Content, nil
	case nestedContent(envelope.Data) != "":
		return nestedContent(envelope.Data), nil
	case nestedContent(envelope.Message) != "":
		return nestedContent(envelope.Message), nil
	}

	if len(envelope.Choices) > 0 {
		var choices []struct {
			Text    string `json:"text"`
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		}
		if err := json.Unmarshal(envelope.Choices, &choices); err == nil && len(choices) > 0 {
			if choices[0].Message.Content != "" {
				return choices[0].Message.Content, nil
			}
			if choices[0].Text != "" {
				return choices[0].Text, nil
			}
		}
	}

	return "", entity.ErrRemoteResponseUnrecognized
}

// nestedContent pulls the content field out of a nested carrier object,
// tolerating carriers that are not objects at all.
func nestedContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var carrier struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &carrier); err != nil {
		return ""
	}
	return carrier.Content
}
