package knowledge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	gosync "sync"

	"github.com/avast/retry-go/v4"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/jacfrist/student-support-assistant/internal/config"
	"github.com/jacfrist/student-support-assistant/internal/entity"
	"github.com/jacfrist/student-support-assistant/internal/integration/common"
	pkghttp "github.com/jacfrist/student-support-assistant/pkg/http"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ExternalIDStore persists the remote identifier back onto the document
// record so the cache survives restarts.
type ExternalIDStore interface {
	SetExternalID(ctx context.Context, documentID, externalID string) error
}

// Connector mirrors documents into the remote knowledge store using the
// provider's two-step contract: register the upload, then push raw bytes
// to the returned write URL when one is given.
type Connector struct {
	config    config.KnowledgeConnectorConfig
	connector *pkghttp.Connector
	store     ExternalIDStore
	logger    *zap.Logger
}

func NewConnector(
	cfg config.KnowledgeConnectorConfig,
	store ExternalIDStore,
	logger *zap.Logger,
) *Connector {
	return &Connector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		config:    cfg,
		store:     store,
		logger:    logger,
	}
}

// EnsureUploaded returns the external identifiers for the given documents,
// uploading any that do not carry a cached identifier yet. Per-document
// failures are logged and omitted from the result; an empty result means
// no documents are available for grounding and the caller must degrade,
// not fail.
func (c *Connector) EnsureUploaded(ctx context.Context, docs []*entity.Document) []string {
	ids := make([]string, 0, len(docs))
	var mu gosync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.UploadConcurrency)

	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			id, err := c.ensureOne(gctx, doc)
			if err != nil {
				ctxzap.Warn(gctx, "document upload failed, omitting from grounding set",
					zap.String("document_id", doc.ID),
					zap.String("filename", doc.Filename),
					zap.Error(err),
				)
				return nil
			}
			mu.Lock()
			ids = append(ids, id)
			mu.Unlock()
			return nil
		})
	}

	// Workers swallow their errors, so Wait only synchronizes.
	_ = g.Wait()

	ctxzap.Info(ctx, "knowledge sync completed",
		zap.Int("requested", len(docs)),
		zap.Int("uploaded", len(ids)),
	)

	return ids
}

func (c *Connector) ensureOne(ctx context.Context, doc *entity.Document) (string, error) {
	if doc.ExternalID != nil && *doc.ExternalID != "" {
		return *doc.ExternalID, nil
	}

	body, mediaType := uploadPayload(doc)

	opts := append(c.config.Retry.ToRetryOptions(), retry.Context(ctx))

	ack, err := retry.DoWithData(func() (*entity.RegisterUploadResponse, error) {
		var resp entity.RegisterUploadResponse
		req := &entity.RegisterUploadRequest{
			Name:          doc.Filename,
			MediaType:     mediaType,
			Tags:          []string{c.config.KnowledgeBaseTag, doc.AssistantID},
			EnableRAG:     true,
			EnableIndex:   true,
			KnowledgeBase: c.config.KnowledgeBaseTag,
		}
		if err := c.connector.DoRequest(ctx, http.MethodPost, c.config.RegisterEndpoint, req, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	}, opts...)
	if err != nil {
		return "", classifyUploadError(err)
	}

	if ack.ID == "" {
		return "", fmt.Errorf("%w: acknowledgement missing identifier", entity.ErrUploadFailed)
	}

	if ack.WriteURL != "" {
		err := c.connector.DoRawRequest(ctx, http.MethodPut, "", body, mediaType,
			pkghttp.WithURL(ack.WriteURL),
		)
		if err != nil {
			return "", classifyUploadError(err)
		}
	}

	if err := c.store.SetExternalID(ctx, doc.ID, ack.ID); err != nil {
		ctxzap.Warn(ctx, "failed to persist external id, document will re-upload next time",
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
	}

	ctxzap.Debug(ctx, "document uploaded to knowledge store",
		zap.String("document_id", doc.ID),
		zap.String("external_id", ack.ID),
	)

	return ack.ID, nil
}

// uploadPayload decides what bytes to push and the media type to declare
// for them. The store expects the original file, so the source is read
// back from disk; when it is gone (deleted or moved since indexing) the
// extracted text is pushed instead, declared as plain text so the declared
// type never disagrees with the body.
func uploadPayload(doc *entity.Document) ([]byte, string) {
	if doc.FilePath != "" {
		if raw, err := os.ReadFile(doc.FilePath); err == nil {
			return raw, doc.MediaType
		}
	}
	return []byte(doc.Content), "text/plain; charset=utf-8"
}

// classifyUploadError separates timeouts from other failures so callers
// can report them distinctly.
func classifyUploadError(err error) error {
	var netErr *pkghttp.NetworkError
	if errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && errors.Is(netErr.Err, context.DeadlineExceeded)) {
		return fmt.Errorf("%w: %v", entity.ErrUploadTimeout, err)
	}
	if errors.As(err, &netErr) {
		if timeoutErr, ok := netErr.Err.(interface{ Timeout() bool }); ok && timeoutErr.Timeout() {
			return fmt.Errorf("%w: %v", entity.ErrUploadTimeout, err)
		}
	}
	return fmt.Errorf("%w: %v", entity.ErrUploadFailed, err)
}
