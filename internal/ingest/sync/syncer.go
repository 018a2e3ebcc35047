package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/jacfrist/student-support-assistant/internal/entity"
	"github.com/jacfrist/student-support-assistant/internal/ingest/derive"
	"github.com/jacfrist/student-support-assistant/internal/ingest/extract"
	"github.com/jacfrist/student-support-assistant/internal/repository"
	"go.uber.org/zap"
)

// Syncer walks an assistant's folder and feeds each eligible file through
// the extract → checksum → metadata → upsert pipeline. The same per-file
// path is used by the change watcher, so a full scan and an incremental
// event produce identical records.
type Syncer struct {
	documents repository.DocumentRepository
	logger    *zap.Logger
}

func NewSyncer(documents repository.DocumentRepository, logger *zap.Logger) *Syncer {
	return &Syncer{
		documents: documents,
		logger:    logger,
	}
}

// SyncFolder recursively processes every eligible regular file under
// folder and removes records for files that no longer exist. Hidden files
// and unsupported media types are skipped; per-file failures are logged
// and do not abort the batch. The returned count reflects successful
// upserts only.
func (s *Syncer) SyncFolder(ctx context.Context, assistantID, folder string) (int, error) {
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return 0, fmt.Errorf("%w: %s", entity.ErrFolderNotFound, folder)
	}

	seen := make(map[string]bool)
	processed := 0

	walkErr := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			ctxzap.Warn(ctx, "walk error, skipping entry", zap.String("path", path), zap.Error(err))
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		if _, err := extract.MediaTypeForFile(path); err != nil {
			ctxzap.Debug(ctx, "skipping unsupported file", zap.String("path", path))
			return nil
		}

		seen[path] = true

		if _, _, err := s.ProcessFile(ctx, assistantID, path, false); err != nil {
			ctxzap.Warn(ctx, "failed to process file, skipping",
				zap.String("path", path),
				zap.Error(err),
			)
			return nil
		}

		processed++
		return nil
	})
	if walkErr != nil {
		return processed, fmt.Errorf("walk folder %s: %w", folder, walkErr)
	}

	if err := s.removeMissing(ctx, assistantID, seen); err != nil {
		ctxzap.Warn(ctx, "failed to remove stale documents", zap.Error(err))
	}

	ctxzap.Info(ctx, "folder sync completed",
		zap.String("assistant_id", assistantID),
		zap.String("folder", folder),
		zap.Int("processed", processed),
	)

	return processed, nil
}

// ProcessFile runs the full pipeline for one file. When skipUnchanged is
// set, the stored checksum for the path is compared first and a matching
// file short-circuits without a write; the second return reports that
// skip. This is how the watcher suppresses redundant change events.
func (s *Syncer) ProcessFile(ctx context.Context, assistantID, path string, skipUnchanged bool) (*entity.Document, bool, error) {
	mediaType, err := extract.MediaTypeForFile(path)
	if err != nil {
		return nil, false, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, false, fmt.Errorf("stat %s: %w", path, err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}

	checksum := derive.Checksum(raw)

	if skipUnchanged {
		existing, err := s.documents.GetByPath(ctx, assistantID, path)
		if err != nil && !errors.Is(err, entity.ErrDocumentNotFound) {
			return nil, false, fmt.Errorf("lookup existing document: %w", err)
		}
		if existing != nil && existing.Checksum == checksum {
			ctxzap.Debug(ctx, "content unchanged, suppressing event",
				zap.String("path", path),
				zap.String("checksum", checksum),
			)
			return existing, true, nil
		}
	}

	text, err := extract.Extract(path, mediaType)
	if err != nil {
		return nil, false, err
	}

	meta := derive.DeriveMetadata(path, text)

	doc := entity.Document{
		ID:             uuid.New().String(),
		AssistantID:    assistantID,
		FilePath:       path,
		Filename:       filepath.Base(path),
		MediaType:      mediaType,
		SizeBytes:      info.Size(),
		Content:        text,
		Title:          meta.Title,
		Keywords:       meta.Keywords,
		Checksum:       checksum,
		FileModifiedAt: info.ModTime(),
	}

	saved, err := s.documents.Upsert(ctx, doc)
	if err != nil {
		return nil, false, fmt.Errorf("upsert document %s: %w", path, err)
	}

	ctxzap.Debug(ctx, "document processed",
		zap.String("path", path),
		zap.String("document_id", saved.ID),
		zap.String("checksum", checksum),
	)

	return saved, false, nil
}

// removeMissing deletes records whose files disappeared since the last
// scan.
func (s *Syncer) removeMissing(ctx context.Context, assistantID string, seen map[string]bool) error {
	docs, err := s.documents.ListByAssistant(ctx, assistantID)
	if err != nil {
		return err
	}

	for _, doc := range docs {
		if seen[doc.FilePath] {
			continue
		}
		if _, err := s.documents.DeleteByPath(ctx, assistantID, doc.FilePath); err != nil {
			ctxzap.Warn(ctx, "failed to delete stale document",
				zap.String("path", doc.FilePath),
				zap.Error(err),
			)
			continue
		}
		ctxzap.Info(ctx, "removed stale document", zap.String("path", doc.FilePath))
	}

	return nil
}
