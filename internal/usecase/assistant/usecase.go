package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/jacfrist/student-support-assistant/internal/entity"
	"github.com/jacfrist/student-support-assistant/internal/pkg/validator"
	"github.com/jacfrist/student-support-assistant/internal/repository"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	defaultResponseStyle     = entity.ResponseStyleProfessional
	defaultMaxResponseLength = 500
	slugCachePrefix          = "slug:"
)

// AssistantUsecase implements assistant lifecycle business logic.
type AssistantUsecase struct {
	assistants repository.AssistantRepository
	documents  repository.DocumentRepository
	syncer     FolderSyncer
	watcher    WatchManager
	validator  *validator.Validator
	// cache holds slug lookups for the chat hot path; entries invalidated
	// on settings changes.
	cache  *gocache.Cache
	logger *zap.Logger
}

func NewUsecase(
	assistants repository.AssistantRepository,
	documents repository.DocumentRepository,
	syncer FolderSyncer,
	watcher WatchManager,
	validator *validator.Validator,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *AssistantUsecase {
	return &AssistantUsecase{
		assistants: assistants,
		documents:  documents,
		syncer:     syncer,
		watcher:    watcher,
		validator:  validator,
		cache:      gocache.New(cacheTTL, 2*cacheTTL),
		logger:     logger,
	}
}

// CreateAssistant registers a new assistant, performs the initial folder
// scan, and hands live updates over to the change watcher. A folder that
// does not exist yet is tolerated: monitoring starts on the next settings
// update or manual sync once the folder appears.
func (uc *AssistantUsecase) CreateAssistant(ctx context.Context, req *entity.CreateAssistantRequest) (*entity.Assistant, error) {
	slug := req.Slug
	if slug == "" {
		slug = validator.Slugify(req.Name)
	}
	if err := uc.validator.ValidateSlug(slug); err != nil {
		return nil, err
	}

	a := entity.Assistant{
		ID:                uuid.New().String(),
		Name:              req.Name,
		Slug:              slug,
		Description:       req.Description,
		WelcomeMessage:    req.WelcomeMessage,
		FolderPath:        req.FolderPath,
		IsActive:          true,
		ResponseStyle:     req.ResponseStyle,
		MaxResponseLength: req.MaxResponseLength,
		CitationsEnabled:  req.CitationsEnabled,
		ContextStrategy:   req.ContextStrategy,
	}
	if a.ResponseStyle == "" {
		a.ResponseStyle = defaultResponseStyle
	}
	if a.MaxResponseLength == 0 {
		a.MaxResponseLength = defaultMaxResponseLength
	}
	if a.ContextStrategy == "" {
		a.ContextStrategy = entity.ContextStrategyEmbedded
	}

	created, err := uc.assistants.Create(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("create assistant: %w", err)
	}

	ctxzap.Info(ctx, "assistant created",
		zap.String("assistant_id", created.ID),
		zap.String("slug", created.Slug),
	)

	if err := uc.runInitialSync(ctx, created); err != nil {
		ctxzap.Warn(ctx, "initial folder sync failed", zap.Error(err))
	}

	if err := uc.watcher.StartMonitoring(created); err != nil {
		ctxzap.Warn(ctx, "failed to start monitoring", zap.Error(err))
	}

	return created, nil
}

func (uc *AssistantUsecase) runInitialSync(ctx context.Context, a *entity.Assistant) error {
	count, err := uc.syncer.SyncFolder(ctx, a.ID, a.FolderPath)
	if err != nil {
		if errors.Is(err, entity.ErrFolderNotFound) {
			ctxzap.Warn(ctx, "assistant folder does not exist yet",
				zap.String("folder", a.FolderPath),
			)
			return nil
		}
		return err
	}

	now := time.Now()
	if err := uc.assistants.TouchLastSynced(ctx, a.ID, now); err != nil {
		return err
	}
	a.LastSyncedAt = &now

	ctxzap.Info(ctx, "initial folder sync completed", zap.Int("processed", count))
	return nil
}

func (uc *AssistantUsecase) GetAssistant(ctx context.Context, id string) (*entity.Assistant, error) {
	return uc.assistants.Get(ctx, id)
}

// GetAssistantBySlug resolves a slug with a short TTL cache in front of
// the repository; the chat endpoint hits this on every turn.
func (uc *AssistantUsecase) GetAssistantBySlug(ctx context.Context, slug string) (*entity.Assistant, error) {
	if cached, ok := uc.cache.Get(slugCachePrefix + slug); ok {
		return cached.(*entity.Assistant), nil
	}

	a, err := uc.assistants.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	uc.cache.SetDefault(slugCachePrefix+slug, a)
	return a, nil
}

func (uc *AssistantUsecase) ListAssistants(ctx context.Context, req *entity.ListAssistantsRequest) ([]*entity.AssistantSummary, error) {
	req.Normalize()
	return uc.assistants.List(ctx, req.Skip, req.Limit)
}

// UpdateAssistant applies a settings patch. A folder change triggers a
// full resync and a watcher restart on the new path.
func (uc *AssistantUsecase) UpdateAssistant(ctx context.Context, req *entity.UpdateAssistantRequest) (*entity.Assistant, error) {
	current, err := uc.assistants.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	folderChanged := applyPatch(current, req)

	updated, err := uc.assistants.Update(ctx, *current)
	if err != nil {
		return nil, fmt.Errorf("update assistant: %w", err)
	}

	uc.cache.Delete(slugCachePrefix + updated.Slug)

	if folderChanged {
		ctxzap.Info(ctx, "assistant folder changed, resyncing",
			zap.String("assistant_id", updated.ID),
			zap.String("folder", updated.FolderPath),
		)

		uc.watcher.StopMonitoring(updated.ID)

		if err := uc.documents.DeleteAllForAssistant(ctx, updated.ID); err != nil {
			return nil, fmt.Errorf("clear documents for old folder: %w", err)
		}
		if err := uc.runInitialSync(ctx, updated); err != nil {
			ctxzap.Warn(ctx, "resync after folder change failed", zap.Error(err))
		}
		if err := uc.watcher.StartMonitoring(updated); err != nil {
			ctxzap.Warn(ctx, "failed to restart monitoring", zap.Error(err))
		}
	}

	return updated, nil
}

// DeleteAssistant stops monitoring and removes the assistant; documents
// and conversations cascade in storage.
func (uc *AssistantUsecase) DeleteAssistant(ctx context.Context, id string) error {
	a, err := uc.assistants.Get(ctx, id)
	if err != nil {
		return err
	}

	uc.watcher.StopMonitoring(id)

	if err := uc.assistants.Delete(ctx, id); err != nil {
		return err
	}

	uc.cache.Delete(slugCachePrefix + a.Slug)

	ctxzap.Info(ctx, "assistant deleted",
		zap.String("assistant_id", id),
		zap.String("slug", a.Slug),
	)

	return nil
}

// SyncNow performs an on-demand full folder scan.
func (uc *AssistantUsecase) SyncNow(ctx context.Context, id string) (*entity.SyncResult, error) {
	a, err := uc.assistants.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	count, err := uc.syncer.SyncFolder(ctx, a.ID, a.FolderPath)
	if err != nil {
		return nil, err
	}

	if err := uc.assistants.TouchLastSynced(ctx, a.ID, time.Now()); err != nil {
		ctxzap.Warn(ctx, "failed to update last sync timestamp", zap.Error(err))
	}

	return &entity.SyncResult{
		AssistantID:    a.ID,
		ProcessedCount: count,
	}, nil
}

func (uc *AssistantUsecase) ListDocuments(ctx context.Context, assistantID string) ([]*entity.Document, error) {
	if _, err := uc.assistants.Get(ctx, assistantID); err != nil {
		return nil, err
	}
	return uc.documents.ListByAssistant(ctx, assistantID)
}

// applyPatch merges non-nil fields into the assistant and reports whether
// the folder path changed.
func applyPatch(a *entity.Assistant, req *entity.UpdateAssistantRequest) bool {
	folderChanged := false

	if req.Name != nil {
		a.Name = *req.Name
	}
	if req.Description != nil {
		a.Description = *req.Description
	}
	if req.WelcomeMessage != nil {
		a.WelcomeMessage = *req.WelcomeMessage
	}
	if req.FolderPath != nil && *req.FolderPath != a.FolderPath {
		a.FolderPath = *req.FolderPath
		folderChanged = true
	}
	if req.IsActive != nil {
		a.IsActive = *req.IsActive
	}
	if req.ResponseStyle != nil {
		a.ResponseStyle = *req.ResponseStyle
	}
	if req.MaxResponseLength != nil {
		a.MaxResponseLength = *req.MaxResponseLength
	}
	if req.CitationsEnabled != nil {
		a.CitationsEnabled = *req.CitationsEnabled
	}
	if req.ContextStrategy != nil {
		a.ContextStrategy = *req.ContextStrategy
	}

	return folderChanged
}
