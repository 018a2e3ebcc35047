package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/jacfrist/student-support-assistant/internal/entity"
	"github.com/jacfrist/student-support-assistant/internal/pkg/logger"
	"github.com/jacfrist/student-support-assistant/internal/pkg/response"
	"github.com/jacfrist/student-support-assistant/internal/pkg/validator"
)

type Handler struct {
	usecase   AssistantUsecase
	validator *validator.Validator
}

func NewHandler(usecase AssistantUsecase, validator *validator.Validator) *Handler {
	return &Handler{
		usecase:   usecase,
		validator: validator,
	}
}

// CreateAssistant handles POST /assistants
func (h *Handler) CreateAssistant(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "CreateAssistant")

	var req entity.CreateAssistantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.validator.ValidateCreateAssistant(&req); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "creating assistant",
		zap.String("name", req.Name),
		zap.String("folder_path", req.FolderPath),
	)

	created, err := h.usecase.CreateAssistant(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "assistant created successfully",
		zap.String("assistant_id", created.ID),
		zap.String("slug", created.Slug),
	)
	response.Created(w, created)
}

// ListAssistants handles GET /assistants
func (h *Handler) ListAssistants(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ListAssistants")

	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	req := entity.ListAssistantsRequest{
		Skip:  skip,
		Limit: limit,
	}
	req.Normalize()

	summaries, err := h.usecase.ListAssistants(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "assistants listed successfully", zap.Int("count", len(summaries)))
	response.Success(w, &entity.ListAssistantsResponse{
		Assistants: summaries,
	})
}

// GetAssistant handles GET /assistants/{assistant_id}
func (h *Handler) GetAssistant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assistantID := chi.URLParam(r, "assistant_id")

	ctx = logger.AddFields(ctx,
		zap.String("assistant_id", assistantID),
		zap.String("action", "GetAssistant"),
	)

	found, err := h.usecase.GetAssistant(ctx, assistantID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, found)
}

// UpdateAssistant handles PATCH /assistants/{assistant_id}
func (h *Handler) UpdateAssistant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assistantID := chi.URLParam(r, "assistant_id")

	ctx = logger.AddFields(ctx,
		zap.String("assistant_id", assistantID),
		zap.String("action", "UpdateAssistant"),
	)

	var req entity.UpdateAssistantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	req.ID = assistantID

	updated, err := h.usecase.UpdateAssistant(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "assistant updated successfully")
	response.Success(w, updated)
}

// DeleteAssistant handles DELETE /assistants/{assistant_id}
func (h *Handler) DeleteAssistant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assistantID := chi.URLParam(r, "assistant_id")

	ctx = logger.AddFields(ctx,
		zap.String("assistant_id", assistantID),
		zap.String("action", "DeleteAssistant"),
	)

	ctxzap.Info(ctx, "deleting assistant")

	if err := h.usecase.DeleteAssistant(ctx, assistantID); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "assistant deleted successfully")
	response.Success(w, &entity.DeleteAssistantResponse{
		Status: "deleted",
	})
}

// SyncAssistant handles POST /assistants/{assistant_id}/sync
func (h *Handler) SyncAssistant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assistantID := chi.URLParam(r, "assistant_id")

	ctx = logger.AddFields(ctx,
		zap.String("assistant_id", assistantID),
		zap.String("action", "SyncAssistant"),
	)

	ctxzap.Info(ctx, "manual sync requested")

	result, err := h.usecase.SyncNow(ctx, assistantID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "sync completed", zap.Int("processed_count", result.ProcessedCount))
	response.Success(w, result)
}

// ListDocuments handles GET /assistants/{assistant_id}/documents
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assistantID := chi.URLParam(r, "assistant_id")

	ctx = logger.AddFields(ctx,
		zap.String("assistant_id", assistantID),
		zap.String("action", "ListDocuments"),
	)

	docs, err := h.usecase.ListDocuments(ctx, assistantID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	details := make([]*entity.DocumentDetail, 0, len(docs))
	for _, d := range docs {
		details = append(details, toDocumentDetail(d))
	}

	ctxzap.Info(ctx, "documents listed successfully", zap.Int("count", len(details)))
	response.Success(w, &entity.ListDocumentsResponse{
		Documents: details,
	})
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		ctxzap.Error(ctx, message, zap.Error(err))
	} else {
		ctxzap.Error(ctx, message)
	}
	response.JSON(w, status, response.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrAssistantNotFound):
		h.respondError(ctx, w, http.StatusNotFound, "assistant not found", err)
	case errors.Is(err, entity.ErrSlugTaken):
		h.respondError(ctx, w, http.StatusConflict, "slug already in use", err)
	case errors.Is(err, entity.ErrFolderNotFound):
		h.respondError(ctx, w, http.StatusBadRequest, "document folder does not exist", err)
	case errors.Is(err, entity.ErrInvalidSlug),
		errors.Is(err, entity.ErrInvalidParameter),
		errors.Is(err, entity.ErrMissingField):
		h.respondError(ctx, w, http.StatusBadRequest, "validation failed", err)
	default:
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}
