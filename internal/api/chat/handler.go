package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/jacfrist/student-support-assistant/internal/entity"
	"github.com/jacfrist/student-support-assistant/internal/pkg/logger"
	"github.com/jacfrist/student-support-assistant/internal/pkg/response"
	"github.com/jacfrist/student-support-assistant/internal/pkg/transcript"
	"github.com/jacfrist/student-support-assistant/internal/pkg/validator"
)

type Handler struct {
	usecase    ChatUsecase
	assistants AssistantProvider
	validator  *validator.Validator
}

func NewHandler(usecase ChatUsecase, assistants AssistantProvider, validator *validator.Validator) *Handler {
	return &Handler{
		usecase:    usecase,
		assistants: assistants,
		validator:  validator,
	}
}

// Chat handles POST /chat/{slug}
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := chi.URLParam(r, "slug")

	ctx = logger.AddFields(ctx,
		zap.String("slug", slug),
		zap.String("action", "Chat"),
	)

	var req entity.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.validator.ValidateChatRequest(&req); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "chat message received", zap.String("session_id", req.SessionID))

	resp, err := h.usecase.GenerateResponse(ctx, slug, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "chat response generated",
		zap.String("conversation_id", resp.ConversationID),
		zap.Int64("response_time_ms", resp.ResponseTimeMs),
	)
	response.Success(w, resp)
}

// GetConversation handles GET /conversations/{conversation_id}
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "conversation_id")

	ctx = logger.AddFields(ctx,
		zap.String("conversation_id", conversationID),
		zap.String("action", "GetConversation"),
	)

	conv, err := h.usecase.GetConversation(ctx, conversationID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, conv)
}

// ListConversations handles GET /conversations?assistant_id=
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assistantID := r.URL.Query().Get("assistant_id")

	ctx = logger.AddFields(ctx,
		zap.String("assistant_id", assistantID),
		zap.String("action", "ListConversations"),
	)

	if assistantID == "" {
		h.respondError(ctx, w, http.StatusBadRequest, "assistant_id query parameter is required", entity.ErrMissingField)
		return
	}

	convs, err := h.usecase.ListConversations(ctx, assistantID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, &entity.ListConversationsResponse{Conversations: convs})
}

// RateConversation handles POST /conversations/{conversation_id}/rating
func (h *Handler) RateConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "conversation_id")

	ctx = logger.AddFields(ctx,
		zap.String("conversation_id", conversationID),
		zap.String("action", "RateConversation"),
	)

	var req entity.RateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.validator.ValidateRating(&req); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	if err := h.usecase.RateConversation(ctx, conversationID, &req); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "conversation rated", zap.Int("rating", req.Rating))
	response.Success(w, map[string]string{
		"status": "rated",
	})
}

// GetTranscript handles GET /conversations/{conversation_id}/transcript
func (h *Handler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "conversation_id")

	ctx = logger.AddFields(ctx,
		zap.String("conversation_id", conversationID),
		zap.String("action", "GetTranscript"),
	)

	format := transcript.Format(r.URL.Query().Get("format"))

	factory := transcript.NewFactory()
	formatter, err := factory.Create(format)
	if err != nil {
		ctxzap.Warn(ctx, "invalid format parameter", zap.String("format", string(format)))
		h.respondError(ctx, w, http.StatusBadRequest, "invalid format parameter",
			fmt.Errorf("format must be one of: markdown, docx, pdf"))
		return
	}

	conv, err := h.usecase.GetConversation(ctx, conversationID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	title := "Conversation Transcript"
	if assistant, err := h.assistants.GetAssistant(ctx, conv.AssistantID); err == nil {
		title = fmt.Sprintf("%s - Conversation Transcript", assistant.Name)
	}

	rendered, err := formatter.Format(title, conv)
	if err != nil {
		h.respondError(ctx, w, http.StatusInternalServerError, "failed to format transcript", err)
		return
	}

	ctxzap.Info(ctx, "transcript rendered", zap.Int("size_bytes", len(rendered)))
	w.Header().Set("Content-Type", formatter.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"transcript-%s%s\"", conversationID, formatter.FileExtension()))
	w.WriteHeader(http.StatusOK)
	w.Write(rendered)
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
	case errors.Is(err, entity.ErrAssistantNotFound),
		errors.Is(err, entity.ErrConversationNotFound):
		h.respondError(ctx, w, http.StatusNotFound, "resource not found", err)
	case errors.Is(err, entity.ErrInvalidRating):
		h.respondError(ctx, w, http.StatusBadRequest, "rating must be between 1 and 5", err)
	case errors.Is(err, entity.ErrInvalidParameter),
		errors.Is(err, entity.ErrMissingField):
		h.respondError(ctx, w, http.StatusBadRequest, "invalid parameter", err)
	default:
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}
