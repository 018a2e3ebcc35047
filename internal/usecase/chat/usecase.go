package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/jacfrist/student-support-assistant/internal/config"
	"github.com/jacfrist/student-support-assistant/internal/entity"
	"github.com/jacfrist/student-support-assistant/internal/repository"
	"go.uber.org/zap"
)

// ChatUsecase implements response generation and conversation management.
// There is exactly one generation path; the assistant's context strategy
// decides whether excerpts are embedded in the prompt or retrieval is
// delegated to the remote RAG store.
type ChatUsecase struct {
	assistants    AssistantProvider
	documents     repository.DocumentRepository
	conversations repository.ConversationRepository
	selector      ContextSelector
	aiConnector   AIConnector
	knowledge     KnowledgeConnector
	cfg           config.ChatConfig
	logger        *zap.Logger
}

func NewUsecase(
	assistants AssistantProvider,
	documents repository.DocumentRepository,
	conversations repository.ConversationRepository,
	selector ContextSelector,
	aiConnector AIConnector,
	knowledge KnowledgeConnector,
	cfg config.ChatConfig,
	logger *zap.Logger,
) *ChatUsecase {
	return &ChatUsecase{
		assistants:    assistants,
		documents:     documents,
		conversations: conversations,
		selector:      selector,
		aiConnector:   aiConnector,
		knowledge:     knowledge,
		cfg:           cfg,
		logger:        logger,
	}
}

// GenerateResponse handles one user turn. Remote failures of any kind
// degrade to an assistant-scoped fallback reply; this method returns an
// error only when the assistant cannot be resolved or storage fails.
func (uc *ChatUsecase) GenerateResponse(ctx context.Context, slug string, req *entity.ChatRequest) (*entity.ChatResponse, error) {
	started := time.Now()

	assistant, err := uc.assistants.GetAssistantBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !assistant.IsActive {
		return nil, entity.ErrAssistantNotFound
	}

	conv, err := uc.resumeConversation(ctx, assistant, req)
	if err != nil {
		return nil, err
	}

	userMsg := entity.Message{
		ID:        uuid.New().String(),
		Role:      entity.MessageRoleUser,
		Content:   req.Message,
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.conversations.AppendMessage(ctx, conv.ID, userMsg); err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}

	reply, citations := uc.generate(ctx, assistant, conv, req.Message)

	elapsed := time.Since(started).Milliseconds()
	assistantMsg := entity.Message{
		ID:             uuid.New().String(),
		Role:           entity.MessageRoleAssistant,
		Content:        reply,
		Citations:      citations,
		ResponseTimeMs: &elapsed,
		CreatedAt:      time.Now().UTC(),
	}
	if err := uc.conversations.AppendMessage(ctx, conv.ID, assistantMsg); err != nil {
		return nil, fmt.Errorf("append assistant message: %w", err)
	}

	return &entity.ChatResponse{
		ConversationID: conv.ID,
		Reply:          reply,
		Citations:      citations,
		ResponseTimeMs: elapsed,
	}, nil
}

// resumeConversation resolves the conversation for this turn: an explicit
// conversation id takes precedence over the session key, and must belong
// to the addressed assistant.
func (uc *ChatUsecase) resumeConversation(ctx context.Context, assistant *entity.Assistant, req *entity.ChatRequest) (*entity.Conversation, error) {
	if req.ConversationID != "" {
		conv, err := uc.conversations.Get(ctx, req.ConversationID)
		if err != nil {
			return nil, err
		}
		if conv.AssistantID != assistant.ID {
			return nil, entity.ErrConversationNotFound
		}
		return conv, nil
	}

	conv, err := uc.conversations.GetOrCreate(ctx, uuid.New().String(), assistant.ID, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("resume conversation: %w", err)
	}
	return conv, nil
}

// generate assembles grounding material per the assistant's strategy and
// calls the completion service. It never returns an error: every failure
// path resolves to the fallback reply.
func (uc *ChatUsecase) generate(ctx context.Context, assistant *entity.Assistant, conv *entity.Conversation, query string) (string, []entity.Citation) {
	docs, err := uc.documents.ListByAssistant(ctx, assistant.ID)
	if err != nil {
		ctxzap.Error(ctx, "failed to list documents, degrading", zap.Error(err))
		return uc.fallback(assistant), nil
	}

	completionReq := &entity.CompletionRequest{
		Model:       uc.aiConnector.Model(),
		Temperature: uc.aiConnector.Temperature(),
		MaxTokens:   assistant.MaxResponseLength,
	}

	var citations []entity.Citation

	switch assistant.ContextStrategy {
	case entity.ContextStrategyRemoteRAG:
		ids := uc.knowledge.EnsureUploaded(ctx, docs)
		if len(ids) == 0 {
			// No documents available for grounding; answer ungrounded
			// rather than failing the turn.
			ctxzap.Warn(ctx, "no external documents available for grounding")
		}
		completionReq.DataSources = ids
		completionReq.Messages = uc.buildMessages(assistant, conv, query, "")

	default:
		contextText := ""
		excerpts := uc.selector.SelectForDocuments(docs, query)
		contextText = assembleContext(excerpts, uc.cfg.MaxContextChars)
		if assistant.CitationsEnabled {
			citations = buildCitations(excerpts)
		}
		completionReq.Messages = uc.buildMessages(assistant, conv, query, contextText)
	}

	reply, err := uc.aiConnector.Complete(ctx, completionReq)
	if err != nil {
		ctxzap.Error(ctx, "completion failed, degrading to fallback",
			zap.String("assistant_id", assistant.ID),
			zap.Error(err),
		)
		return uc.fallback(assistant), nil
	}

	return reply, citations
}

func (uc *ChatUsecase) fallback(assistant *entity.Assistant) string {
	if assistant.WelcomeMessage != "" {
		return fmt.Sprintf("%s\n\n%s", uc.cfg.FallbackMessage, assistant.WelcomeMessage)
	}
	return uc.cfg.FallbackMessage
}

// GetConversation fetches a conversation by its explicit id.
func (uc *ChatUsecase) GetConversation(ctx context.Context, id string) (*entity.Conversation, error) {
	return uc.conversations.Get(ctx, id)
}

// ListConversations returns an assistant's conversations, most recently
// active first.
func (uc *ChatUsecase) ListConversations(ctx context.Context, assistantID string) ([]*entity.Conversation, error) {
	return uc.conversations.ListByAssistant(ctx, assistantID)
}

// RateConversation attaches a satisfaction rating (1-5) with an optional
// comment.
func (uc *ChatUsecase) RateConversation(ctx context.Context, conversationID string, req *entity.RateConversationRequest) error {
	if req.Rating < 1 || req.Rating > 5 {
		return entity.ErrInvalidRating
	}
	return uc.conversations.Rate(ctx, conversationID, req.Rating, req.Comment)
}
