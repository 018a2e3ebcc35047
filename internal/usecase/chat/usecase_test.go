package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/jacfrist/student-support-assistant/internal/config"
	"github.com/jacfrist/student-support-assistant/internal/entity"
	"github.com/jacfrist/student-support-assistant/internal/relevance"
)

type fakeAssistants struct {
	assistant *entity.Assistant
}

func (f *fakeAssistants) GetAssistantBySlug(ctx context.Context, slug string) (*entity.Assistant, error) {
	if f.assistant == nil || f.assistant.Slug != slug {
		return nil, entity.ErrAssistantNotFound
	}
	return f.assistant, nil
}

type fakeDocuments struct {
	docs []*entity.Document
	err  error
}

func (f *fakeDocuments) Upsert(ctx context.Context, doc entity.Document) (*entity.Document, error) {
	return &doc, nil
}

func (f *fakeDocuments) GetByPath(ctx context.Context, assistantID, filePath string) (*entity.Document, error) {
	return nil, entity.ErrDocumentNotFound
}

func (f *fakeDocuments) ListByAssistant(ctx context.Context, assistantID string) ([]*entity.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

func (f *fakeDocuments) DeleteByPath(ctx context.Context, assistantID, filePath string) (bool, error) {
	return false, nil
}

func (f *fakeDocuments) DeleteAllForAssistant(ctx context.Context, assistantID string) error {
	return nil
}

func (f *fakeDocuments) SetExternalID(ctx context.Context, documentID, externalID string) error {
	return nil
}

type fakeConversations struct {
	mu       sync.Mutex
	convs    map[string]*entity.Conversation
	bySess   map[string]string
	appended []entity.Message
}

func newFakeConversations() *fakeConversations {
	return &fakeConversations{
		convs:  make(map[string]*entity.Conversation),
		bySess: make(map[string]string),
	}
}

func (f *fakeConversations) GetOrCreate(ctx context.Context, id, assistantID, sessionID string) (*entity.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sessKey := assistantID + "|" + sessionID
	if existing, ok := f.bySess[sessKey]; ok {
		return f.convs[existing], nil
	}
	conv := &entity.Conversation{ID: id, AssistantID: assistantID, SessionID: sessionID}
	f.convs[id] = conv
	f.bySess[sessKey] = id
	return conv, nil
}

func (f *fakeConversations) Get(ctx context.Context, id string) (*entity.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[id]
	if !ok {
		return nil, entity.ErrConversationNotFound
	}
	return conv, nil
}

func (f *fakeConversations) AppendMessage(ctx context.Context, conversationID string, msg entity.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[conversationID]
	if !ok {
		return entity.ErrConversationNotFound
	}
	conv.Messages = append(conv.Messages, msg)
	f.appended = append(f.appended, msg)
	return nil
}

func (f *fakeConversations) Rate(ctx context.Context, conversationID string, rating int, comment string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[conversationID]
	if !ok {
		return entity.ErrConversationNotFound
	}
	conv.Rating = &rating
	if comment != "" {
		conv.RatingComment = &comment
	}
	return nil
}

func (f *fakeConversations) ListByAssistant(ctx context.Context, assistantID string) ([]*entity.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Conversation
	for _, conv := range f.convs {
		if conv.AssistantID == assistantID {
			out = append(out, conv)
		}
	}
	return out, nil
}

type fakeAI struct {
	reply   string
	err     error
	lastReq *entity.CompletionRequest
}

func (f *fakeAI) Model() string        { return "test-model" }
func (f *fakeAI) Temperature() float64 { return 0.3 }

func (f *fakeAI) Complete(ctx context.Context, req *entity.CompletionRequest) (string, error) {
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeKnowledge struct {
	ids []string
}

func (f *fakeKnowledge) EnsureUploaded(ctx context.Context, docs []*entity.Document) []string {
	return f.ids
}

type fakeSelector struct{}

func (fakeSelector) SelectForDocuments(docs []*entity.Document, query string) []relevance.DocumentExcerpt {
	excerpts := make([]relevance.DocumentExcerpt, 0, len(docs))
	for _, doc := range docs {
		if doc.Content == "" {
			continue
		}
		excerpts = append(excerpts, relevance.DocumentExcerpt{
			Document: doc,
			Excerpt:  doc.Content,
			Score:    0.8,
		})
	}
	return excerpts
}

func testAssistant() *entity.Assistant {
	return &entity.Assistant{
		ID:                "a1",
		Name:              "Registrar Helper",
		Slug:              "registrar-helper",
		WelcomeMessage:    "Ask me about registration.",
		IsActive:          true,
		ResponseStyle:     entity.ResponseStyleProfessional,
		MaxResponseLength: 500,
		CitationsEnabled:  true,
		ContextStrategy:   entity.ContextStrategyEmbedded,
	}
}

func testChatConfig() config.ChatConfig {
	return config.ChatConfig{
		FallbackMessage: "I'm having trouble answering right now.",
		MaxContextChars: 12000,
	}
}

func newTestUsecase(assistant *entity.Assistant, docs *fakeDocuments, ai *fakeAI, kn *fakeKnowledge) (*ChatUsecase, *fakeConversations) {
	convs := newFakeConversations()
	uc := NewUsecase(
		&fakeAssistants{assistant: assistant},
		docs,
		convs,
		fakeSelector{},
		ai,
		kn,
		testChatConfig(),
		zap.NewNop(),
	)
	return uc, convs
}

func TestGenerateResponseEmbedded(t *testing.T) {
	assistant := testAssistant()
	docs := &fakeDocuments{docs: []*entity.Document{
		{ID: "d1", Filename: "refunds.txt", Content: "Week 2 withdrawal yields a 50% refund."},
	}}
	ai := &fakeAI{reply: "You would receive a 50% refund."}

	uc, convs := newTestUsecase(assistant, docs, ai, &fakeKnowledge{})

	resp, err := uc.GenerateResponse(context.Background(), "registrar-helper", &entity.ChatRequest{
		SessionID: "s1",
		Message:   "How much do I get back in week 2?",
	})
	if err != nil {
		t.Fatalf("GenerateResponse() error = %v", err)
	}

	if resp.Reply != "You would receive a 50% refund." {
		t.Errorf("Reply = %q", resp.Reply)
	}
	if len(resp.Citations) != 1 || resp.Citations[0].Filename != "refunds.txt" {
		t.Errorf("Citations = %+v, want one for refunds.txt", resp.Citations)
	}
	if resp.ResponseTimeMs < 0 {
		t.Errorf("ResponseTimeMs = %d", resp.ResponseTimeMs)
	}

	// Both turns must be persisted.
	conv, err := convs.Get(context.Background(), resp.ConversationID)
	if err != nil {
		t.Fatal(err)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("stored %d messages, want 2", len(conv.Messages))
	}
	if conv.Messages[0].Role != entity.MessageRoleUser || conv.Messages[1].Role != entity.MessageRoleAssistant {
		t.Errorf("message roles = %s, %s", conv.Messages[0].Role, conv.Messages[1].Role)
	}

	// System prompt carries the embedded excerpt.
	if ai.lastReq == nil || len(ai.lastReq.Messages) == 0 {
		t.Fatal("no completion request captured")
	}
	system := ai.lastReq.Messages[0]
	if system.Role != entity.MessageRoleSystem {
		t.Errorf("first message role = %s, want system", system.Role)
	}
	if !strings.Contains(system.Content, "[Source: refunds.txt]") {
		t.Errorf("system prompt misses document context:\n%s", system.Content)
	}
	if len(ai.lastReq.DataSources) != 0 {
		t.Errorf("embedded strategy must not set data sources, got %v", ai.lastReq.DataSources)
	}
}

func TestGenerateResponseRemoteRAG(t *testing.T) {
	assistant := testAssistant()
	assistant.ContextStrategy = entity.ContextStrategyRemoteRAG
	docs := &fakeDocuments{docs: []*entity.Document{
		{ID: "d1", Filename: "refunds.txt", Content: "refund text"},
	}}
	ai := &fakeAI{reply: "Grounded answer."}
	kn := &fakeKnowledge{ids: []string{"ext-1"}}

	uc, _ := newTestUsecase(assistant, docs, ai, kn)

	resp, err := uc.GenerateResponse(context.Background(), "registrar-helper", &entity.ChatRequest{
		SessionID: "s1",
		Message:   "refund?",
	})
	if err != nil {
		t.Fatal(err)
	}

	if resp.Reply != "Grounded answer." {
		t.Errorf("Reply = %q", resp.Reply)
	}
	if len(ai.lastReq.DataSources) != 1 || ai.lastReq.DataSources[0] != "ext-1" {
		t.Errorf("DataSources = %v, want [ext-1]", ai.lastReq.DataSources)
	}
	if strings.Contains(ai.lastReq.Messages[0].Content, "[Source:") {
		t.Error("remote strategy must not embed excerpts in the prompt")
	}
	if len(resp.Citations) != 0 {
		t.Errorf("remote strategy produced citations: %v", resp.Citations)
	}
}

func TestGenerateResponseFallbackOnCompletionFailure(t *testing.T) {
	assistant := testAssistant()
	docs := &fakeDocuments{}
	ai := &fakeAI{err: errors.New("upstream 503")}

	uc, convs := newTestUsecase(assistant, docs, ai, &fakeKnowledge{})

	resp, err := uc.GenerateResponse(context.Background(), "registrar-helper", &entity.ChatRequest{
		SessionID: "s1",
		Message:   "anything",
	})
	if err != nil {
		t.Fatalf("degradation must not surface an error, got %v", err)
	}

	if !strings.Contains(resp.Reply, "I'm having trouble answering right now.") {
		t.Errorf("Reply = %q, want fallback", resp.Reply)
	}
	if !strings.Contains(resp.Reply, assistant.WelcomeMessage) {
		t.Errorf("fallback should carry the welcome message, got %q", resp.Reply)
	}

	// The degraded turn is still recorded.
	conv, _ := convs.Get(context.Background(), resp.ConversationID)
	if len(conv.Messages) != 2 {
		t.Errorf("stored %d messages, want 2", len(conv.Messages))
	}
}

func TestGenerateResponseFallbackOnDocumentFailure(t *testing.T) {
	assistant := testAssistant()
	docs := &fakeDocuments{err: errors.New("db down")}
	ai := &fakeAI{reply: "should not be used"}

	uc, _ := newTestUsecase(assistant, docs, ai, &fakeKnowledge{})

	resp, err := uc.GenerateResponse(context.Background(), "registrar-helper", &entity.ChatRequest{
		SessionID: "s1",
		Message:   "anything",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Reply, "I'm having trouble answering right now.") {
		t.Errorf("Reply = %q, want fallback", resp.Reply)
	}
}

func TestGenerateResponseUnknownSlug(t *testing.T) {
	uc, _ := newTestUsecase(testAssistant(), &fakeDocuments{}, &fakeAI{reply: "x"}, &fakeKnowledge{})

	_, err := uc.GenerateResponse(context.Background(), "no-such-assistant", &entity.ChatRequest{
		SessionID: "s1",
		Message:   "hello",
	})
	if !errors.Is(err, entity.ErrAssistantNotFound) {
		t.Errorf("expected ErrAssistantNotFound, got %v", err)
	}
}

func TestGenerateResponseInactiveAssistant(t *testing.T) {
	assistant := testAssistant()
	assistant.IsActive = false

	uc, _ := newTestUsecase(assistant, &fakeDocuments{}, &fakeAI{reply: "x"}, &fakeKnowledge{})

	_, err := uc.GenerateResponse(context.Background(), "registrar-helper", &entity.ChatRequest{
		SessionID: "s1",
		Message:   "hello",
	})
	if !errors.Is(err, entity.ErrAssistantNotFound) {
		t.Errorf("expected ErrAssistantNotFound for inactive assistant, got %v", err)
	}
}

func TestGenerateResponseResumesSession(t *testing.T) {
	assistant := testAssistant()
	ai := &fakeAI{reply: "answer"}

	uc, _ := newTestUsecase(assistant, &fakeDocuments{}, ai, &fakeKnowledge{})

	first, err := uc.GenerateResponse(context.Background(), "registrar-helper", &entity.ChatRequest{
		SessionID: "s1", Message: "first",
	})
	if err != nil {
		t.Fatal(err)
	}
	second, err := uc.GenerateResponse(context.Background(), "registrar-helper", &entity.ChatRequest{
		SessionID: "s1", Message: "second",
	})
	if err != nil {
		t.Fatal(err)
	}

	if first.ConversationID != second.ConversationID {
		t.Errorf("same session produced different conversations: %s != %s",
			first.ConversationID, second.ConversationID)
	}

	// The second turn's prompt carries the first turn as history.
	var sawHistory bool
	for _, msg := range ai.lastReq.Messages[1:] {
		if msg.Content == "first" {
			sawHistory = true
		}
	}
	if !sawHistory {
		t.Error("second turn prompt misses first-turn history")
	}
}

func TestGenerateResponseExplicitConversationID(t *testing.T) {
	assistant := testAssistant()
	ai := &fakeAI{reply: "answer"}

	uc, _ := newTestUsecase(assistant, &fakeDocuments{}, ai, &fakeKnowledge{})

	first, err := uc.GenerateResponse(context.Background(), "registrar-helper", &entity.ChatRequest{
		SessionID: "s1", Message: "first",
	})
	if err != nil {
		t.Fatal(err)
	}

	// A later turn may carry the conversation id instead of the session.
	second, err := uc.GenerateResponse(context.Background(), "registrar-helper", &entity.ChatRequest{
		ConversationID: first.ConversationID, Message: "second",
	})
	if err != nil {
		t.Fatalf("resume by conversation id failed: %v", err)
	}
	if second.ConversationID != first.ConversationID {
		t.Errorf("conversation id changed: %s != %s", second.ConversationID, first.ConversationID)
	}

	_, err = uc.GenerateResponse(context.Background(), "registrar-helper", &entity.ChatRequest{
		ConversationID: "no-such-conversation", Message: "hello",
	})
	if !errors.Is(err, entity.ErrConversationNotFound) {
		t.Errorf("unknown conversation id: got %v, want ErrConversationNotFound", err)
	}
}

func TestGenerateResponseForeignConversationRejected(t *testing.T) {
	assistant := testAssistant()
	uc, convs := newTestUsecase(assistant, &fakeDocuments{}, &fakeAI{reply: "x"}, &fakeKnowledge{})

	// Conversation owned by a different assistant.
	if _, err := convs.GetOrCreate(context.Background(), "c-other", "other-assistant", "s9"); err != nil {
		t.Fatal(err)
	}

	_, err := uc.GenerateResponse(context.Background(), "registrar-helper", &entity.ChatRequest{
		ConversationID: "c-other", Message: "hello",
	})
	if !errors.Is(err, entity.ErrConversationNotFound) {
		t.Errorf("foreign conversation: got %v, want ErrConversationNotFound", err)
	}
}

func TestListConversations(t *testing.T) {
	assistant := testAssistant()
	uc, _ := newTestUsecase(assistant, &fakeDocuments{}, &fakeAI{reply: "x"}, &fakeKnowledge{})

	for _, session := range []string{"s1", "s2"} {
		if _, err := uc.GenerateResponse(context.Background(), "registrar-helper", &entity.ChatRequest{
			SessionID: session, Message: "hello",
		}); err != nil {
			t.Fatal(err)
		}
	}

	convs, err := uc.ListConversations(context.Background(), assistant.ID)
	if err != nil {
		t.Fatalf("ListConversations() error = %v", err)
	}
	if len(convs) != 2 {
		t.Errorf("got %d conversations, want 2", len(convs))
	}
}

func TestRateConversation(t *testing.T) {
	uc, convs := newTestUsecase(testAssistant(), &fakeDocuments{}, &fakeAI{reply: "x"}, &fakeKnowledge{})

	resp, err := uc.GenerateResponse(context.Background(), "registrar-helper", &entity.ChatRequest{
		SessionID: "s1", Message: "hello",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := uc.RateConversation(context.Background(), resp.ConversationID, &entity.RateConversationRequest{
		Rating: 0,
	}); !errors.Is(err, entity.ErrInvalidRating) {
		t.Errorf("rating 0: expected ErrInvalidRating, got %v", err)
	}

	if err := uc.RateConversation(context.Background(), resp.ConversationID, &entity.RateConversationRequest{
		Rating: 4, Comment: "helpful",
	}); err != nil {
		t.Fatalf("RateConversation() error = %v", err)
	}

	conv, _ := convs.Get(context.Background(), resp.ConversationID)
	if conv.Rating == nil || *conv.Rating != 4 {
		t.Errorf("Rating = %v, want 4", conv.Rating)
	}
}

func TestBuildMessagesHistoryWindow(t *testing.T) {
	assistant := testAssistant()
	uc, _ := newTestUsecase(assistant, &fakeDocuments{}, &fakeAI{reply: "x"}, &fakeKnowledge{})

	conv := &entity.Conversation{ID: "c1"}
	for i := 0; i < 10; i++ {
		role := entity.MessageRoleUser
		if i%2 == 1 {
			role = entity.MessageRoleAssistant
		}
		conv.Messages = append(conv.Messages, entity.Message{
			Role:    role,
			Content: strings.Repeat("x", i+1),
		})
	}

	messages := uc.buildMessages(assistant, conv, "current question", "")

	// system + historyWindow + current turn
	if len(messages) != 1+historyWindow+1 {
		t.Fatalf("got %d messages, want %d", len(messages), 1+historyWindow+1)
	}
	if messages[len(messages)-1].Content != "current question" {
		t.Errorf("last message = %q, want the current turn", messages[len(messages)-1].Content)
	}
	// Oldest retained history entry is message index 4 (len 5).
	if got := messages[1].Content; len(got) != 5 {
		t.Errorf("oldest retained history has length %d, want 5", len(got))
	}
}

func TestAssembleContextBudget(t *testing.T) {
	excerpts := []relevance.DocumentExcerpt{
		{Document: &entity.Document{Filename: "a.txt"}, Excerpt: strings.Repeat("a", 100)},
		{Document: &entity.Document{Filename: "b.txt"}, Excerpt: strings.Repeat("b", 100)},
		{Document: &entity.Document{Filename: "c.txt"}, Excerpt: strings.Repeat("c", 100)},
	}

	full := assembleContext(excerpts, 12000)
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		if !strings.Contains(full, "[Source: "+name+"]") {
			t.Errorf("context misses %s", name)
		}
	}

	trimmed := assembleContext(excerpts, 150)
	if !strings.Contains(trimmed, "a.txt") {
		t.Error("budgeted context must keep the first excerpt")
	}
	if strings.Contains(trimmed, "b.txt") || strings.Contains(trimmed, "c.txt") {
		t.Errorf("budgeted context kept excerpts past the limit:\n%s", trimmed)
	}
}

func TestBuildCitationsTruncatesExcerpts(t *testing.T) {
	excerpts := []relevance.DocumentExcerpt{
		{
			Document: &entity.Document{ID: "d1", Filename: "long.txt"},
			Excerpt:  strings.Repeat("y", 500),
			Score:    0.9,
		},
	}

	citations := buildCitations(excerpts)
	if len(citations) != 1 {
		t.Fatalf("got %d citations, want 1", len(citations))
	}
	if len(citations[0].Excerpt) != citationExcerptLimit+3 {
		t.Errorf("citation excerpt length = %d, want %d", len(citations[0].Excerpt), citationExcerptLimit+3)
	}
	if !strings.HasSuffix(citations[0].Excerpt, "...") {
		t.Error("truncated citation should end with ellipsis")
	}
}
