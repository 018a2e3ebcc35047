package chat

import (
	"fmt"
	"strings"

	"github.com/jacfrist/student-support-assistant/internal/entity"
	"github.com/jacfrist/student-support-assistant/internal/relevance"
)

// Recent turns carried into the prompt for conversational continuity.
const historyWindow = 6

var styleInstructions = map[entity.ResponseStyle]string{
	entity.ResponseStyleFormal:       "Answer in a formal, precise register.",
	entity.ResponseStyleFriendly:     "Answer in a warm, encouraging tone.",
	entity.ResponseStyleProfessional: "Answer in a clear, professional tone.",
}

// buildMessages assembles the ordered message list: system prompt with
// optional embedded context, recent history, then the current user turn.
func (uc *ChatUsecase) buildMessages(assistant *entity.Assistant, conv *entity.Conversation, query, contextText string) []entity.ChatCompletionMessage {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("You are %q, a student support assistant.", assistant.Name))
	if assistant.Description != "" {
		sb.WriteString(" " + assistant.Description)
	}
	if instruction, ok := styleInstructions[assistant.ResponseStyle]; ok {
		sb.WriteString(" " + instruction)
	}
	sb.WriteString(fmt.Sprintf(" Keep responses under roughly %d words.", assistant.MaxResponseLength))
	sb.WriteString(" If the provided material does not answer the question, say so and suggest contacting the support office.")

	if contextText != "" {
		sb.WriteString("\n\nUse the following document excerpts to answer:\n\n")
		sb.WriteString(contextText)
	}

	messages := []entity.ChatCompletionMessage{
		{Role: entity.MessageRoleSystem, Content: sb.String()},
	}

	history := conv.Messages
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, msg := range history {
		if msg.Role != entity.MessageRoleUser && msg.Role != entity.MessageRoleAssistant {
			continue
		}
		messages = append(messages, entity.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	messages = append(messages, entity.ChatCompletionMessage{
		Role:    entity.MessageRoleUser,
		Content: query,
	})

	return messages
}

// assembleContext joins per-document excerpts into one bounded context
// block. Individual excerpts are already bounded by the selector; the
// total budget is enforced here.
func assembleContext(excerpts []relevance.DocumentExcerpt, maxChars int) string {
	var sb strings.Builder
	for _, e := range excerpts {
		block := fmt.Sprintf("[Source: %s]\n%s", e.Document.Filename, e.Excerpt)
		if sb.Len() > 0 && sb.Len()+len(block) > maxChars {
			break
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(block)
	}
	return sb.String()
}

const citationExcerptLimit = 300

func buildCitations(excerpts []relevance.DocumentExcerpt) []entity.Citation {
	citations := make([]entity.Citation, 0, len(excerpts))
	for _, e := range excerpts {
		excerpt := e.Excerpt
		if len(excerpt) > citationExcerptLimit {
			excerpt = excerpt[:citationExcerptLimit] + "..."
		}
		citations = append(citations, entity.Citation{
			DocumentID: e.Document.ID,
			Filename:   e.Document.Filename,
			Excerpt:    excerpt,
			Score:      e.Score,
		})
	}
	return citations
}
