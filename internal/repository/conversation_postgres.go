package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jacfrist/student-support-assistant/internal/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConversationRepository defines the interface for conversation persistence
type ConversationRepository interface {
	GetOrCreate(ctx context.Context, id, assistantID, sessionID string) (*entity.Conversation, error)
	Get(ctx context.Context, id string) (*entity.Conversation, error)
	AppendMessage(ctx context.Context, conversationID string, msg entity.Message) error
	Rate(ctx context.Context, conversationID string, rating int, comment string) error
	ListByAssistant(ctx context.Context, assistantID string) ([]*entity.Conversation, error)
}

var _ ConversationRepository = &ConversationPostgres{}

// ConversationPostgres implements ConversationRepository using PostgreSQL.
// Messages are stored as an append-only JSONB array on the conversation
// row; appends happen server-side so concurrent turns cannot lose entries.
type ConversationPostgres struct {
	db *pgxpool.Pool
}

func NewConversationPostgres(db *pgxpool.Pool) *ConversationPostgres {
	return &ConversationPostgres{db: db}
}

const conversationColumns = `id, assistant_id, session_id, messages, rating,
	rating_comment, started_at, last_activity_at`

// GetOrCreate resumes the conversation for (assistant_id, session_id) or
// creates a fresh one with the given id.
func (r *ConversationPostgres) GetOrCreate(ctx context.Context, id, assistantID, sessionID string) (*entity.Conversation, error) {
	query := `
		INSERT INTO conversations (id, assistant_id, session_id, messages)
		VALUES ($1, $2, $3, '[]'::jsonb)
		ON CONFLICT (assistant_id, session_id) DO UPDATE SET
			last_activity_at = now()
		RETURNING ` + conversationColumns

	conv, err := scanConversation(r.db.QueryRow(ctx, query, id, assistantID, sessionID))
	if err != nil {
		return nil, fmt.Errorf("get or create conversation: %w", err)
	}

	return conv, nil
}

func (r *ConversationPostgres) Get(ctx context.Context, id string) (*entity.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`

	conv, err := scanConversation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrConversationNotFound
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	return conv, nil
}

func (r *ConversationPostgres) AppendMessage(ctx context.Context, conversationID string, msg entity.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE conversations
		SET messages = messages || $2::jsonb, last_activity_at = now()
		WHERE id = $1`,
		conversationID, payload,
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrConversationNotFound
	}
	return nil
}

func (r *ConversationPostgres) Rate(ctx context.Context, conversationID string, rating int, comment string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE conversations SET rating = $2, rating_comment = $3 WHERE id = $1`,
		conversationID, rating, comment,
	)
	if err != nil {
		return fmt.Errorf("rate conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrConversationNotFound
	}
	return nil
}

func (r *ConversationPostgres) ListByAssistant(ctx context.Context, assistantID string) ([]*entity.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations
		WHERE assistant_id = $1 ORDER BY last_activity_at DESC`

	rows, err := r.db.Query(ctx, query, assistantID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	convs := make([]*entity.Conversation, 0)
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}

	return convs, rows.Err()
}

func scanConversation(row rowScanner) (*entity.Conversation, error) {
	var c entity.Conversation
	var messages []byte
	err := row.Scan(
		&c.ID, &c.AssistantID, &c.SessionID, &messages, &c.Rating,
		&c.RatingComment, &c.StartedAt, &c.LastActivityAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(messages, &c.Messages); err != nil {
		return nil, fmt.Errorf("parse messages: %w", err)
	}

	return &c, nil
}
