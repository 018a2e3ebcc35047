package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jacfrist/student-support-assistant/internal/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AssistantRepository defines the interface for assistant persistence
type AssistantRepository interface {
	Create(ctx context.Context, assistant entity.Assistant) (*entity.Assistant, error)
	Get(ctx context.Context, id string) (*entity.Assistant, error)
	GetBySlug(ctx context.Context, slug string) (*entity.Assistant, error)
	List(ctx context.Context, skip, limit int) ([]*entity.AssistantSummary, error)
	ListActive(ctx context.Context) ([]*entity.Assistant, error)
	Update(ctx context.Context, assistant entity.Assistant) (*entity.Assistant, error)
	Delete(ctx context.Context, id string) error
	TouchLastSynced(ctx context.Context, id string, at time.Time) error
}

var _ AssistantRepository = &AssistantPostgres{}

// AssistantPostgres implements AssistantRepository using PostgreSQL
type AssistantPostgres struct {
	db *pgxpool.Pool
}

func NewAssistantPostgres(db *pgxpool.Pool) *AssistantPostgres {
	return &AssistantPostgres{db: db}
}

const assistantColumns = `id, name, slug, description, welcome_message, folder_path,
	is_active, response_style, max_response_length, citations_enabled,
	context_strategy, created_at, updated_at, last_synced_at`

func (r *AssistantPostgres) Create(ctx context.Context, a entity.Assistant) (*entity.Assistant, error) {
	query := `
		INSERT INTO assistants (id, name, slug, description, welcome_message, folder_path,
			is_active, response_style, max_response_length, citations_enabled, context_strategy)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + assistantColumns

	row := r.db.QueryRow(ctx, query,
		a.ID, a.Name, a.Slug, a.Description, a.WelcomeMessage, a.FolderPath,
		a.IsActive, a.ResponseStyle, a.MaxResponseLength, a.CitationsEnabled, a.ContextStrategy,
	)

	created, err := scanAssistant(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("%w: %s", entity.ErrSlugTaken, a.Slug)
		}
		return nil, fmt.Errorf("create assistant: %w", err)
	}

	return created, nil
}

func (r *AssistantPostgres) Get(ctx context.Context, id string) (*entity.Assistant, error) {
	query := `SELECT ` + assistantColumns + ` FROM assistants WHERE id = $1`

	a, err := scanAssistant(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrAssistantNotFound
		}
		return nil, fmt.Errorf("get assistant: %w", err)
	}

	return a, nil
}

func (r *AssistantPostgres) GetBySlug(ctx context.Context, slug string) (*entity.Assistant, error) {
	query := `SELECT ` + assistantColumns + ` FROM assistants WHERE slug = $1`

	a, err := scanAssistant(r.db.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrAssistantNotFound
		}
		return nil, fmt.Errorf("get assistant by slug: %w", err)
	}

	return a, nil
}

func (r *AssistantPostgres) List(ctx context.Context, skip, limit int) ([]*entity.AssistantSummary, error) {
	query := `
		SELECT a.id, a.name, a.slug, a.is_active, a.response_style,
			count(d.id), a.last_synced_at
		FROM assistants a
		LEFT JOIN documents d ON d.assistant_id = a.id
		GROUP BY a.id
		ORDER BY a.created_at DESC
		OFFSET $1 LIMIT $2`

	rows, err := r.db.Query(ctx, query, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list assistants: %w", err)
	}
	defer rows.Close()

	summaries := make([]*entity.AssistantSummary, 0)
	for rows.Next() {
		var s entity.AssistantSummary
		var lastSynced *time.Time
		if err := rows.Scan(&s.ID, &s.Name, &s.Slug, &s.IsActive, &s.ResponseStyle,
			&s.DocumentCount, &lastSynced); err != nil {
			return nil, fmt.Errorf("scan assistant summary: %w", err)
		}
		if lastSynced != nil {
			formatted := lastSynced.UTC().Format(time.RFC3339)
			s.LastSyncedAt = &formatted
		}
		summaries = append(summaries, &s)
	}

	return summaries, rows.Err()
}

// ListActive returns every active assistant. Used to resume folder
// monitoring after a restart.
func (r *AssistantPostgres) ListActive(ctx context.Context) ([]*entity.Assistant, error) {
	query := `SELECT ` + assistantColumns + ` FROM assistants WHERE is_active ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active assistants: %w", err)
	}
	defer rows.Close()

	assistants := make([]*entity.Assistant, 0)
	for rows.Next() {
		a, err := scanAssistant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assistant: %w", err)
		}
		assistants = append(assistants, a)
	}

	return assistants, rows.Err()
}

func (r *AssistantPostgres) Update(ctx context.Context, a entity.Assistant) (*entity.Assistant, error) {
	query := `
		UPDATE assistants
		SET name = $2, description = $3, welcome_message = $4, folder_path = $5,
			is_active = $6, response_style = $7, max_response_length = $8,
			citations_enabled = $9, context_strategy = $10, updated_at = now()
		WHERE id = $1
		RETURNING ` + assistantColumns

	row := r.db.QueryRow(ctx, query,
		a.ID, a.Name, a.Description, a.WelcomeMessage, a.FolderPath,
		a.IsActive, a.ResponseStyle, a.MaxResponseLength, a.CitationsEnabled, a.ContextStrategy,
	)

	updated, err := scanAssistant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrAssistantNotFound
		}
		return nil, fmt.Errorf("update assistant: %w", err)
	}

	return updated, nil
}

// Delete removes the assistant; documents and conversations cascade.
func (r *AssistantPostgres) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM assistants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assistant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrAssistantNotFound
	}
	return nil
}

func (r *AssistantPostgres) TouchLastSynced(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE assistants SET last_synced_at = $2, updated_at = now() WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("touch last synced: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssistant(row rowScanner) (*entity.Assistant, error) {
	var a entity.Assistant
	err := row.Scan(
		&a.ID, &a.Name, &a.Slug, &a.Description, &a.WelcomeMessage, &a.FolderPath,
		&a.IsActive, &a.ResponseStyle, &a.MaxResponseLength, &a.CitationsEnabled,
		&a.ContextStrategy, &a.CreatedAt, &a.UpdatedAt, &a.LastSyncedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
