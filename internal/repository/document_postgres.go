package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jacfrist/student-support-assistant/internal/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentRepository defines the interface for document persistence.
// Upserts are keyed by (assistant_id, file_path); concurrent upserts for
// different paths are safe, same-path upserts are last-writer-wins.
type DocumentRepository interface {
	Upsert(ctx context.Context, doc entity.Document) (*entity.Document, error)
	GetByPath(ctx context.Context, assistantID, filePath string) (*entity.Document, error)
	ListByAssistant(ctx context.Context, assistantID string) ([]*entity.Document, error)
	DeleteByPath(ctx context.Context, assistantID, filePath string) (bool, error)
	DeleteAllForAssistant(ctx context.Context, assistantID string) error
	SetExternalID(ctx context.Context, documentID, externalID string) error
}

var _ DocumentRepository = &DocumentPostgres{}

// DocumentPostgres implements DocumentRepository using PostgreSQL
type DocumentPostgres struct {
	db *pgxpool.Pool
}

func NewDocumentPostgres(db *pgxpool.Pool) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

const documentColumns = `id, assistant_id, file_path, filename, media_type, size_bytes,
	content, title, keywords, checksum, file_modified_at, processed_at,
	external_id, created_at, updated_at`

// Upsert inserts the document or merges its fields into the record that
// already holds the (assistant_id, file_path) key. The external_id cache is
// deliberately not overwritten on conflict unless the content checksum
// changed, so an unchanged file keeps its remote identifier.
func (r *DocumentPostgres) Upsert(ctx context.Context, doc entity.Document) (*entity.Document, error) {
	query := `
		INSERT INTO documents (id, assistant_id, file_path, filename, media_type, size_bytes,
			content, title, keywords, checksum, file_modified_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (assistant_id, file_path) DO UPDATE SET
			filename = EXCLUDED.filename,
			media_type = EXCLUDED.media_type,
			size_bytes = EXCLUDED.size_bytes,
			content = EXCLUDED.content,
			title = EXCLUDED.title,
			keywords = EXCLUDED.keywords,
			checksum = EXCLUDED.checksum,
			file_modified_at = EXCLUDED.file_modified_at,
			processed_at = now(),
			external_id = CASE
				WHEN documents.checksum = EXCLUDED.checksum THEN documents.external_id
				ELSE NULL
			END,
			updated_at = now()
		RETURNING ` + documentColumns

	row := r.db.QueryRow(ctx, query,
		doc.ID, doc.AssistantID, doc.FilePath, doc.Filename, doc.MediaType, doc.SizeBytes,
		doc.Content, doc.Title, doc.Keywords, doc.Checksum, doc.FileModifiedAt,
	)

	saved, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("upsert document: %w", err)
	}

	return saved, nil
}

func (r *DocumentPostgres) GetByPath(ctx context.Context, assistantID, filePath string) (*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE assistant_id = $1 AND file_path = $2`

	doc, err := scanDocument(r.db.QueryRow(ctx, query, assistantID, filePath))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("get document by path: %w", err)
	}

	return doc, nil
}

func (r *DocumentPostgres) ListByAssistant(ctx context.Context, assistantID string) ([]*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE assistant_id = $1 ORDER BY file_path`

	rows, err := r.db.Query(ctx, query, assistantID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]*entity.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

func (r *DocumentPostgres) DeleteByPath(ctx context.Context, assistantID, filePath string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM documents WHERE assistant_id = $1 AND file_path = $2`,
		assistantID, filePath,
	)
	if err != nil {
		return false, fmt.Errorf("delete document by path: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *DocumentPostgres) DeleteAllForAssistant(ctx context.Context, assistantID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM documents WHERE assistant_id = $1`, assistantID)
	if err != nil {
		return fmt.Errorf("delete documents for assistant: %w", err)
	}
	return nil
}

func (r *DocumentPostgres) SetExternalID(ctx context.Context, documentID, externalID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE documents SET external_id = $2, updated_at = now() WHERE id = $1`,
		documentID, externalID,
	)
	if err != nil {
		return fmt.Errorf("set external id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrDocumentNotFound
	}
	return nil
}

func scanDocument(row rowScanner) (*entity.Document, error) {
	var d entity.Document
	err := row.Scan(
		&d.ID, &d.AssistantID, &d.FilePath, &d.Filename, &d.MediaType, &d.SizeBytes,
		&d.Content, &d.Title, &d.Keywords, &d.Checksum, &d.FileModifiedAt, &d.ProcessedAt,
		&d.ExternalID, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
