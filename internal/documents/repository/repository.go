package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"consultancy_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentNotFoundMsg = "document not found"

// Repository provides database operations for student documents.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new documents repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Document struct {
	ID           uuid.UUID
	StudentID    uuid.UUID
	DocumentType string
	FileName     string
	FileKey      string
	ContentType  string
	SizeBytes    int64
	Status       string
	ReviewNotes  *string
	UploadedAt   time.Time
	ReviewedAt   *time.Time
}

const documentColumns = `id, student_id, document_type, file_name, file_key, content_type, size_bytes, status, review_notes, uploaded_at, reviewed_at`

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.StudentID, &d.DocumentType, &d.FileName, &d.FileKey, &d.ContentType, &d.SizeBytes, &d.Status, &d.ReviewNotes, &d.UploadedAt, &d.ReviewedAt)
	return d, err
}

func (r *Repository) Create(ctx context.Context, d Document) (Document, error) {
	query := `
		INSERT INTO student_documents (id, student_id, document_type, file_name, file_key, content_type, size_bytes, status, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + documentColumns

	created, err := scanDocument(r.pool.QueryRow(ctx, query,
		d.ID, d.StudentID, d.DocumentType, d.FileName, d.FileKey, d.ContentType, d.SizeBytes, d.Status, d.UploadedAt))
	if err != nil {
		return Document{}, fmt.Errorf("create document: %w", err)
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Document, error) {
	d, err := scanDocument(r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM student_documents WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, apperr.NotFound(documentNotFoundMsg)
		}
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

// List filters by student and status; zero values match everything.
// Results are in upload order.
func (r *Repository) List(ctx context.Context, studentID *uuid.UUID, status string) ([]Document, error) {
	var statusFilter *string
	if status != "" {
		statusFilter = &status
	}

	query := `SELECT ` + documentColumns + `
		FROM student_documents
		WHERE ($1::uuid IS NULL OR student_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY uploaded_at`

	rows, err := r.pool.Query(ctx, query, studentID, statusFilter)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// Review records a verification decision.
func (r *Repository) Review(ctx context.Context, id uuid.UUID, status string, notes *string, reviewedAt time.Time) (Document, error) {
	query := `
		UPDATE student_documents
		SET status = $2, review_notes = $3, reviewed_at = $4
		WHERE id = $1
		RETURNING ` + documentColumns

	d, err := scanDocument(r.pool.QueryRow(ctx, query, id, status, notes, reviewedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, apperr.NotFound(documentNotFoundMsg)
		}
		return Document{}, fmt.Errorf("review document: %w", err)
	}
	return d, nil
}
