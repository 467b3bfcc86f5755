package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"consultancy_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskNotFoundMsg = "task not found"

// ErrDuplicatePending is returned when a pending task with the same
// idempotency key already exists.
var ErrDuplicatePending = errors.New("pending task with this idempotency key already exists")

// Repository provides database operations for follow-up tasks.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new tasks repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Task struct {
	ID             uuid.UUID
	Title          string
	Description    string
	StudentID      uuid.UUID
	AssignedTo     *uuid.UUID
	Status         string
	Priority       string
	DueDate        time.Time
	TriggerType    *string
	RuleID         *uuid.UUID
	IdempotencyKey *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

type ListParams struct {
	Status     string
	AssignedTo *uuid.UUID
	StudentID  *uuid.UUID
	Limit      int
	Offset     int
}

const taskColumns = `id, title, description, student_id, assigned_to, status, priority, due_date, trigger_type, rule_id, idempotency_key, created_at, updated_at, completed_at`

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.StudentID, &t.AssignedTo, &t.Status, &t.Priority,
		&t.DueDate, &t.TriggerType, &t.RuleID, &t.IdempotencyKey, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt)
	return t, err
}

// Create inserts a task. The partial unique index on pending idempotency
// keys turns a concurrent duplicate into ErrDuplicatePending.
func (r *Repository) Create(ctx context.Context, t Task) (Task, error) {
	query := `
		INSERT INTO tasks (id, title, description, student_id, assigned_to, status, priority, due_date,
			trigger_type, rule_id, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + taskColumns

	created, err := scanTask(r.pool.QueryRow(ctx, query,
		t.ID, t.Title, t.Description, t.StudentID, t.AssignedTo, t.Status, t.Priority, t.DueDate,
		t.TriggerType, t.RuleID, t.IdempotencyKey, t.CreatedAt, t.UpdatedAt))
	if err != nil {
		return Task{}, createError(err)
	}
	return created, nil
}

func createError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicatePending
	}
	return fmt.Errorf("create task: %w", err)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, apperr.NotFound(taskNotFoundMsg)
		}
		return Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// List returns tasks ordered by due date. A zero Limit returns everything.
func (r *Repository) List(ctx context.Context, params ListParams) ([]Task, error) {
	var status *string
	if params.Status != "" {
		status = &params.Status
	}
	var limit *int
	if params.Limit > 0 {
		limit = &params.Limit
	}

	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::uuid IS NULL OR assigned_to = $2)
		  AND ($3::uuid IS NULL OR student_id = $3)
		ORDER BY due_date, created_at
		LIMIT $4 OFFSET $5`

	rows, err := r.pool.Query(ctx, query, status, params.AssignedTo, params.StudentID, limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	items := make([]Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

// SetStatus moves a pending task to a final status. Tasks that are no longer
// pending are left untouched and reported as a conflict.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status string, at time.Time) (Task, error) {
	query := `
		UPDATE tasks
		SET status = $2, updated_at = $3,
		    completed_at = CASE WHEN $2 = 'completed' THEN $3 ELSE completed_at END
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + taskColumns

	t, err := scanTask(r.pool.QueryRow(ctx, query, id, status, at))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Task{}, fmt.Errorf("set task status: %w", err)
	}
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return Task{}, getErr
	}
	return Task{}, apperr.Conflict("task is no longer pending")
}
