package service

import (
	"context"
	"time"

	"consultancy_backend/internal/automation/evaluator"
	"consultancy_backend/internal/automation/repository"

	"github.com/google/uuid"
)

// RuleStore persists rule definitions.
type RuleStore interface {
	CreateRule(ctx context.Context, rule repository.Rule) (repository.Rule, error)
	GetRule(ctx context.Context, id uuid.UUID) (repository.Rule, error)
	ListRules(ctx context.Context, activeOnly bool) ([]repository.Rule, error)
	CountRules(ctx context.Context) (int, error)
	UpdateRule(ctx context.Context, rule repository.Rule) (repository.Rule, error)
	MarkExecuted(ctx context.Context, id uuid.UUID, at time.Time) error
}

// RunStore persists run records.
type RunStore interface {
	CreateRun(ctx context.Context, run repository.Run) (repository.Run, error)
	FinishRun(ctx context.Context, run repository.Run) (repository.Run, error)
	GetRun(ctx context.Context, id uuid.UUID) (repository.Run, error)
	ListRuns(ctx context.Context, limit int) ([]repository.Run, error)
}

// SnapshotLoader bulk-loads everything a run evaluates.
type SnapshotLoader interface {
	Load(ctx context.Context) (evaluator.Snapshot, error)
}

// NewTask is the task an automation match asks for.
type NewTask struct {
	Title          string
	Description    string
	StudentID      uuid.UUID
	AssignedTo     *uuid.UUID
	Priority       string
	DueDate        time.Time
	TriggerType    string
	RuleID         uuid.UUID
	IdempotencyKey string
}

// TaskCreator creates tasks. created is false when an equivalent pending
// task already exists.
type TaskCreator interface {
	CreateTask(ctx context.Context, task NewTask) (created bool, err error)
}

// Mailer delivers automation email.
type Mailer interface {
	SendFollowUpEmail(ctx context.Context, toEmail, studentName, subject, body string) error
	SendCounselorNotice(ctx context.Context, counselorID uuid.UUID, studentName string, task NewTask) error
}

// Draft is enriched content for a match.
type Draft struct {
	Subject string
	Body    string
	// Fallback is true when the template was used instead of a model draft.
	Fallback bool
}

// Enricher drafts follow-up content for a match.
type Enricher interface {
	Draft(ctx context.Context, m evaluator.Match) (Draft, error)
}
