package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"consultancy_backend/internal/automation/evaluator"
	"consultancy_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	ruleNotFoundMsg = "automation rule not found"
	runNotFoundMsg  = "automation run not found"
)

// Repository provides database operations for automation rules and runs.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new automation repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Rule struct {
	ID             uuid.UUID
	Name           string
	Description    string
	TriggerType    string
	Conditions     evaluator.Conditions
	Actions        []evaluator.Action
	IsActive       bool
	ExecutionCount int
	LastRun        *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EvaluatorRule is the view of the rule the evaluator works with.
func (r Rule) EvaluatorRule() evaluator.Rule {
	return evaluator.Rule{ID: r.ID, Name: r.Name, TriggerType: r.TriggerType, Conditions: r.Conditions, Actions: r.Actions}
}

type Run struct {
	ID           uuid.UUID
	RuleID       *uuid.UUID
	Trigger      string
	Status       string
	TasksCreated int
	Errors       []string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

const ruleColumns = `id, name, description, trigger_type, trigger_conditions, actions, is_active, execution_count, last_run, created_at, updated_at`

func scanRule(row pgx.Row) (Rule, error) {
	var r Rule
	var conditionsJSON, actionsJSON []byte
	if err := row.Scan(&r.ID, &r.Name, &r.Description, &r.TriggerType, &conditionsJSON, &actionsJSON,
		&r.IsActive, &r.ExecutionCount, &r.LastRun, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return Rule{}, err
	}
	if len(conditionsJSON) > 0 {
		_ = json.Unmarshal(conditionsJSON, &r.Conditions)
	}
	if len(actionsJSON) > 0 {
		_ = json.Unmarshal(actionsJSON, &r.Actions)
	}
	if r.Actions == nil {
		r.Actions = []evaluator.Action{}
	}
	return r, nil
}

func encodeRule(r Rule) (conditions, actions []byte, err error) {
	conditions, err = json.Marshal(r.Conditions)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal trigger conditions: %w", err)
	}
	list := r.Actions
	if list == nil {
		list = []evaluator.Action{}
	}
	actions, err = json.Marshal(list)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal actions: %w", err)
	}
	return conditions, actions, nil
}

func (r *Repository) CreateRule(ctx context.Context, rule Rule) (Rule, error) {
	conditions, actions, err := encodeRule(rule)
	if err != nil {
		return Rule{}, err
	}

	query := `
		INSERT INTO automation_rules (id, name, description, trigger_type, trigger_conditions, actions, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + ruleColumns

	created, err := scanRule(r.pool.QueryRow(ctx, query,
		rule.ID, rule.Name, rule.Description, rule.TriggerType, conditions, actions, rule.IsActive, rule.CreatedAt, rule.UpdatedAt))
	if err != nil {
		return Rule{}, fmt.Errorf("create automation rule: %w", err)
	}
	return created, nil
}

func (r *Repository) GetRule(ctx context.Context, id uuid.UUID) (Rule, error) {
	rule, err := scanRule(r.pool.QueryRow(ctx, `SELECT `+ruleColumns+` FROM automation_rules WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rule{}, apperr.NotFound(ruleNotFoundMsg)
		}
		return Rule{}, fmt.Errorf("get automation rule: %w", err)
	}
	return rule, nil
}

// ListRules returns rules in creation order; activeOnly drops disabled ones.
func (r *Repository) ListRules(ctx context.Context, activeOnly bool) ([]Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM automation_rules WHERE ($1 = false OR is_active) ORDER BY created_at, name`

	rows, err := r.pool.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list automation rules: %w", err)
	}
	defer rows.Close()

	items := make([]Rule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan automation rule: %w", err)
		}
		items = append(items, rule)
	}
	return items, rows.Err()
}

func (r *Repository) CountRules(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM automation_rules`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count automation rules: %w", err)
	}
	return n, nil
}

// UpdateRule replaces the editable fields of a rule.
func (r *Repository) UpdateRule(ctx context.Context, rule Rule) (Rule, error) {
	conditions, actions, err := encodeRule(rule)
	if err != nil {
		return Rule{}, err
	}

	query := `
		UPDATE automation_rules
		SET name = $2, description = $3, trigger_type = $4, trigger_conditions = $5, actions = $6,
		    is_active = $7, updated_at = $8
		WHERE id = $1
		RETURNING ` + ruleColumns

	updated, err := scanRule(r.pool.QueryRow(ctx, query,
		rule.ID, rule.Name, rule.Description, rule.TriggerType, conditions, actions, rule.IsActive, rule.UpdatedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rule{}, apperr.NotFound(ruleNotFoundMsg)
		}
		return Rule{}, fmt.Errorf("update automation rule: %w", err)
	}
	return updated, nil
}

// MarkExecuted records a completed scan of the rule.
func (r *Repository) MarkExecuted(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE automation_rules SET execution_count = execution_count + 1, last_run = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("mark automation rule executed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(ruleNotFoundMsg)
	}
	return nil
}

const runColumns = `id, rule_id, trigger, status, tasks_created, errors, started_at, finished_at`

func scanRun(row pgx.Row) (Run, error) {
	var run Run
	var errorsJSON []byte
	if err := row.Scan(&run.ID, &run.RuleID, &run.Trigger, &run.Status, &run.TasksCreated, &errorsJSON,
		&run.StartedAt, &run.FinishedAt); err != nil {
		return Run{}, err
	}
	if len(errorsJSON) > 0 {
		_ = json.Unmarshal(errorsJSON, &run.Errors)
	}
	if run.Errors == nil {
		run.Errors = []string{}
	}
	return run, nil
}

func (r *Repository) CreateRun(ctx context.Context, run Run) (Run, error) {
	query := `
		INSERT INTO automation_runs (id, rule_id, trigger, status, started_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + runColumns

	created, err := scanRun(r.pool.QueryRow(ctx, query, run.ID, run.RuleID, run.Trigger, run.Status, run.StartedAt))
	if err != nil {
		return Run{}, fmt.Errorf("create automation run: %w", err)
	}
	return created, nil
}

// FinishRun stores the terminal state of a run.
func (r *Repository) FinishRun(ctx context.Context, run Run) (Run, error) {
	list := run.Errors
	if list == nil {
		list = []string{}
	}
	errorsJSON, err := json.Marshal(list)
	if err != nil {
		return Run{}, fmt.Errorf("marshal run errors: %w", err)
	}

	query := `
		UPDATE automation_runs
		SET status = $2, tasks_created = $3, errors = $4, finished_at = $5
		WHERE id = $1
		RETURNING ` + runColumns

	finished, err := scanRun(r.pool.QueryRow(ctx, query, run.ID, run.Status, run.TasksCreated, errorsJSON, run.FinishedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Run{}, apperr.NotFound(runNotFoundMsg)
		}
		return Run{}, fmt.Errorf("finish automation run: %w", err)
	}
	return finished, nil
}

func (r *Repository) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	run, err := scanRun(r.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM automation_runs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Run{}, apperr.NotFound(runNotFoundMsg)
		}
		return Run{}, fmt.Errorf("get automation run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+runColumns+` FROM automation_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list automation runs: %w", err)
	}
	defer rows.Close()

	items := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan automation run: %w", err)
		}
		items = append(items, run)
	}
	return items, rows.Err()
}

// DeleteFinishedRunsBefore removes terminal runs that started before cutoff.
func (r *Repository) DeleteFinishedRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM automation_runs WHERE status <> 'running' AND started_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete automation runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// FailStaleRuns marks runs still running since before cutoff as failed. Such
// runs belong to a process that died mid-run.
func (r *Repository) FailStaleRuns(ctx context.Context, cutoff, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE automation_runs
		SET status = 'failed', finished_at = $2, errors = errors || '["run abandoned"]'::jsonb
		WHERE status = 'running' AND started_at < $1`, cutoff, now)
	if err != nil {
		return 0, fmt.Errorf("fail stale automation runs: %w", err)
	}
	return tag.RowsAffected(), nil
}
