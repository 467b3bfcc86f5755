package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"consultancy_backend/internal/automation/evaluator"
	"consultancy_backend/internal/automation/repository"
	"consultancy_backend/internal/events"
	"consultancy_backend/platform/logger"
	"consultancy_backend/platform/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"

	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RunnerDeps wires the runner's collaborators.
type RunnerDeps struct {
	Rules     RuleStore
	Runs      RunStore
	Snapshots SnapshotLoader
	Tasks     TaskCreator
	Mailer    Mailer
	Enricher  Enricher
	Lock      *RunLock
	EventBus  events.Bus
	Log       *logger.Logger
	// Pacing is the minimum gap between per-entity side effects. Zero
	// disables pacing.
	Pacing time.Duration
}

// Runner executes automation runs. Evaluation is delegated to the pure
// evaluator; the runner owns I/O, pacing and the run-lock.
type Runner struct {
	deps    RunnerDeps
	pacer   *rate.Limiter
	baseCtx context.Context
	wg      sync.WaitGroup
	now     func() time.Time
}

func NewRunner(deps RunnerDeps) *Runner {
	r := &Runner{deps: deps, baseCtx: context.Background(), now: time.Now}
	if deps.Pacing > 0 {
		r.pacer = rate.NewLimiter(rate.Every(deps.Pacing), 1)
	}
	return r
}

// WithBaseContext sets the context background runs derive from, so process
// shutdown stops them at the next entity boundary.
func (r *Runner) WithBaseContext(ctx context.Context) *Runner {
	r.baseCtx = ctx
	return r
}

// Start begins a run in the background and returns its record in the
// running state. ErrAlreadyRunning means the run-lock is held.
func (r *Runner) Start(ctx context.Context, trigger string, ruleID *uuid.UUID) (repository.Run, error) {
	release, err := r.acquire(ctx, trigger)
	if err != nil {
		return repository.Run{}, err
	}

	run, rules, err := r.begin(ctx, trigger, ruleID)
	if err != nil {
		release(ctx)
		return repository.Run{}, err
	}

	lost := r.deps.Lock.Lost()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer release(context.WithoutCancel(r.baseCtx))
		runCtx, stop := r.watchLease(r.baseCtx, lost)
		defer stop()
		r.execute(runCtx, run, rules)
	}()
	return run, nil
}

// RunNow executes a run synchronously and returns the finished record.
func (r *Runner) RunNow(ctx context.Context, trigger string, ruleID *uuid.UUID) (repository.Run, error) {
	release, err := r.acquire(ctx, trigger)
	if err != nil {
		return repository.Run{}, err
	}
	defer release(context.WithoutCancel(ctx))

	run, rules, err := r.begin(ctx, trigger, ruleID)
	if err != nil {
		return repository.Run{}, err
	}
	runCtx, stop := r.watchLease(ctx, r.deps.Lock.Lost())
	defer stop()
	return r.execute(runCtx, run, rules), nil
}

// watchLease cancels ctx when the shared lease is lost so the run stops at
// the next entity boundary instead of overlapping the new holder.
func (r *Runner) watchLease(ctx context.Context, lost <-chan struct{}) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(ctx)
	if lost == nil {
		return ctx, func() { cancel(nil) }
	}
	go func() {
		select {
		case <-lost:
			r.deps.Log.Error("automation run-lock lease lost; stopping run")
			cancel(ErrLeaseLost)
		case <-ctx.Done():
		}
	}()
	return ctx, func() { cancel(nil) }
}

// Wait blocks until background runs have finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) acquire(ctx context.Context, trigger string) (func(context.Context), error) {
	release, err := r.deps.Lock.Acquire(ctx)
	if err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			metrics.AutomationRunsRejected.WithLabelValues(trigger).Inc()
		}
		return nil, err
	}
	return release, nil
}

// begin resolves the rules and stores the run record.
func (r *Runner) begin(ctx context.Context, trigger string, ruleID *uuid.UUID) (repository.Run, []repository.Rule, error) {
	var rules []repository.Rule
	if ruleID != nil {
		rule, err := r.deps.Rules.GetRule(ctx, *ruleID)
		if err != nil {
			return repository.Run{}, nil, err
		}
		rules = []repository.Rule{rule}
	} else {
		active, err := r.deps.Rules.ListRules(ctx, true)
		if err != nil {
			return repository.Run{}, nil, err
		}
		rules = active
	}

	run, err := r.deps.Runs.CreateRun(ctx, repository.Run{
		ID:        uuid.New(),
		RuleID:    ruleID,
		Trigger:   trigger,
		Status:    RunStatusRunning,
		StartedAt: r.now(),
	})
	if err != nil {
		return repository.Run{}, nil, err
	}
	return run, rules, nil
}

func (r *Runner) execute(ctx context.Context, run repository.Run, rules []repository.Rule) repository.Run {
	ctx = context.WithValue(ctx, logger.RunIDKey, run.ID.String())
	log := r.deps.Log.WithContext(ctx)
	run.Errors = []string{}

	snap, err := r.deps.Snapshots.Load(ctx)
	if err != nil {
		run.Errors = append(run.Errors, "load snapshot: "+err.Error())
		return r.finish(ctx, run, RunStatusFailed)
	}
	if snap.PendingKeys == nil {
		snap.PendingKeys = make(map[string]struct{})
	}

	// Trigger types run one after another, never interleaved.
	for _, rule := range rules {
		created, errs, err := r.runRule(ctx, rule, &snap)
		run.TasksCreated += created
		run.Errors = append(run.Errors, errs...)
		if err != nil {
			if cause := context.Cause(ctx); cause != nil {
				err = cause
			}
			run.Errors = append(run.Errors, fmt.Sprintf("rule %s interrupted: %v", rule.Name, err))
			return r.finish(ctx, run, RunStatusFailed)
		}

		if err := r.deps.Rules.MarkExecuted(ctx, rule.ID, r.now()); err != nil {
			log.Warn("failed to record rule execution", "ruleId", rule.ID, "error", err)
			run.Errors = append(run.Errors, fmt.Sprintf("rule %s: record execution: %v", rule.Name, err))
		}
	}

	return r.finish(ctx, run, RunStatusCompleted)
}

// runRule scans every match of rule. Per-entity failures are collected;
// only context cancellation aborts the scan.
func (r *Runner) runRule(ctx context.Context, rule repository.Rule, snap *evaluator.Snapshot) (created int, errs []string, err error) {
	matches := evaluator.Evaluate(rule.EvaluatorRule(), *snap, r.now())
	stages := evaluator.Stages(rule.Actions)

	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return created, errs, err
		}
		if m.Pending {
			metrics.AutomationMatchesSkipped.WithLabelValues(rule.TriggerType).Inc()
			continue
		}
		if r.pacer != nil {
			if err := r.pacer.Wait(ctx); err != nil {
				return created, errs, err
			}
		}

		n, matchErrs := r.act(ctx, rule, m, stages)
		created += n
		errs = append(errs, matchErrs...)
		snap.PendingKeys[m.IdempotencyKey] = struct{}{}
	}
	return created, errs, nil
}

type actionOutcome struct {
	created   bool
	duplicate bool
	err       error
}

// act enriches a match and runs the rule's action stages for it. A stage
// that finds the task already pending, or fails to create it, ends the
// sequence so no mail goes out about a task that does not exist.
func (r *Runner) act(ctx context.Context, rule repository.Rule, m evaluator.Match, stages [][]evaluator.Action) (created int, errs []string) {
	draft, err := r.deps.Enricher.Draft(ctx, m)
	if err != nil {
		r.deps.Log.WithContext(ctx).Warn("follow-up draft fell back to template", "studentId", m.Student.ID, "ruleId", rule.ID, "error", err)
		errs = append(errs, err.Error())
	}

	task := NewTask{
		Title:          m.Title,
		Description:    taskDescription(m, draft),
		StudentID:      m.Student.ID,
		AssignedTo:     m.Student.CounselorID,
		Priority:       m.Priority,
		DueDate:        m.DueDate,
		TriggerType:    m.TriggerType,
		RuleID:         rule.ID,
		IdempotencyKey: m.IdempotencyKey,
	}

	for _, stage := range stages {
		outcomes := make([]actionOutcome, len(stage))
		var g errgroup.Group
		for i, action := range stage {
			g.Go(func() error {
				outcomes[i] = r.runAction(ctx, action, m, draft, task)
				return outcomes[i].err
			})
		}
		_ = g.Wait()

		stop := false
		for i, o := range outcomes {
			if o.created {
				created++
				metrics.AutomationTasksCreated.WithLabelValues(m.TriggerType).Inc()
			}
			if o.duplicate {
				metrics.AutomationMatchesSkipped.WithLabelValues(m.TriggerType).Inc()
				stop = true
			}
			if o.err != nil {
				errs = append(errs, fmt.Sprintf("%s for student %s: %v", stage[i].ActionType, m.Student.ID, o.err))
				if stage[i].ActionType == evaluator.ActionCreateTask {
					stop = true
				}
			}
		}
		if stop {
			break
		}
	}
	return created, errs
}

func (r *Runner) runAction(ctx context.Context, action evaluator.Action, m evaluator.Match, draft Draft, task NewTask) actionOutcome {
	switch action.ActionType {
	case evaluator.ActionCreateTask:
		created, err := r.deps.Tasks.CreateTask(ctx, task)
		if err != nil {
			return actionOutcome{err: err}
		}
		return actionOutcome{created: created, duplicate: !created}
	case evaluator.ActionSendEmail:
		if m.Student.Email == "" {
			return actionOutcome{}
		}
		return actionOutcome{err: r.deps.Mailer.SendFollowUpEmail(ctx, m.Student.Email, m.Student.Name, draft.Subject, draft.Body)}
	case evaluator.ActionNotifyCounselor:
		if m.Student.CounselorID == nil {
			return actionOutcome{}
		}
		return actionOutcome{err: r.deps.Mailer.SendCounselorNotice(ctx, *m.Student.CounselorID, m.Student.Name, task)}
	default:
		return actionOutcome{err: fmt.Errorf("unknown action type %q", action.ActionType)}
	}
}

func taskDescription(m evaluator.Match, draft Draft) string {
	if m.TriggerType != evaluator.TriggerCommunicationGap || draft.Body == "" {
		return m.Description
	}
	out := m.Description + "\n\nSuggested email"
	if draft.Subject != "" {
		out += " (" + draft.Subject + ")"
	}
	return out + ":\n\n" + draft.Body
}

// finish stores the terminal state. It runs even when ctx was cancelled.
func (r *Runner) finish(ctx context.Context, run repository.Run, status string) repository.Run {
	storeCtx := context.WithoutCancel(ctx)
	finishedAt := r.now()
	run.Status = status
	run.FinishedAt = &finishedAt

	stored, err := r.deps.Runs.FinishRun(storeCtx, run)
	if err != nil {
		r.deps.Log.Error("failed to store automation run result", "runId", run.ID, "error", err)
		stored = run
	}

	elapsed := finishedAt.Sub(run.StartedAt)
	metrics.AutomationRuns.WithLabelValues(run.Trigger, status).Inc()
	metrics.AutomationRunDuration.WithLabelValues(run.Trigger).Observe(elapsed.Seconds())
	r.deps.Log.AutomationRun(run.ID.String(), run.Trigger, status, run.TasksCreated, len(run.Errors), elapsed)

	r.deps.EventBus.Publish(storeCtx, events.AutomationRunFinished{
		BaseEvent:    events.NewBaseEvent(),
		RunID:        run.ID,
		RuleID:       run.RuleID,
		Trigger:      run.Trigger,
		Status:       status,
		TasksCreated: run.TasksCreated,
		ErrorCount:   len(run.Errors),
	})
	return stored
}
