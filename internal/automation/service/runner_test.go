package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"consultancy_backend/internal/automation/evaluator"
	"consultancy_backend/internal/automation/repository"
	"consultancy_backend/internal/events"
	"consultancy_backend/platform/logger"
	"consultancy_backend/platform/redislock"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var testNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type runnerFixture struct {
	runner    *Runner
	rules     *fakeRules
	runs      *fakeRuns
	snapshots *fakeSnapshots
	tasks     *fakeTasks
	mailer    *fakeMailer
	bus       *events.InMemoryBus
}

func newRunnerFixture(t *testing.T, snap evaluator.Snapshot, rules ...repository.Rule) *runnerFixture {
	t.Helper()
	f := &runnerFixture{
		rules:     newFakeRules(rules...),
		runs:      newFakeRuns(),
		snapshots: &fakeSnapshots{snap: snap},
		tasks:     newFakeTasks(),
		mailer:    &fakeMailer{},
		bus:       events.NewInMemoryBus(logger.Discard()),
	}
	f.runner = NewRunner(RunnerDeps{
		Rules:     f.rules,
		Runs:      f.runs,
		Snapshots: f.snapshots,
		Tasks:     f.tasks,
		Mailer:    f.mailer,
		Enricher:  templateEnricher{},
		Lock:      NewRunLock(nil),
		EventBus:  f.bus,
		Log:       logger.Discard(),
	})
	f.runner.now = func() time.Time { return testNow }
	return f
}

func gapRule(actions ...evaluator.Action) repository.Rule {
	if len(actions) == 0 {
		actions = []evaluator.Action{{ActionType: evaluator.ActionCreateTask, ExecutionOrder: 1}}
	}
	return repository.Rule{
		ID:          uuid.New(),
		Name:        "gap",
		TriggerType: evaluator.TriggerCommunicationGap,
		Conditions:  evaluator.Conditions{DaysThreshold: 5},
		Actions:     actions,
		IsActive:    true,
	}
}

func silentStudents(n int) evaluator.Snapshot {
	counselor := uuid.New()
	snap := evaluator.Snapshot{PendingKeys: map[string]struct{}{}}
	for i := 0; i < n; i++ {
		snap.Students = append(snap.Students, evaluator.Student{
			ID:          uuid.New(),
			Name:        "Student",
			Email:       "student@example.com",
			Status:      "contacted",
			CounselorID: &counselor,
		})
	}
	return snap
}

func TestRunNowCreatesOneTaskPerMatchAndSkipsPending(t *testing.T) {
	snap := silentStudents(3)
	rule := gapRule()
	pendingKey := evaluator.IdempotencyKey(snap.Students[0].ID, evaluator.TriggerCommunicationGap, "none")
	snap.PendingKeys[pendingKey] = struct{}{}

	f := newRunnerFixture(t, snap, rule)

	run, err := f.runner.RunNow(context.Background(), TriggerManual, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.Status != RunStatusCompleted {
		t.Fatalf("expected completed, got %s (%v)", run.Status, run.Errors)
	}
	if run.TasksCreated != 2 || len(f.tasks.created) != 2 {
		t.Fatalf("expected 2 tasks, got %d (stored %d)", run.TasksCreated, len(f.tasks.created))
	}
	for _, task := range f.tasks.created {
		if task.StudentID == snap.Students[0].ID {
			t.Fatal("pending match must not produce a task")
		}
		if task.Priority != evaluator.PriorityHigh || task.RuleID != rule.ID {
			t.Fatalf("unexpected task %+v", task)
		}
	}
	if len(f.rules.executed) != 1 {
		t.Fatalf("expected rule marked executed once, got %d", len(f.rules.executed))
	}
	stored, _ := f.runs.GetRun(context.Background(), run.ID)
	if stored.Status != RunStatusCompleted || stored.FinishedAt == nil {
		t.Fatalf("expected finished run stored, got %+v", stored)
	}
}

func TestRunNowTwiceCreatesNothingTheSecondTime(t *testing.T) {
	f := newRunnerFixture(t, silentStudents(2), gapRule())

	first, err := f.runner.RunNow(context.Background(), TriggerScheduled, nil)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := f.runner.RunNow(context.Background(), TriggerScheduled, nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if first.TasksCreated != 2 {
		t.Fatalf("expected 2 tasks on first run, got %d", first.TasksCreated)
	}
	if second.TasksCreated != 0 {
		t.Fatalf("expected no tasks on second run, got %d", second.TasksCreated)
	}
	if len(second.Errors) != 0 {
		t.Fatalf("duplicates are not errors, got %v", second.Errors)
	}
}

func TestParallelStageRunsEveryAction(t *testing.T) {
	rule := gapRule(
		evaluator.Action{ActionType: evaluator.ActionCreateTask, ExecutionOrder: 1},
		evaluator.Action{ActionType: evaluator.ActionSendEmail, ExecutionOrder: 2, Parallel: true},
		evaluator.Action{ActionType: evaluator.ActionNotifyCounselor, ExecutionOrder: 3, Parallel: true},
	)
	f := newRunnerFixture(t, silentStudents(1), rule)

	if _, err := f.runner.RunNow(context.Background(), TriggerManual, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(f.mailer.followUp) != 1 || len(f.mailer.notices) != 1 {
		t.Fatalf("expected one email and one notice, got %d and %d", len(f.mailer.followUp), len(f.mailer.notices))
	}
}

func TestDuplicateTaskStopsLaterStages(t *testing.T) {
	rule := gapRule(
		evaluator.Action{ActionType: evaluator.ActionCreateTask, ExecutionOrder: 1},
		evaluator.Action{ActionType: evaluator.ActionSendEmail, ExecutionOrder: 2},
	)
	snap := silentStudents(1)
	f := newRunnerFixture(t, snap, rule)
	// Created by someone else after the snapshot was taken.
	f.tasks.pending[evaluator.IdempotencyKey(snap.Students[0].ID, evaluator.TriggerCommunicationGap, "none")] = struct{}{}

	run, err := f.runner.RunNow(context.Background(), TriggerManual, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.TasksCreated != 0 {
		t.Fatalf("expected no tasks, got %d", run.TasksCreated)
	}
	if len(f.mailer.followUp) != 0 {
		t.Fatal("expected the email stage to be skipped")
	}
}

func TestFailedTaskCreationStopsLaterStages(t *testing.T) {
	rule := gapRule(
		evaluator.Action{ActionType: evaluator.ActionCreateTask, ExecutionOrder: 1},
		evaluator.Action{ActionType: evaluator.ActionSendEmail, ExecutionOrder: 2, Parallel: true},
		evaluator.Action{ActionType: evaluator.ActionNotifyCounselor, ExecutionOrder: 3, Parallel: true},
	)
	f := newRunnerFixture(t, silentStudents(1), rule)
	f.tasks.err = errors.New("db down")

	run, err := f.runner.RunNow(context.Background(), TriggerManual, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.TasksCreated != 0 || len(run.Errors) != 1 {
		t.Fatalf("expected one recorded error and no tasks, got %d tasks and %v", run.TasksCreated, run.Errors)
	}
	if len(f.mailer.followUp) != 0 || len(f.mailer.notices) != 0 {
		t.Fatalf("expected no mail about a missing task, got %d emails and %d notices", len(f.mailer.followUp), len(f.mailer.notices))
	}
}

func TestSnapshotFailureFailsRun(t *testing.T) {
	f := newRunnerFixture(t, evaluator.Snapshot{}, gapRule())
	f.snapshots.err = errors.New("db down")

	run, err := f.runner.RunNow(context.Background(), TriggerManual, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.Status != RunStatusFailed || len(run.Errors) != 1 {
		t.Fatalf("expected failed run with one error, got %+v", run)
	}
	if len(f.rules.executed) != 0 {
		t.Fatal("rules must not be marked executed when nothing was scanned")
	}
}

func TestCancelledRunIsStoredAsFailed(t *testing.T) {
	f := newRunnerFixture(t, silentStudents(2), gapRule())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := f.runner.RunNow(ctx, TriggerScheduled, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.Status != RunStatusFailed {
		t.Fatalf("expected failed, got %s", run.Status)
	}
	if len(f.rules.executed) != 0 {
		t.Fatal("an interrupted rule must not be marked executed")
	}
	stored, _ := f.runs.GetRun(context.Background(), run.ID)
	if stored.Status != RunStatusFailed {
		t.Fatalf("expected terminal state stored despite cancellation, got %s", stored.Status)
	}
}

func TestRunLockRejectsOverlap(t *testing.T) {
	f := newRunnerFixture(t, silentStudents(1), gapRule())

	release, err := f.runner.deps.Lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := f.runner.RunNow(context.Background(), TriggerScheduled, nil); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	release(context.Background())

	if _, err := f.runner.RunNow(context.Background(), TriggerScheduled, nil); err != nil {
		t.Fatalf("expected run after release, got %v", err)
	}
}

func TestRunLockIsSharedAcrossProcesses(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	api := NewRunLock(redislock.New(client, time.Minute))
	scheduler := NewRunLock(redislock.New(client, time.Minute))

	release, err := api.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := scheduler.Acquire(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning from second process, got %v", err)
	}
	if scheduler.Running() {
		t.Fatal("rejected lock must not report running")
	}

	release(context.Background())
	release2, err := scheduler.Acquire(context.Background())
	if err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
	release2(context.Background())
}

func TestLostLeaseStopsRun(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newRunnerFixture(t, silentStudents(2), gapRule())
	f.runner.deps.Lock = NewRunLock(redislock.New(client, 300*time.Millisecond))
	f.snapshots.onLoad = func(ctx context.Context) {
		// Another process takes the key mid-run.
		if err := mr.Set(runLockKey, "other-process"); err != nil {
			t.Errorf("set: %v", err)
		}
		select {
		case <-ctx.Done():
		case <-time.After(2 * time.Second):
			t.Error("expected the run context to be cancelled")
		}
	}

	run, err := f.runner.RunNow(context.Background(), TriggerScheduled, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.Status != RunStatusFailed || run.TasksCreated != 0 {
		t.Fatalf("expected a failed run with no tasks, got %s with %d tasks", run.Status, run.TasksCreated)
	}
	if len(run.Errors) != 1 || !strings.Contains(run.Errors[0], ErrLeaseLost.Error()) {
		t.Fatalf("expected a lease-lost error, got %v", run.Errors)
	}
	if got, _ := mr.Get(runLockKey); got != "other-process" {
		t.Fatalf("the new holder's key must survive release, got %q", got)
	}
}

func TestRunFinishedEventPublished(t *testing.T) {
	f := newRunnerFixture(t, silentStudents(1), gapRule())

	var got events.AutomationRunFinished
	f.bus.Subscribe(events.AutomationRunFinished{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		got = e.(events.AutomationRunFinished)
		return nil
	}))

	run, err := f.runner.RunNow(context.Background(), TriggerManual, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	f.bus.Wait()

	if got.RunID != run.ID || got.TasksCreated != 1 || got.Status != RunStatusCompleted {
		t.Fatalf("unexpected event %+v", got)
	}
}
