package scheduler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"consultancy_backend/internal/automation/repository"
	automation "consultancy_backend/internal/automation/service"
	"consultancy_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type stubRunner struct {
	err     error
	trigger string
	ruleID  *uuid.UUID
	calls   int
}

func (s *stubRunner) RunNow(_ context.Context, trigger string, ruleID *uuid.UUID) (repository.Run, error) {
	s.calls++
	s.trigger = trigger
	s.ruleID = ruleID
	if s.err != nil {
		return repository.Run{}, s.err
	}
	return repository.Run{ID: uuid.New(), Status: automation.RunStatusCompleted}, nil
}

func newTestWorker(r AutomationRunner) *Worker {
	return &Worker{runner: r, log: logger.Discard()}
}

func TestHandleAutomationRunDefaultsToScheduled(t *testing.T) {
	runner := &stubRunner{}
	task, err := NewAutomationRunTask(AutomationRunPayload{})
	if err != nil {
		t.Fatalf("task: %v", err)
	}

	if err := newTestWorker(runner).handleAutomationRun(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if runner.trigger != automation.TriggerScheduled || runner.ruleID != nil {
		t.Fatalf("unexpected call trigger=%q rule=%v", runner.trigger, runner.ruleID)
	}
}

func TestHandleAutomationRunSkipsWhenLocked(t *testing.T) {
	runner := &stubRunner{err: automation.ErrAlreadyRunning}
	task, _ := NewAutomationRunTask(AutomationRunPayload{Trigger: automation.TriggerScheduled})

	if err := newTestWorker(runner).handleAutomationRun(context.Background(), task); err != nil {
		t.Fatalf("expected a held lock to be a skip, got %v", err)
	}
}

func TestHandleAutomationRunRejectsBadRuleID(t *testing.T) {
	runner := &stubRunner{}
	bad := "not-a-uuid"
	task, _ := NewAutomationRunTask(AutomationRunPayload{RuleID: &bad})

	err := newTestWorker(runner).handleAutomationRun(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
	if runner.calls != 0 {
		t.Fatal("runner must not be called")
	}
}

type recordingEnqueuer struct {
	payloads []AutomationRunPayload
	unique   time.Duration
	err      error
}

func (r *recordingEnqueuer) EnqueueAutomationRun(_ context.Context, p AutomationRunPayload, uniqueFor time.Duration) error {
	r.payloads = append(r.payloads, p)
	r.unique = uniqueFor
	return r.err
}

func TestDispatcherQueuesScheduledRun(t *testing.T) {
	enq := &recordingEnqueuer{}
	d := NewAutomationDispatcher(enq, 10*time.Minute, logger.Discard())

	d.dispatch(context.Background())

	if len(enq.payloads) != 1 || enq.payloads[0].Trigger != automation.TriggerScheduled {
		t.Fatalf("unexpected payloads %+v", enq.payloads)
	}
	if enq.unique != 5*time.Minute {
		t.Fatalf("expected half-interval uniqueness, got %s", enq.unique)
	}

	enq.err = asynq.ErrDuplicateTask
	d.dispatch(context.Background())
}

type fakeHousekeeper struct {
	staleCutoff  time.Time
	deleteCutoff time.Time
	staleErr     error
}

func (f *fakeHousekeeper) DeleteFinishedRunsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.deleteCutoff = cutoff
	return 2, nil
}

func (f *fakeHousekeeper) FailStaleRuns(_ context.Context, cutoff, _ time.Time) (int64, error) {
	f.staleCutoff = cutoff
	if f.staleErr != nil {
		return 0, f.staleErr
	}
	return 1, nil
}

func TestRunCleanupCutoffs(t *testing.T) {
	repo := &fakeHousekeeper{}
	c := NewAutomationRunCleanup(repo, logger.Discard(), 0, 0)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.cleanup(context.Background())

	if !repo.staleCutoff.Equal(now.Add(-6 * time.Hour)) {
		t.Fatalf("unexpected stale cutoff %s", repo.staleCutoff)
	}
	if !repo.deleteCutoff.Equal(now.Add(-30 * 24 * time.Hour)) {
		t.Fatalf("unexpected retention cutoff %s", repo.deleteCutoff)
	}
}

func TestRunCleanupLogsDatabaseErrorAndStops(t *testing.T) {
	var buf bytes.Buffer
	repo := &fakeHousekeeper{staleErr: errors.New("connection reset")}
	c := NewAutomationRunCleanup(repo, logger.NewWithWriter("production", &buf), 0, 0)

	c.cleanup(context.Background())

	if !repo.deleteCutoff.IsZero() {
		t.Fatal("expected retention delete to be skipped after a failure")
	}
	out := buf.String()
	if !strings.Contains(out, `"msg":"database_error"`) || !strings.Contains(out, "fail stale automation runs") {
		t.Fatalf("expected a database_error entry, got %s", out)
	}
}
