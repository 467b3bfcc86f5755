package service

import (
	"context"
	"sync"
	"time"

	"consultancy_backend/internal/automation/evaluator"
	"consultancy_backend/internal/automation/repository"
	"consultancy_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeRules struct {
	mu       sync.Mutex
	rules    map[uuid.UUID]repository.Rule
	order    []uuid.UUID
	executed []uuid.UUID
}

func newFakeRules(rules ...repository.Rule) *fakeRules {
	f := &fakeRules{rules: make(map[uuid.UUID]repository.Rule)}
	for _, r := range rules {
		f.rules[r.ID] = r
		f.order = append(f.order, r.ID)
	}
	return f
}

func (f *fakeRules) CreateRule(_ context.Context, rule repository.Rule) (repository.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[rule.ID] = rule
	f.order = append(f.order, rule.ID)
	return rule, nil
}

func (f *fakeRules) GetRule(_ context.Context, id uuid.UUID) (repository.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rules[id]
	if !ok {
		return repository.Rule{}, apperr.NotFound("automation rule not found")
	}
	return r, nil
}

func (f *fakeRules) ListRules(_ context.Context, activeOnly bool) ([]repository.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Rule
	for _, id := range f.order {
		r := f.rules[id]
		if activeOnly && !r.IsActive {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRules) CountRules(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rules), nil
}

func (f *fakeRules) UpdateRule(_ context.Context, rule repository.Rule) (repository.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rules[rule.ID]; !ok {
		return repository.Rule{}, apperr.NotFound("automation rule not found")
	}
	f.rules[rule.ID] = rule
	return rule, nil
}

func (f *fakeRules) MarkExecuted(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.rules[id]
	r.ExecutionCount++
	r.LastRun = &at
	f.rules[id] = r
	f.executed = append(f.executed, id)
	return nil
}

type fakeRuns struct {
	mu   sync.Mutex
	runs map[uuid.UUID]repository.Run
}

func newFakeRuns() *fakeRuns {
	return &fakeRuns{runs: make(map[uuid.UUID]repository.Run)}
}

func (f *fakeRuns) CreateRun(_ context.Context, run repository.Run) (repository.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[run.ID] = run
	return run, nil
}

func (f *fakeRuns) FinishRun(ctx context.Context, run repository.Run) (repository.Run, error) {
	if err := ctx.Err(); err != nil {
		return repository.Run{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[run.ID] = run
	return run, nil
}

func (f *fakeRuns) GetRun(_ context.Context, id uuid.UUID) (repository.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.runs[id]
	if !ok {
		return repository.Run{}, apperr.NotFound("automation run not found")
	}
	return r, nil
}

func (f *fakeRuns) ListRuns(context.Context, int) ([]repository.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.Run, 0, len(f.runs))
	for _, r := range f.runs {
		out = append(out, r)
	}
	return out, nil
}

type fakeSnapshots struct {
	snap   evaluator.Snapshot
	err    error
	onLoad func(context.Context)
}

// Load returns a fresh copy of the pending keys so one run cannot leak
// state into the next.
func (f *fakeSnapshots) Load(ctx context.Context) (evaluator.Snapshot, error) {
	if f.onLoad != nil {
		f.onLoad(ctx)
	}
	if f.err != nil {
		return evaluator.Snapshot{}, f.err
	}
	snap := f.snap
	snap.PendingKeys = make(map[string]struct{}, len(f.snap.PendingKeys))
	for k := range f.snap.PendingKeys {
		snap.PendingKeys[k] = struct{}{}
	}
	return snap, nil
}

type fakeTasks struct {
	mu      sync.Mutex
	pending map[string]struct{}
	created []NewTask
	err     error
}

func newFakeTasks() *fakeTasks {
	return &fakeTasks{pending: make(map[string]struct{})}
}

func (f *fakeTasks) CreateTask(_ context.Context, task NewTask) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.pending[task.IdempotencyKey]; ok {
		return false, nil
	}
	f.pending[task.IdempotencyKey] = struct{}{}
	f.created = append(f.created, task)
	return true, nil
}

type fakeMailer struct {
	mu       sync.Mutex
	followUp []string
	notices  []uuid.UUID
}

func (f *fakeMailer) SendFollowUpEmail(_ context.Context, to, _, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followUp = append(f.followUp, to)
	return nil
}

func (f *fakeMailer) SendCounselorNotice(_ context.Context, counselorID uuid.UUID, _ string, _ NewTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, counselorID)
	return nil
}

type templateEnricher struct{}

func (templateEnricher) Draft(_ context.Context, m evaluator.Match) (Draft, error) {
	return TemplateDraft(m), nil
}
