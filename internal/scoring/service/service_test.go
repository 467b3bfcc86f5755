package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"consultancy_backend/internal/events"
	"consultancy_backend/internal/scoring/engine"
	"consultancy_backend/internal/scoring/repository"
	"consultancy_backend/internal/scoring/transport"
	"consultancy_backend/platform/apperr"
	"consultancy_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeScores struct {
	mu   sync.Mutex
	rows map[uuid.UUID]repository.LeadScore
}

func (f *fakeScores) Upsert(_ context.Context, s repository.LeadScore) (repository.LeadScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[s.StudentID] = s
	return s, nil
}

func (f *fakeScores) Get(_ context.Context, id uuid.UUID) (repository.LeadScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok {
		return repository.LeadScore{}, apperr.NotFound("lead score not found")
	}
	return s, nil
}

func (f *fakeScores) List(_ context.Context, tier string, _ int) ([]repository.LeadScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.LeadScore
	for _, s := range f.rows {
		if tier == "" || s.Tier == tier {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeSignals struct {
	inputs map[uuid.UUID]engine.Input
	order  []uuid.UUID
}

func (f *fakeSignals) Load(_ context.Context, id uuid.UUID) (engine.Input, error) {
	in, ok := f.inputs[id]
	if !ok {
		return engine.Input{}, apperr.NotFound("student not found")
	}
	return in, nil
}

func (f *fakeSignals) StudentIDs(context.Context) ([]uuid.UUID, error) {
	return f.order, nil
}

func hotLead() engine.Input {
	return engine.Input{
		Inquiry: &engine.Inquiry{CountryOfInterest: "UK", DegreeLevel: "masters", FieldOfStudy: "Law", Source: "referral"},
		Student: engine.Student{Email: "a@example.com", Phone: "+441212345678"},
		Engagements: []engine.Engagement{
			{}, {}, {},
		},
		Applications: []engine.Application{{Status: "draft"}},
	}
}

func newTestService(signals *fakeSignals) (*Service, *fakeScores) {
	store := &fakeScores{rows: map[uuid.UUID]repository.LeadScore{}}
	svc := New(store, signals, engine.Options{}, logger.Discard())
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
	return svc, store
}

func TestComputeDoesNotPersist(t *testing.T) {
	id := uuid.New()
	svc, store := newTestService(&fakeSignals{inputs: map[uuid.UUID]engine.Input{id: hotLead()}})

	resp, err := svc.Compute(context.Background(), id)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// 20 contact + 20 specificity + 15 engagement + 10 history + 15 referral
	if resp.Breakdown.Total != 80 || resp.Breakdown.Tier != engine.TierHot {
		t.Fatalf("unexpected breakdown %+v", resp.Breakdown)
	}
	if resp.Persisted {
		t.Fatal("expected on-the-fly result")
	}
	if len(store.rows) != 0 {
		t.Fatalf("expected nothing persisted, got %d rows", len(store.rows))
	}
}

func TestComputeAndPersistReplacesPreviousScore(t *testing.T) {
	id := uuid.New()
	signals := &fakeSignals{inputs: map[uuid.UUID]engine.Input{id: hotLead()}}
	svc, store := newTestService(signals)

	if _, err := svc.ComputeAndPersist(context.Background(), id); err != nil {
		t.Fatalf("persist: %v", err)
	}

	in := signals.inputs[id]
	in.Student.Adjustment = -60
	signals.inputs[id] = in

	resp, err := svc.ComputeAndPersist(context.Background(), id)
	if err != nil {
		t.Fatalf("persist: %v", err)
	}
	if !resp.Persisted {
		t.Fatal("expected persisted flag")
	}
	row := store.rows[id]
	if row.TotalScore != 20 || row.Tier != string(engine.TierLow) || row.AdjustmentPoints != -60 {
		t.Fatalf("expected replaced row, got %+v", row)
	}
	if row.Version != engine.Version {
		t.Fatalf("expected version %s, got %s", engine.Version, row.Version)
	}
}

func TestRecalculateAllCollectsErrors(t *testing.T) {
	good, missing, other := uuid.New(), uuid.New(), uuid.New()
	signals := &fakeSignals{
		inputs: map[uuid.UUID]engine.Input{good: hotLead(), other: {}},
		order:  []uuid.UUID{good, missing, other},
	}
	svc, store := newTestService(signals)

	resp, err := svc.RecalculateAll(context.Background())
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if resp.Scored != 2 || resp.Failed != 1 {
		t.Fatalf("expected 2 scored and 1 failed, got %+v", resp)
	}
	if len(resp.Errors) != 1 || resp.Errors[0].StudentID != missing {
		t.Fatalf("unexpected errors %+v", resp.Errors)
	}
	if resp.Tiers["hot"] != 1 || resp.Tiers["low"] != 1 {
		t.Fatalf("unexpected tier counts %+v", resp.Tiers)
	}
	if len(store.rows) != 2 {
		t.Fatalf("expected 2 persisted rows, got %d", len(store.rows))
	}
}

func TestRecalculateAllStopsOnCancel(t *testing.T) {
	id := uuid.New()
	svc, _ := newTestService(&fakeSignals{inputs: map[uuid.UUID]engine.Input{id: {}}, order: []uuid.UUID{id}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.RecalculateAll(ctx); err == nil {
		t.Fatal("expected context error")
	}
}

func TestAdjustmentEventRescores(t *testing.T) {
	id := uuid.New()
	svc, store := newTestService(&fakeSignals{inputs: map[uuid.UUID]engine.Input{id: hotLead()}})

	bus := events.NewInMemoryBus(logger.Discard())
	bus.Subscribe(events.LeadScoreAdjusted{}.EventName(), events.HandlerFunc(svc.HandleEvent))

	if err := bus.PublishSync(context.Background(), events.LeadScoreAdjusted{BaseEvent: events.NewBaseEvent(), StudentID: id, Points: 5}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, ok := store.rows[id]; !ok {
		t.Fatal("expected score persisted after adjustment event")
	}
}

func TestLeaderboardFiltersByTier(t *testing.T) {
	svc, store := newTestService(&fakeSignals{})
	store.rows[uuid.New()] = repository.LeadScore{Tier: "hot", TotalScore: 90}
	store.rows[uuid.New()] = repository.LeadScore{Tier: "cold", TotalScore: 30}

	items, err := svc.Leaderboard(context.Background(), transport.LeaderboardRequest{Tier: "hot"})
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(items) != 1 || items[0].TotalScore != 90 {
		t.Fatalf("unexpected leaderboard %+v", items)
	}
}
