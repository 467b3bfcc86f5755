package service

import (
	"context"
	"fmt"
	"time"

	"consultancy_backend/internal/events"
	"consultancy_backend/internal/scoring/engine"
	"consultancy_backend/internal/scoring/repository"
	"consultancy_backend/internal/scoring/transport"
	"consultancy_backend/platform/logger"
	"consultancy_backend/platform/metrics"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// ScoreStore persists derived scores.
type ScoreStore interface {
	Upsert(ctx context.Context, s repository.LeadScore) (repository.LeadScore, error)
	Get(ctx context.Context, studentID uuid.UUID) (repository.LeadScore, error)
	List(ctx context.Context, tier string, limit int) ([]repository.LeadScore, error)
}

// SignalLoader assembles the scoring input for a student from the student,
// inquiry, engagement, communication and application collections. Now is
// filled in by the service.
type SignalLoader interface {
	Load(ctx context.Context, studentID uuid.UUID) (engine.Input, error)
	StudentIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Service computes and persists lead scores.
type Service struct {
	repo    ScoreStore
	signals SignalLoader
	opts    engine.Options
	log     *logger.Logger
	pacer   *rate.Limiter
	now     func() time.Time
}

// New creates a new scoring service.
func New(repo ScoreStore, signals SignalLoader, opts engine.Options, log *logger.Logger) *Service {
	return &Service{repo: repo, signals: signals, opts: opts, log: log, now: time.Now}
}

// WithPacing makes RecalculateAll wait on limiter between students.
func (s *Service) WithPacing(limiter *rate.Limiter) *Service {
	s.pacer = limiter
	return s
}

// Compute scores a student without persisting the result.
func (s *Service) Compute(ctx context.Context, studentID uuid.UUID) (transport.ScoreResponse, error) {
	breakdown, at, err := s.compute(ctx, studentID)
	if err != nil {
		return transport.ScoreResponse{}, err
	}
	metrics.LeadScoresComputed.WithLabelValues(string(breakdown.Tier), "false").Inc()
	return transport.ScoreResponse{StudentID: studentID, Breakdown: breakdown, Version: engine.Version, ComputedAt: at}, nil
}

// ComputeAndPersist scores a student and stores the result, replacing the
// previous score.
func (s *Service) ComputeAndPersist(ctx context.Context, studentID uuid.UUID) (transport.ScoreResponse, error) {
	breakdown, at, err := s.compute(ctx, studentID)
	if err != nil {
		return transport.ScoreResponse{}, err
	}

	if _, err := s.repo.Upsert(ctx, toLeadScore(studentID, breakdown, at)); err != nil {
		return transport.ScoreResponse{}, err
	}
	metrics.LeadScoresComputed.WithLabelValues(string(breakdown.Tier), "true").Inc()

	return transport.ScoreResponse{StudentID: studentID, Breakdown: breakdown, Version: engine.Version, ComputedAt: at, Persisted: true}, nil
}

// RecalculateAll rescores every student. Failures are collected per student
// and never stop the batch; only context cancellation does.
func (s *Service) RecalculateAll(ctx context.Context) (transport.RecalculateResponse, error) {
	ids, err := s.signals.StudentIDs(ctx)
	if err != nil {
		return transport.RecalculateResponse{}, err
	}

	resp := transport.RecalculateResponse{Tiers: map[string]int{}, Errors: []transport.RecalculateError{}}
	for _, id := range ids {
		if s.pacer != nil {
			if err := s.pacer.Wait(ctx); err != nil {
				return resp, err
			}
		}
		if err := ctx.Err(); err != nil {
			return resp, err
		}

		result, err := s.ComputeAndPersist(ctx, id)
		if err != nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, transport.RecalculateError{StudentID: id, Reason: err.Error()})
			s.log.Warn("lead rescoring failed", "studentId", id, "error", err)
			continue
		}
		resp.Scored++
		resp.Tiers[string(result.Breakdown.Tier)]++
	}

	s.log.Info("lead rescoring finished", "scored", resp.Scored, "failed", resp.Failed)
	return resp, nil
}

func (s *Service) Leaderboard(ctx context.Context, req transport.LeaderboardRequest) ([]transport.LeaderboardEntry, error) {
	limit := req.Limit
	if limit == 0 {
		limit = 100
	}
	scores, err := s.repo.List(ctx, req.Tier, limit)
	if err != nil {
		return nil, err
	}

	items := make([]transport.LeaderboardEntry, 0, len(scores))
	for _, sc := range scores {
		items = append(items, transport.LeaderboardEntry{
			StudentID:         sc.StudentID,
			TotalScore:        sc.TotalScore,
			Tier:              sc.Tier,
			Grade:             sc.Grade,
			RecommendedAction: sc.RecommendedAction,
			EngagementScore:   sc.EngagementScore,
			ProfileScore:      sc.ProfileScore,
			IntentScore:       sc.IntentScore,
			ComputedAt:        sc.ComputedAt,
		})
	}
	return items, nil
}

// HandleEvent keeps persisted scores fresh when a student is created or a
// counselor changes the manual adjustment.
func (s *Service) HandleEvent(ctx context.Context, event events.Event) error {
	var studentID uuid.UUID
	switch e := event.(type) {
	case events.StudentCreated:
		studentID = e.StudentID
	case events.LeadScoreAdjusted:
		studentID = e.StudentID
	default:
		return nil
	}

	if _, err := s.ComputeAndPersist(ctx, studentID); err != nil {
		return fmt.Errorf("rescore student %s: %w", studentID, err)
	}
	return nil
}

func (s *Service) compute(ctx context.Context, studentID uuid.UUID) (engine.Breakdown, time.Time, error) {
	in, err := s.signals.Load(ctx, studentID)
	if err != nil {
		return engine.Breakdown{}, time.Time{}, err
	}
	now := s.now()
	in.Now = now
	return engine.Compute(in, s.opts), now, nil
}

func toLeadScore(studentID uuid.UUID, b engine.Breakdown, at time.Time) repository.LeadScore {
	return repository.LeadScore{
		StudentID:            studentID,
		TotalScore:           b.Total,
		ContactPoints:        b.Contact,
		SpecificityPoints:    b.Specificity,
		EngagementPoints:     b.Engagement,
		HistoryPoints:        b.History,
		ReferralPoints:       b.Referral,
		AdjustmentPoints:     b.Adjustment,
		EngagementScore:      b.EngagementScore,
		ProfileScore:         b.ProfileScore,
		IntentScore:          b.IntentScore,
		Tier:                 string(b.Tier),
		Grade:                b.Grade,
		RecommendedAction:    b.RecommendedAction,
		DaysSinceLastContact: b.DaysSinceLastContact,
		EngagementCount:      b.EngagementCount,
		ApplicationCount:     b.ApplicationCount,
		Version:              engine.Version,
		ComputedAt:           at,
	}
}
