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

// Repository persists derived lead scores, one row per student.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new scoring repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type LeadScore struct {
	StudentID            uuid.UUID
	TotalScore           int
	ContactPoints        int
	SpecificityPoints    int
	EngagementPoints     int
	HistoryPoints        int
	ReferralPoints       int
	AdjustmentPoints     int
	EngagementScore      int
	ProfileScore         int
	IntentScore          int
	Tier                 string
	Grade                string
	RecommendedAction    string
	DaysSinceLastContact *int
	EngagementCount      int
	ApplicationCount     int
	Version              string
	ComputedAt           time.Time
}

const scoreColumns = `student_id, total_score, contact_points, specificity_points, engagement_points,
	history_points, referral_points, adjustment_points, engagement_score, profile_score, intent_score,
	tier, grade, recommended_action, days_since_last_contact, engagement_count, application_count,
	version, computed_at`

func scanScore(row pgx.Row) (LeadScore, error) {
	var s LeadScore
	err := row.Scan(&s.StudentID, &s.TotalScore, &s.ContactPoints, &s.SpecificityPoints, &s.EngagementPoints,
		&s.HistoryPoints, &s.ReferralPoints, &s.AdjustmentPoints, &s.EngagementScore, &s.ProfileScore, &s.IntentScore,
		&s.Tier, &s.Grade, &s.RecommendedAction, &s.DaysSinceLastContact, &s.EngagementCount, &s.ApplicationCount,
		&s.Version, &s.ComputedAt)
	return s, err
}

// Upsert stores the score, replacing any previous row for the student.
func (r *Repository) Upsert(ctx context.Context, s LeadScore) (LeadScore, error) {
	query := `
		INSERT INTO lead_scores (` + scoreColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (student_id) DO UPDATE SET
			total_score = EXCLUDED.total_score,
			contact_points = EXCLUDED.contact_points,
			specificity_points = EXCLUDED.specificity_points,
			engagement_points = EXCLUDED.engagement_points,
			history_points = EXCLUDED.history_points,
			referral_points = EXCLUDED.referral_points,
			adjustment_points = EXCLUDED.adjustment_points,
			engagement_score = EXCLUDED.engagement_score,
			profile_score = EXCLUDED.profile_score,
			intent_score = EXCLUDED.intent_score,
			tier = EXCLUDED.tier,
			grade = EXCLUDED.grade,
			recommended_action = EXCLUDED.recommended_action,
			days_since_last_contact = EXCLUDED.days_since_last_contact,
			engagement_count = EXCLUDED.engagement_count,
			application_count = EXCLUDED.application_count,
			version = EXCLUDED.version,
			computed_at = EXCLUDED.computed_at
		RETURNING ` + scoreColumns

	stored, err := scanScore(r.pool.QueryRow(ctx, query,
		s.StudentID, s.TotalScore, s.ContactPoints, s.SpecificityPoints, s.EngagementPoints,
		s.HistoryPoints, s.ReferralPoints, s.AdjustmentPoints, s.EngagementScore, s.ProfileScore, s.IntentScore,
		s.Tier, s.Grade, s.RecommendedAction, s.DaysSinceLastContact, s.EngagementCount, s.ApplicationCount,
		s.Version, s.ComputedAt))
	if err != nil {
		return LeadScore{}, fmt.Errorf("upsert lead score: %w", err)
	}
	return stored, nil
}

func (r *Repository) Get(ctx context.Context, studentID uuid.UUID) (LeadScore, error) {
	s, err := scanScore(r.pool.QueryRow(ctx, `SELECT `+scoreColumns+` FROM lead_scores WHERE student_id = $1`, studentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LeadScore{}, apperr.NotFound("lead score not found")
		}
		return LeadScore{}, fmt.Errorf("get lead score: %w", err)
	}
	return s, nil
}

// List returns persisted scores, highest first. Empty tier means all tiers;
// zero limit means no limit.
func (r *Repository) List(ctx context.Context, tier string, limit int) ([]LeadScore, error) {
	var tierFilter *string
	if tier != "" {
		tierFilter = &tier
	}
	var limitArg *int
	if limit > 0 {
		limitArg = &limit
	}

	query := `SELECT ` + scoreColumns + `
		FROM lead_scores
		WHERE ($1::text IS NULL OR tier = $1)
		ORDER BY total_score DESC, computed_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, tierFilter, limitArg)
	if err != nil {
		return nil, fmt.Errorf("list lead scores: %w", err)
	}
	defer rows.Close()

	items := make([]LeadScore, 0)
	for rows.Next() {
		s, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead score: %w", err)
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
