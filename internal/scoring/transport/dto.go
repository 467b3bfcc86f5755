package transport

import (
	"time"

	"consultancy_backend/internal/scoring/engine"

	"github.com/google/uuid"
)

// ScoreResponse is a computed breakdown for one student. Persisted is false
// for on-the-fly computations.
type ScoreResponse struct {
	StudentID  uuid.UUID        `json:"studentId"`
	Breakdown  engine.Breakdown `json:"breakdown"`
	Version    string           `json:"version"`
	ComputedAt time.Time        `json:"computedAt"`
	Persisted  bool             `json:"persisted"`
}

type RecalculateError struct {
	StudentID uuid.UUID `json:"studentId"`
	Reason    string    `json:"reason"`
}

type RecalculateResponse struct {
	Scored int                `json:"scored"`
	Failed int                `json:"failed"`
	Tiers  map[string]int     `json:"tiers"`
	Errors []RecalculateError `json:"errors"`
}

type LeaderboardRequest struct {
	Tier  string `form:"tier" validate:"omitempty,oneof=hot warm cold low"`
	Limit int    `form:"limit" validate:"omitempty,min=1,max=500"`
}

type LeaderboardEntry struct {
	StudentID         uuid.UUID `json:"studentId"`
	TotalScore        int       `json:"totalScore"`
	Tier              string    `json:"tier"`
	Grade             string    `json:"grade"`
	RecommendedAction string    `json:"recommendedAction"`
	EngagementScore   int       `json:"engagementScore"`
	ProfileScore      int       `json:"profileScore"`
	IntentScore       int       `json:"intentScore"`
	ComputedAt        time.Time `json:"computedAt"`
}
