// Package engine computes lead scores. It is pure: callers load the signals,
// Compute turns them into a Breakdown, and persistence happens elsewhere.
package engine

import (
	"math"
	"strings"
	"time"
)

// Version identifies the scoring model stored with persisted scores.
// Bump it when weights or tiers change.
const Version = "2026-consultancy-v1"

// Category caps.
const (
	MaxContact     = 20
	MaxSpecificity = 20
	MaxEngagement  = 25
	MaxHistory     = 20
	MaxReferral    = 15

	pointsEmail   = 10
	pointsPhone   = 10
	pointsCountry = 7
	pointsDegree  = 7
	pointsField   = 6

	pointsAnyApplication = 10
	pointsEnrolled       = 10

	// DefaultEngagementPoints applies to events recorded without points.
	DefaultEngagementPoints = 5
)

// ApplicationStatusEnrolled is the application status that earns the
// second history bonus.
const ApplicationStatusEnrolled = "enrolled"

// referralPoints is looked up case-exactly; unknown sources score 0.
var referralPoints = map[string]int{
	"referral":     15,
	"partner":      12,
	"event":        10,
	"social_media": 7,
	"website":      5,
}

// Tier is the lead quality bucket.
type Tier string

const (
	TierHot  Tier = "hot"
	TierWarm Tier = "warm"
	TierCold Tier = "cold"
	TierLow  Tier = "low"
)

var tierActions = map[Tier]string{
	TierHot:  "immediate follow-up within 2 hours",
	TierWarm: "schedule consultation within 24–48 hours",
	TierCold: "nurture with automated campaigns",
	TierLow:  "focus on nurturing",
}

// Inquiry is the student's most recent inquiry. Empty fields are absent.
type Inquiry struct {
	CountryOfInterest string
	DegreeLevel       string
	FieldOfStudy      string
	Source            string
}

// Student holds the profile fields that feed the score.
type Student struct {
	Email                string
	Phone                string
	PreferredCountries   []string
	PreferredDegreeLevel string
	PreferredFields      []string
	Source               string
	Adjustment           int
}

// Engagement is one recorded interaction. Nil Points means the default.
type Engagement struct {
	Points     *int
	OccurredAt time.Time
}

// Application is a prior application; only its status matters here.
type Application struct {
	Status string
}

// Input is everything Compute looks at.
type Input struct {
	Inquiry       *Inquiry
	Student       Student
	Engagements   []Engagement
	Applications  []Application
	LastContactAt *time.Time
	Now           time.Time
}

// Options tune Compute.
type Options struct {
	// CapTotal clamps the total to [0, 100]. Off by default: the manual
	// adjustment may push a lead above 100 or below 0.
	CapTotal bool
}

// Breakdown is the full result of a scoring pass.
type Breakdown struct {
	Contact     int `json:"contact"`
	Specificity int `json:"specificity"`
	Engagement  int `json:"engagement"`
	History     int `json:"history"`
	Referral    int `json:"referral"`
	Adjustment  int `json:"adjustment"`

	Total             int    `json:"total"`
	Tier              Tier   `json:"tier"`
	Grade             string `json:"grade"`
	RecommendedAction string `json:"recommendedAction"`

	EngagementScore int `json:"engagementScore"`
	ProfileScore    int `json:"profileScore"`
	IntentScore     int `json:"intentScore"`

	DaysSinceLastContact *int `json:"daysSinceLastContact,omitempty"`
	EngagementCount      int  `json:"engagementCount"`
	ApplicationCount     int  `json:"applicationCount"`
}

// Compute scores one lead.
func Compute(in Input, opts Options) Breakdown {
	b := Breakdown{
		Contact:          contactPoints(in.Student),
		Specificity:      specificityPoints(in.Inquiry, in.Student),
		Engagement:       engagementPoints(in.Engagements),
		History:          historyPoints(in.Applications),
		Referral:         ReferralPoints(referralSource(in.Inquiry, in.Student)),
		Adjustment:       in.Student.Adjustment,
		EngagementCount:  len(in.Engagements),
		ApplicationCount: len(in.Applications),
	}

	b.Total = b.Contact + b.Specificity + b.Engagement + b.History + b.Referral + b.Adjustment
	if opts.CapTotal {
		b.Total = clamp(b.Total, 0, 100)
	}

	b.Tier = TierFor(float64(b.Total))
	b.RecommendedAction = ActionFor(b.Tier)
	b.Grade = GradeFor(b.Total)

	b.EngagementScore = b.Engagement
	b.ProfileScore = b.Contact + b.Specificity
	b.IntentScore = b.History + b.Referral

	if in.LastContactAt != nil && !in.Now.IsZero() {
		days := int(math.Floor(in.Now.Sub(*in.LastContactAt).Hours() / 24))
		if days < 0 {
			days = 0
		}
		b.DaysSinceLastContact = &days
	}

	return b
}

// TierFor maps a score to its tier. Lower bounds are inclusive.
func TierFor(score float64) Tier {
	switch {
	case score >= 75:
		return TierHot
	case score >= 50:
		return TierWarm
	case score >= 25:
		return TierCold
	default:
		return TierLow
	}
}

// ActionFor returns the recommended next action for a tier.
func ActionFor(t Tier) string {
	return tierActions[t]
}

// GradeFor maps a total to an A–F letter grade.
func GradeFor(total int) string {
	switch {
	case total >= 85:
		return "A"
	case total >= 70:
		return "B"
	case total >= 55:
		return "C"
	case total >= 40:
		return "D"
	case total >= 25:
		return "E"
	default:
		return "F"
	}
}

// ReferralPoints looks up a lead source. The match is case-exact.
func ReferralPoints(source string) int {
	return referralPoints[source]
}

func contactPoints(s Student) int {
	points := 0
	if present(s.Email) {
		points += pointsEmail
	}
	if present(s.Phone) {
		points += pointsPhone
	}
	return points
}

// specificityPoints prefers the inquiry's answer and falls back to the
// profile's stated preferences.
func specificityPoints(inq *Inquiry, s Student) int {
	var country, degree, field string
	if inq != nil {
		country, degree, field = inq.CountryOfInterest, inq.DegreeLevel, inq.FieldOfStudy
	}

	points := 0
	if present(country) || anyPresent(s.PreferredCountries) {
		points += pointsCountry
	}
	if present(degree) || present(s.PreferredDegreeLevel) {
		points += pointsDegree
	}
	if present(field) || anyPresent(s.PreferredFields) {
		points += pointsField
	}
	return points
}

func engagementPoints(events []Engagement) int {
	sum := 0
	for _, e := range events {
		if e.Points != nil {
			sum += *e.Points
			continue
		}
		sum += DefaultEngagementPoints
	}
	return clamp(sum, 0, MaxEngagement)
}

func historyPoints(apps []Application) int {
	if len(apps) == 0 {
		return 0
	}
	points := pointsAnyApplication
	for _, a := range apps {
		if a.Status == ApplicationStatusEnrolled {
			points += pointsEnrolled
			break
		}
	}
	return points
}

func referralSource(inq *Inquiry, s Student) string {
	if inq != nil && inq.Source != "" {
		return inq.Source
	}
	return s.Source
}

func present(v string) bool {
	return strings.TrimSpace(v) != ""
}

func anyPresent(values []string) bool {
	for _, v := range values {
		if present(v) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
