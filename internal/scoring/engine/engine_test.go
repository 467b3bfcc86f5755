package engine

import (
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func baseStudent() Student {
	return Student{
		Email:                "a@x.com",
		Phone:                "555",
		PreferredCountries:   []string{"UK"},
		PreferredDegreeLevel: "Masters",
		Source:               "website",
	}
}

func fiveEach(n int) []Engagement {
	out := make([]Engagement, n)
	for i := range out {
		out[i] = Engagement{Points: intPtr(5)}
	}
	return out
}

func TestComputeEmptyProfileScoresAdjustmentOnly(t *testing.T) {
	for _, adj := range []int{0, 7, -12, 140} {
		b := Compute(Input{Student: Student{Adjustment: adj}}, Options{})
		if b.Total != adj {
			t.Errorf("adjustment %d: expected total %d, got %d", adj, adj, b.Total)
		}
	}
}

func TestComputeWebsiteLeadScenario(t *testing.T) {
	b := Compute(Input{Student: baseStudent()}, Options{})

	if b.Contact != 20 || b.Specificity != 14 || b.Engagement != 0 || b.History != 0 || b.Referral != 5 {
		t.Fatalf("unexpected categories %+v", b)
	}
	if b.Total != 39 {
		t.Fatalf("expected total 39, got %d", b.Total)
	}
	if b.Tier != TierCold {
		t.Fatalf("expected cold, got %s", b.Tier)
	}
	if b.RecommendedAction != "nurture with automated campaigns" {
		t.Fatalf("unexpected action %q", b.RecommendedAction)
	}
}

func TestComputeEngagedEnrolledScenario(t *testing.T) {
	b := Compute(Input{
		Student:      baseStudent(),
		Engagements:  fiveEach(6),
		Applications: []Application{{Status: "enrolled"}},
	}, Options{})

	if b.Engagement != 25 {
		t.Fatalf("expected engagement capped at 25, got %d", b.Engagement)
	}
	if b.History != 20 {
		t.Fatalf("expected history 20, got %d", b.History)
	}
	if b.Total != 84 || b.Tier != TierHot {
		t.Fatalf("expected 84/hot, got %d/%s", b.Total, b.Tier)
	}
	if b.Grade != "B" {
		t.Fatalf("expected grade B, got %s", b.Grade)
	}
	if b.ProfileScore != 34 || b.IntentScore != 25 || b.EngagementScore != 25 {
		t.Fatalf("unexpected sub-scores %+v", b)
	}
}

func TestEngagementCapAndDefaultPoints(t *testing.T) {
	b := Compute(Input{Engagements: fiveEach(10)}, Options{})
	if b.Engagement != 25 {
		t.Fatalf("10 x 5 points must clamp to 25, got %d", b.Engagement)
	}

	b = Compute(Input{Engagements: []Engagement{{}, {}, {Points: intPtr(3)}}}, Options{})
	if b.Engagement != 13 {
		t.Fatalf("expected 5+5+3=13 with default points, got %d", b.Engagement)
	}
}

func TestAddingPhoneAddsExactlyTen(t *testing.T) {
	without := baseStudent()
	without.Phone = ""
	with := baseStudent()

	delta := Compute(Input{Student: with}, Options{}).Total - Compute(Input{Student: without}, Options{}).Total
	if delta != 10 {
		t.Fatalf("expected phone to add 10, got %d", delta)
	}
}

func TestTierBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		tier  Tier
	}{
		{75, TierHot},
		{74.999, TierWarm},
		{50, TierWarm},
		{49, TierCold},
		{25, TierCold},
		{24, TierLow},
		{-10, TierLow},
		{130, TierHot},
	}
	for _, tc := range cases {
		if got := TierFor(tc.score); got != tc.tier {
			t.Errorf("TierFor(%v) = %s, want %s", tc.score, got, tc.tier)
		}
	}
}

func TestActionForEachTier(t *testing.T) {
	want := map[Tier]string{
		TierHot:  "immediate follow-up within 2 hours",
		TierWarm: "schedule consultation within 24–48 hours",
		TierCold: "nurture with automated campaigns",
		TierLow:  "focus on nurturing",
	}
	for tier, action := range want {
		if got := ActionFor(tier); got != action {
			t.Errorf("ActionFor(%s) = %q, want %q", tier, got, action)
		}
	}
	if got := ActionFor("unknown"); got != "" {
		t.Errorf("expected no action for an unknown tier, got %q", got)
	}
}

func TestReferralLookupIsCaseExact(t *testing.T) {
	cases := map[string]int{
		"referral":     15,
		"partner":      12,
		"event":        10,
		"social_media": 7,
		"website":      5,
		"Website":      0,
		"REFERRAL":     0,
		"billboard":    0,
		"":             0,
	}
	for source, want := range cases {
		if got := ReferralPoints(source); got != want {
			t.Errorf("ReferralPoints(%q) = %d, want %d", source, got, want)
		}
	}
}

func TestInquiryTakesPrecedenceOverProfile(t *testing.T) {
	student := Student{Source: "website"}
	inq := &Inquiry{CountryOfInterest: "Canada", FieldOfStudy: "Nursing", Source: "referral"}

	b := Compute(Input{Inquiry: inq, Student: student}, Options{})
	if b.Specificity != 13 {
		t.Fatalf("expected 7+6 from inquiry, got %d", b.Specificity)
	}
	if b.Referral != 15 {
		t.Fatalf("expected inquiry source to win, got %d", b.Referral)
	}
}

func TestBlankValuesAreAbsent(t *testing.T) {
	b := Compute(Input{
		Inquiry: &Inquiry{CountryOfInterest: "  "},
		Student: Student{Email: " ", PreferredFields: []string{"", "  "}},
	}, Options{})
	if b.Total != 0 {
		t.Fatalf("expected blank values to score 0, got %+v", b)
	}
}

func TestHistoryWithoutEnrollment(t *testing.T) {
	b := Compute(Input{Applications: []Application{{Status: "draft"}, {Status: "rejected"}}}, Options{})
	if b.History != 10 {
		t.Fatalf("expected 10 for prior applications without enrollment, got %d", b.History)
	}
}

func TestTotalUncappedByDefaultAndCappedWhenConfigured(t *testing.T) {
	s := baseStudent()
	s.Source = "referral"
	s.Adjustment = 30
	in := Input{
		Student:      s,
		Engagements:  fiveEach(5),
		Applications: []Application{{Status: "enrolled"}},
	}

	if got := Compute(in, Options{}).Total; got != 20+14+25+20+15+30 {
		t.Fatalf("expected uncapped total 124, got %d", got)
	}
	if got := Compute(in, Options{CapTotal: true}).Total; got != 100 {
		t.Fatalf("expected capped total 100, got %d", got)
	}

	in.Student = Student{Adjustment: -60}
	if got := Compute(in, Options{}).Total; got != -15 {
		t.Fatalf("expected uncapped total -15, got %d", got)
	}
	if got := Compute(in, Options{CapTotal: true}).Total; got != 0 {
		t.Fatalf("expected capped total 0, got %d", got)
	}
}

func TestGradeCutoffs(t *testing.T) {
	cases := map[int]string{85: "A", 84: "B", 70: "B", 69: "C", 55: "C", 54: "D", 40: "D", 39: "E", 25: "E", 24: "F", -5: "F"}
	for total, want := range cases {
		if got := GradeFor(total); got != want {
			t.Errorf("GradeFor(%d) = %s, want %s", total, got, want)
		}
	}
}

func TestDaysSinceLastContact(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	last := now.Add(-73 * time.Hour)

	b := Compute(Input{LastContactAt: &last, Now: now}, Options{})
	if b.DaysSinceLastContact == nil || *b.DaysSinceLastContact != 3 {
		t.Fatalf("expected 3 days since last contact, got %v", b.DaysSinceLastContact)
	}

	b = Compute(Input{Now: now}, Options{})
	if b.DaysSinceLastContact != nil {
		t.Fatal("expected nil days without any contact")
	}
}
