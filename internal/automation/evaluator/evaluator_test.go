package evaluator

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

var now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func rule(trigger string, days int) Rule {
	return Rule{ID: uuid.New(), Name: trigger, TriggerType: trigger, Conditions: Conditions{DaysThreshold: days}}
}

func student(name string) Student {
	return Student{ID: uuid.New(), Name: name, Status: "contacted"}
}

func TestCommunicationGapBoundaryIsStrict(t *testing.T) {
	exact, older, recent, silent := student("Exact"), student("Older"), student("Recent"), student("Silent")
	snap := Snapshot{
		Students: []Student{exact, older, recent, silent},
		LatestCommunications: map[uuid.UUID]Communication{
			exact.ID:  {ID: uuid.New(), StudentID: exact.ID, OccurredAt: now.Add(-5 * day)},
			older.ID:  {ID: uuid.New(), StudentID: older.ID, OccurredAt: now.Add(-5*day - time.Second)},
			recent.ID: {ID: uuid.New(), StudentID: recent.ID, OccurredAt: now.Add(-time.Hour)},
		},
	}

	matches := Evaluate(rule(TriggerCommunicationGap, 5), snap, now)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Student.ID != older.ID || matches[1].Student.ID != silent.ID {
		t.Fatalf("expected storage order older, silent; got %s, %s", matches[0].Student.Name, matches[1].Student.Name)
	}
	if matches[1].InstanceID != "none" {
		t.Fatalf("expected instance none for a student without communications, got %s", matches[1].InstanceID)
	}
	want := older.ID.String() + ":communication_gap:" + snap.LatestCommunications[older.ID].ID.String()
	if matches[0].IdempotencyKey != want {
		t.Fatalf("expected key %s, got %s", want, matches[0].IdempotencyKey)
	}
}

func TestCommunicationGapDefaultThreshold(t *testing.T) {
	s := student("Four days")
	snap := Snapshot{
		Students:             []Student{s},
		LatestCommunications: map[uuid.UUID]Communication{s.ID: {ID: uuid.New(), OccurredAt: now.Add(-4 * day)}},
	}
	if got := Evaluate(rule(TriggerCommunicationGap, 0), snap, now); len(got) != 0 {
		t.Fatalf("expected no match inside the default 5 day window, got %d", len(got))
	}
}

func TestPendingKeysAreFlagged(t *testing.T) {
	s := student("Silent")
	key := IdempotencyKey(s.ID, TriggerCommunicationGap, "none")
	snap := Snapshot{Students: []Student{s}, PendingKeys: map[string]struct{}{key: {}}}

	matches := Evaluate(rule(TriggerCommunicationGap, 5), snap, now)
	if len(matches) != 1 || !matches[0].Pending {
		t.Fatalf("expected one pending-flagged match, got %+v", matches)
	}
}

func TestDeadlineApproachingOnlyDraftInWindow(t *testing.T) {
	s := student("Applicant")
	in := func(d time.Duration) *time.Time { t := now.Add(d); return &t }
	apps := []Application{
		{ID: uuid.New(), StudentID: s.ID, UniversityName: "Leeds", Status: "draft", Deadline: in(3 * day)},
		{ID: uuid.New(), StudentID: s.ID, UniversityName: "York", Status: "draft", Deadline: in(7 * day)},
		{ID: uuid.New(), StudentID: s.ID, UniversityName: "Bath", Status: "draft", Deadline: in(8 * day)},
		{ID: uuid.New(), StudentID: s.ID, UniversityName: "Kent", Status: "draft", Deadline: in(-time.Hour)},
		{ID: uuid.New(), StudentID: s.ID, UniversityName: "Hull", Status: "submitted_to_university", Deadline: in(day)},
		{ID: uuid.New(), StudentID: s.ID, UniversityName: "Essex", Status: "enrolled", Deadline: in(day)},
		{ID: uuid.New(), StudentID: s.ID, UniversityName: "Durham", Status: "withdrawn", Deadline: in(day)},
		{ID: uuid.New(), StudentID: s.ID, UniversityName: "Open", Status: "draft"},
	}
	snap := Snapshot{Students: []Student{s}, Applications: apps}

	matches := Evaluate(rule(TriggerDeadlineApproaching, 7), snap, now)
	if len(matches) != 2 {
		t.Fatalf("expected Leeds and York, got %d matches", len(matches))
	}
	for _, m := range matches {
		if m.Priority != PriorityUrgent {
			t.Fatalf("expected urgent priority, got %s", m.Priority)
		}
		if m.InstanceID != m.Application.ID.String() {
			t.Fatal("expected application id as instance")
		}
	}
}

func TestDeadlineApproachingIgnoresNonDraftStatuses(t *testing.T) {
	for _, status := range []string{"submitted_to_university", "enrolled", "rejected", "withdrawn"} {
		t.Run(status, func(t *testing.T) {
			s := student("Applicant")
			deadline := now.Add(2 * day)
			snap := Snapshot{Students: []Student{s}, Applications: []Application{
				{ID: uuid.New(), StudentID: s.ID, UniversityName: "Leeds", Status: status, Deadline: &deadline},
			}}
			if matches := Evaluate(rule(TriggerDeadlineApproaching, 7), snap, now); len(matches) != 0 {
				t.Fatalf("expected no match for %s, got %d", status, len(matches))
			}
		})
	}
}

func TestDocumentPendingAggregatesPerStudent(t *testing.T) {
	a, b := student("A"), student("B")
	docs := []Document{
		{ID: uuid.New(), StudentID: a.ID, FileName: "passport.pdf", DocumentType: "passport", Status: "pending", UploadedAt: now.Add(-4 * day)},
		{ID: uuid.New(), StudentID: b.ID, FileName: "ielts.pdf", DocumentType: "english_test", Status: "pending", UploadedAt: now.Add(-3 * day)},
		{ID: uuid.New(), StudentID: a.ID, FileName: "transcript.pdf", DocumentType: "transcript", Status: "pending", UploadedAt: now.Add(-10 * day)},
		{ID: uuid.New(), StudentID: a.ID, FileName: "cv.pdf", DocumentType: "cv", Status: "verified", UploadedAt: now.Add(-10 * day)},
	}
	snap := Snapshot{Students: []Student{a, b}, Documents: docs}

	matches := Evaluate(rule(TriggerDocumentPending, 3), snap, now)
	if len(matches) != 1 {
		t.Fatalf("expected one aggregate match, got %d", len(matches))
	}
	m := matches[0]
	if m.Student.ID != a.ID || len(m.Documents) != 2 {
		t.Fatalf("expected two documents for A, got %+v", m)
	}
	if !strings.Contains(m.Description, "passport.pdf") || !strings.Contains(m.Description, "transcript.pdf") {
		t.Fatalf("expected description to list both files, got %q", m.Description)
	}
	if m.InstanceID != a.ID.String() {
		t.Fatal("expected student id as instance")
	}
}

func TestHotLeadUncontacted(t *testing.T) {
	hot, warm, contacted, progressed := student("Hot"), student("Warm"), student("Contacted"), student("Progressed")
	hot.Status, warm.Status, contacted.Status = "new_lead", "new_lead", "new_lead"
	snap := Snapshot{
		Students: []Student{hot, warm, contacted, progressed},
		Scores: map[uuid.UUID]Score{
			hot.ID:        {Total: 82, Tier: "hot"},
			warm.ID:       {Total: 60, Tier: "warm"},
			contacted.ID:  {Total: 90, Tier: "hot"},
			progressed.ID: {Total: 90, Tier: "hot"},
		},
		LatestCommunications: map[uuid.UUID]Communication{
			contacted.ID: {ID: uuid.New(), OccurredAt: now.Add(-2 * time.Hour)},
		},
	}

	matches := Evaluate(rule(TriggerHotLeadUncontacted, 1), snap, now)
	if len(matches) != 1 || matches[0].Student.ID != hot.ID {
		t.Fatalf("expected only the uncontacted hot lead, got %+v", matches)
	}

	minScore := 85
	r := rule(TriggerHotLeadUncontacted, 1)
	r.Conditions.MinScore = &minScore
	if got := Evaluate(r, snap, now); len(got) != 0 {
		t.Fatalf("expected min_score to filter the lead, got %d", len(got))
	}
}

func TestUnknownTriggerMatchesNothing(t *testing.T) {
	snap := Snapshot{Students: []Student{student("A")}}
	if got := Evaluate(rule("birthday", 1), snap, now); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestStages(t *testing.T) {
	stages := Stages([]Action{
		{ActionType: ActionNotifyCounselor, ExecutionOrder: 3, Parallel: true},
		{ActionType: ActionCreateTask, ExecutionOrder: 1},
		{ActionType: ActionSendEmail, ExecutionOrder: 2, Parallel: true},
	})
	if len(stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(stages))
	}
	if stages[0][0].ActionType != ActionCreateTask || len(stages[1]) != 2 {
		t.Fatalf("unexpected stages %+v", stages)
	}

	if def := Stages(nil); len(def) != 1 || def[0][0].ActionType != ActionCreateTask {
		t.Fatalf("expected default create_task stage, got %+v", def)
	}
}
