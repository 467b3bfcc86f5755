// Package evaluator decides which entities a workflow rule fires for. It is
// pure: the caller supplies a Snapshot and a clock, and gets back Matches.
// Drafting content, creating tasks and sending email happen elsewhere.
package evaluator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	TriggerCommunicationGap    = "communication_gap"
	TriggerDeadlineApproaching = "deadline_approaching"
	TriggerDocumentPending     = "document_pending"
	TriggerHotLeadUncontacted  = "hot_lead_uncontacted"
)

const (
	ActionCreateTask      = "create_task"
	ActionSendEmail       = "send_email"
	ActionNotifyCounselor = "notify_counselor"
)

const (
	day          = 24 * time.Hour
	instanceNone = "none"

	applicationStatusDraft = "draft"
	documentStatusPending  = "pending"
	studentStatusNewLead   = "new_lead"
	tierHot                = "hot"
)

// TriggerTypes is registered as the "trigger_type" validation tag.
var TriggerTypes = []string{
	TriggerCommunicationGap, TriggerDeadlineApproaching, TriggerDocumentPending, TriggerHotLeadUncontacted,
}

// ActionTypes is registered as the "action_type" validation tag.
var ActionTypes = []string{ActionCreateTask, ActionSendEmail, ActionNotifyCounselor}

var defaultThresholdDays = map[string]int{
	TriggerCommunicationGap:    5,
	TriggerDeadlineApproaching: 7,
	TriggerDocumentPending:     3,
	TriggerHotLeadUncontacted:  1,
}

// Task priorities the evaluator assigns.
const (
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Conditions are a rule's trigger parameters. Zero DaysThreshold means the
// trigger's default.
type Conditions struct {
	DaysThreshold int  `json:"days_threshold,omitempty" yaml:"days_threshold,omitempty"`
	MinScore      *int `json:"min_score,omitempty" yaml:"min_score,omitempty"`
}

type Action struct {
	ActionType     string `json:"action_type" yaml:"action_type"`
	ExecutionOrder int    `json:"execution_order" yaml:"execution_order"`
	Parallel       bool   `json:"parallel" yaml:"parallel"`
}

type Rule struct {
	ID          uuid.UUID
	Name        string
	TriggerType string
	Conditions  Conditions
	Actions     []Action
}

// Threshold returns the rule's window, falling back to the trigger default.
func (r Rule) Threshold() time.Duration {
	days := r.Conditions.DaysThreshold
	if days <= 0 {
		days = defaultThresholdDays[r.TriggerType]
	}
	return time.Duration(days) * day
}

type Student struct {
	ID          uuid.UUID
	Name        string
	Email       string
	Status      string
	CounselorID *uuid.UUID
}

type Communication struct {
	ID         uuid.UUID
	StudentID  uuid.UUID
	Channel    string
	OccurredAt time.Time
}

type Application struct {
	ID             uuid.UUID
	StudentID      uuid.UUID
	UniversityName string
	CourseName     string
	Status         string
	Deadline       *time.Time
}

type Document struct {
	ID           uuid.UUID
	StudentID    uuid.UUID
	DocumentType string
	FileName     string
	Status       string
	UploadedAt   time.Time
}

type Score struct {
	Total int
	Tier  string
}

// Snapshot is the bulk-loaded state one run evaluates against. Slices keep
// storage order.
type Snapshot struct {
	Students     []Student
	Applications []Application
	Documents    []Document
	// LatestCommunications holds the newest communication per student.
	LatestCommunications map[uuid.UUID]Communication
	Scores               map[uuid.UUID]Score
	// PendingKeys holds the idempotency keys of pending tasks.
	PendingKeys map[string]struct{}
}

func (s Snapshot) student(id uuid.UUID) (Student, bool) {
	for _, st := range s.Students {
		if st.ID == id {
			return st, true
		}
	}
	return Student{}, false
}

// Match is one entity a rule fired for, with the task it should produce.
type Match struct {
	RuleID         uuid.UUID
	TriggerType    string
	Student        Student
	InstanceID     string
	IdempotencyKey string
	// Pending is true when a pending task with the same key already exists.
	Pending bool

	Title       string
	Description string
	Priority    string
	DueDate     time.Time

	LastContactAt *time.Time
	Application   *Application
	Documents     []Document
}

// IdempotencyKey identifies one firing of a trigger for one condition
// instance.
func IdempotencyKey(studentID uuid.UUID, triggerType, instanceID string) string {
	return studentID.String() + ":" + triggerType + ":" + instanceID
}

// Evaluate returns every match of rule against snap at now, in storage
// order. Matches whose key is already pending are returned flagged.
func Evaluate(rule Rule, snap Snapshot, now time.Time) []Match {
	var matches []Match
	switch rule.TriggerType {
	case TriggerCommunicationGap:
		matches = communicationGap(rule, snap, now)
	case TriggerDeadlineApproaching:
		matches = deadlineApproaching(rule, snap, now)
	case TriggerDocumentPending:
		matches = documentPending(rule, snap, now)
	case TriggerHotLeadUncontacted:
		matches = hotLeadUncontacted(rule, snap, now)
	default:
		return nil
	}

	for i := range matches {
		m := &matches[i]
		m.RuleID = rule.ID
		m.TriggerType = rule.TriggerType
		m.IdempotencyKey = IdempotencyKey(m.Student.ID, rule.TriggerType, m.InstanceID)
		_, m.Pending = snap.PendingKeys[m.IdempotencyKey]
	}
	return matches
}

// communicationGap fires when the newest communication is strictly older
// than the threshold, or when there is none.
func communicationGap(rule Rule, snap Snapshot, now time.Time) []Match {
	cutoff := now.Add(-rule.Threshold())
	var out []Match
	for _, st := range snap.Students {
		last, ok := snap.LatestCommunications[st.ID]
		if ok && !last.OccurredAt.Before(cutoff) {
			continue
		}

		m := Match{
			Student:    st,
			InstanceID: instanceNone,
			Title:      "Follow up with " + st.Name,
			Priority:   PriorityHigh,
			DueDate:    now.Add(day),
		}
		if ok {
			at := last.OccurredAt
			m.InstanceID = last.ID.String()
			m.LastContactAt = &at
			m.Description = fmt.Sprintf("No communication with %s for %d days (last contact %s).",
				st.Name, int(now.Sub(at)/day), at.Format("2006-01-02"))
		} else {
			m.Description = fmt.Sprintf("No communication with %s has been logged yet.", st.Name)
		}
		out = append(out, m)
	}
	return out
}

// deadlineApproaching fires for draft applications whose course deadline
// lies in [now, now+threshold].
func deadlineApproaching(rule Rule, snap Snapshot, now time.Time) []Match {
	horizon := now.Add(rule.Threshold())
	var out []Match
	for _, app := range snap.Applications {
		if app.Status != applicationStatusDraft || app.Deadline == nil {
			continue
		}
		deadline := *app.Deadline
		if deadline.Before(now) || deadline.After(horizon) {
			continue
		}
		st, ok := snap.student(app.StudentID)
		if !ok {
			continue
		}

		appCopy := app
		target := app.UniversityName
		if app.CourseName != "" {
			target = app.CourseName + " at " + app.UniversityName
		}
		out = append(out, Match{
			Student:     st,
			InstanceID:  app.ID.String(),
			Title:       "Application deadline approaching: " + target,
			Description: fmt.Sprintf("%s's application for %s is still a draft. Deadline: %s.", st.Name, target, deadline.Format("2006-01-02")),
			Priority:    PriorityUrgent,
			DueDate:     deadline,
			Application: &appCopy,
		})
	}
	return out
}

// documentPending emits one aggregate match per student with pending
// documents uploaded strictly before now-threshold.
func documentPending(rule Rule, snap Snapshot, now time.Time) []Match {
	cutoff := now.Add(-rule.Threshold())
	byStudent := make(map[uuid.UUID][]Document)
	var order []uuid.UUID
	for _, doc := range snap.Documents {
		if doc.Status != documentStatusPending || !doc.UploadedAt.Before(cutoff) {
			continue
		}
		if _, seen := byStudent[doc.StudentID]; !seen {
			order = append(order, doc.StudentID)
		}
		byStudent[doc.StudentID] = append(byStudent[doc.StudentID], doc)
	}

	var out []Match
	for _, studentID := range order {
		st, ok := snap.student(studentID)
		if !ok {
			continue
		}
		docs := byStudent[studentID]
		lines := make([]string, 0, len(docs))
		for _, d := range docs {
			lines = append(lines, fmt.Sprintf("- %s (%s), uploaded %s", d.FileName, d.DocumentType, d.UploadedAt.Format("2006-01-02")))
		}
		out = append(out, Match{
			Student:     st,
			InstanceID:  studentID.String(),
			Title:       fmt.Sprintf("Review %d pending document(s) for %s", len(docs), st.Name),
			Description: "Documents awaiting review:\n" + strings.Join(lines, "\n"),
			Priority:    PriorityMedium,
			DueDate:     now.Add(2 * day),
			Documents:   docs,
		})
	}
	return out
}

// hotLeadUncontacted fires for new leads whose persisted score is hot and
// who have had no communication within the threshold.
func hotLeadUncontacted(rule Rule, snap Snapshot, now time.Time) []Match {
	cutoff := now.Add(-rule.Threshold())
	var out []Match
	for _, st := range snap.Students {
		if st.Status != studentStatusNewLead {
			continue
		}
		score, ok := snap.Scores[st.ID]
		if !ok || score.Tier != tierHot {
			continue
		}
		if rule.Conditions.MinScore != nil && score.Total < *rule.Conditions.MinScore {
			continue
		}
		if last, ok := snap.LatestCommunications[st.ID]; ok && !last.OccurredAt.Before(cutoff) {
			continue
		}

		out = append(out, Match{
			Student:     st,
			InstanceID:  st.ID.String(),
			Title:       "Call hot lead " + st.Name,
			Description: fmt.Sprintf("%s scored %d (hot) and has not been contacted. Follow up within 2 hours.", st.Name, score.Total),
			Priority:    PriorityUrgent,
			DueDate:     now.Add(2 * time.Hour),
		})
	}
	return out
}

// Stages groups actions by execution order. Consecutive actions flagged
// parallel share a stage; every other action is a stage of its own. A rule
// without actions creates a task.
func Stages(actions []Action) [][]Action {
	if len(actions) == 0 {
		return [][]Action{{{ActionType: ActionCreateTask}}}
	}

	sorted := make([]Action, len(actions))
	copy(sorted, actions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ExecutionOrder < sorted[j].ExecutionOrder })

	var stages [][]Action
	for _, a := range sorted {
		n := len(stages)
		if a.Parallel && n > 0 && stages[n-1][len(stages[n-1])-1].Parallel {
			stages[n-1] = append(stages[n-1], a)
			continue
		}
		stages = append(stages, []Action{a})
	}
	return stages
}
