// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"consultancy_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Students Domain Events
// =============================================================================

// StudentCreated is published when a student is created through the API or
// the bulk import.
type StudentCreated struct {
	BaseEvent
	StudentID   uuid.UUID  `json:"studentId"`
	Email       string     `json:"email,omitempty"`
	Source      string     `json:"source,omitempty"`
	CounselorID *uuid.UUID `json:"counselorId,omitempty"`
	Imported    bool       `json:"imported"`
}

func (e StudentCreated) EventName() string { return "students.student.created" }

// LeadScoreAdjusted is published after a counselor overwrites the manual
// score adjustment.
type LeadScoreAdjusted struct {
	BaseEvent
	StudentID  uuid.UUID `json:"studentId"`
	Points     int       `json:"points"`
	AdjustedBy uuid.UUID `json:"adjustedBy"`
}

func (e LeadScoreAdjusted) EventName() string { return "scoring.adjustment.updated" }

// =============================================================================
// Tasks Domain Events
// =============================================================================

// TaskCreated is published for every newly persisted follow-up task.
type TaskCreated struct {
	BaseEvent
	TaskID      uuid.UUID  `json:"taskId"`
	StudentID   uuid.UUID  `json:"studentId"`
	AssignedTo  *uuid.UUID `json:"assignedTo,omitempty"`
	Title       string     `json:"title"`
	Priority    string     `json:"priority"`
	TriggerType string     `json:"triggerType,omitempty"`
	DueDate     time.Time  `json:"dueDate"`
}

func (e TaskCreated) EventName() string { return "tasks.task.created" }

// =============================================================================
// Automation Domain Events
// =============================================================================

// AutomationRunFinished is published when a run leaves the running state.
type AutomationRunFinished struct {
	BaseEvent
	RunID        uuid.UUID  `json:"runId"`
	RuleID       *uuid.UUID `json:"ruleId,omitempty"`
	Trigger      string     `json:"trigger"`
	Status       string     `json:"status"`
	TasksCreated int        `json:"tasksCreated"`
	ErrorCount   int        `json:"errorCount"`
}

func (e AutomationRunFinished) EventName() string { return "automation.run.finished" }
