// Package notification provides event handlers for sending notifications
// in response to domain events.
// This module subscribes to events and inverts the dependency: domain modules
// no longer need to know about email providers or templates.
package notification

import (
	"context"
	"fmt"

	"consultancy_backend/internal/auth"
	"consultancy_backend/internal/email"
	"consultancy_backend/internal/events"
	"consultancy_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	priorityUrgent  = "urgent"
	runStatusFailed = "failed"
	dueDateLayout   = "2 Jan 2006 15:04"
)

// StudentNameReader resolves a student's display name.
type StudentNameReader interface {
	StudentName(ctx context.Context, id uuid.UUID) (string, error)
}

// Module handles all notification-related event subscriptions.
type Module struct {
	sender   email.Sender
	users    auth.UserProvider
	students StudentNameReader
	log      *logger.Logger
}

func New(sender email.Sender, users auth.UserProvider, students StudentNameReader, log *logger.Logger) *Module {
	return &Module{sender: sender, users: users, students: students, log: log}
}

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.TaskCreated{}.EventName(), m)
	bus.Subscribe(events.AutomationRunFinished{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.TaskCreated:
		return m.handleTaskCreated(ctx, e)
	case events.AutomationRunFinished:
		return m.handleAutomationRunFinished(ctx, e)
	default:
		return nil
	}
}

// handleTaskCreated emails the assignee of an urgent manual task. Automation
// tasks are announced by the rule's notify_counselor action instead.
func (m *Module) handleTaskCreated(ctx context.Context, e events.TaskCreated) error {
	if e.Priority != priorityUrgent || e.TriggerType != "" || e.AssignedTo == nil {
		return nil
	}

	counselor, err := m.users.GetUserByID(ctx, *e.AssignedTo)
	if err != nil {
		return fmt.Errorf("resolve assignee for task %s: %w", e.TaskID, err)
	}
	if !counselor.IsActive || counselor.Email == "" {
		return nil
	}

	studentName, err := m.students.StudentName(ctx, e.StudentID)
	if err != nil {
		m.log.WithContext(ctx).Warn("student name unavailable for task notice", "taskId", e.TaskID, "error", err)
	}

	if err := m.sender.SendTaskAssignedEmail(ctx, counselor.Email, email.TaskNotice{
		CounselorName: counselor.FullName,
		StudentName:   studentName,
		Title:         e.Title,
		Priority:      e.Priority,
		DueDate:       e.DueDate.Format(dueDateLayout),
	}); err != nil {
		return fmt.Errorf("send task notice %s: %w", e.TaskID, err)
	}

	m.log.WithContext(ctx).Info("urgent task notice sent", "taskId", e.TaskID, "assignedTo", counselor.ID)
	return nil
}

func (m *Module) handleAutomationRunFinished(ctx context.Context, e events.AutomationRunFinished) error {
	if e.Status != runStatusFailed {
		return nil
	}
	m.log.WithContext(ctx).Warn("automation run failed",
		"runId", e.RunID,
		"trigger", e.Trigger,
		"tasksCreated", e.TasksCreated,
		"errorCount", e.ErrorCount,
	)
	return nil
}
