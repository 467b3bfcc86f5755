package adapters

import (
	"context"

	automation "consultancy_backend/internal/automation/service"
	tasks "consultancy_backend/internal/tasks/service"
)

// AutomationTaskCreator lets automation create follow-up tasks through the
// tasks service.
type AutomationTaskCreator struct {
	svc *tasks.Service
}

func NewAutomationTaskCreator(svc *tasks.Service) *AutomationTaskCreator {
	return &AutomationTaskCreator{svc: svc}
}

func (a *AutomationTaskCreator) CreateTask(ctx context.Context, t automation.NewTask) (bool, error) {
	ruleID := t.RuleID
	_, created, err := a.svc.Create(ctx, tasks.NewTask{
		Title:          t.Title,
		Description:    t.Description,
		StudentID:      t.StudentID,
		AssignedTo:     t.AssignedTo,
		Priority:       t.Priority,
		DueDate:        t.DueDate,
		TriggerType:    t.TriggerType,
		RuleID:         &ruleID,
		IdempotencyKey: t.IdempotencyKey,
	})
	return created, err
}

var _ automation.TaskCreator = (*AutomationTaskCreator)(nil)
