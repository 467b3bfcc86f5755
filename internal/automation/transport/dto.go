package transport

import (
	"time"

	"github.com/google/uuid"
)

type Conditions struct {
	DaysThreshold int  `json:"daysThreshold,omitempty" validate:"omitempty,min=1,max=365"`
	MinScore      *int `json:"minScore,omitempty" validate:"omitempty,min=0,max=200"`
}

type Action struct {
	ActionType     string `json:"actionType" validate:"required,action_type"`
	ExecutionOrder int    `json:"executionOrder" validate:"min=0,max=100"`
	Parallel       bool   `json:"parallel"`
}

type CreateRuleRequest struct {
	Name        string     `json:"name" validate:"required,notblank,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	TriggerType string     `json:"triggerType" validate:"required,trigger_type"`
	Conditions  Conditions `json:"triggerConditions"`
	Actions     []Action   `json:"actions" validate:"max=10,dive"`
	IsActive    *bool      `json:"isActive,omitempty"`
}

type UpdateRuleRequest struct {
	Name        *string     `json:"name,omitempty" validate:"omitempty,notblank,max=200"`
	Description *string     `json:"description,omitempty" validate:"omitempty,max=2000"`
	TriggerType *string     `json:"triggerType,omitempty" validate:"omitempty,trigger_type"`
	Conditions  *Conditions `json:"triggerConditions,omitempty"`
	Actions     *[]Action   `json:"actions,omitempty" validate:"omitempty,max=10,dive"`
	IsActive    *bool       `json:"isActive,omitempty"`
}

type RuleResponse struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	TriggerType    string     `json:"triggerType"`
	Conditions     Conditions `json:"triggerConditions"`
	Actions        []Action   `json:"actions"`
	IsActive       bool       `json:"isActive"`
	ExecutionCount int        `json:"executionCount"`
	LastRun        *time.Time `json:"lastRun,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type RunResponse struct {
	ID           uuid.UUID  `json:"id"`
	RuleID       *uuid.UUID `json:"ruleId,omitempty"`
	Trigger      string     `json:"trigger"`
	Status       string     `json:"status"`
	TasksCreated int        `json:"tasksCreated"`
	Errors       []string   `json:"errors"`
	StartedAt    time.Time  `json:"startedAt"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
}

type ListRunsRequest struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=200"`
}
