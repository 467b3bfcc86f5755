package transport

import (
	"time"

	"github.com/google/uuid"
)

type ListTasksRequest struct {
	Status     string `form:"status" validate:"omitempty,oneof=pending completed dismissed"`
	AssignedTo string `form:"assignedTo" validate:"omitempty,uuid"`
	StudentID  string `form:"studentId" validate:"omitempty,uuid"`
	Mine       bool   `form:"mine"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	PageSize   int    `form:"pageSize" validate:"omitempty,min=1,max=200"`
}

type TaskResponse struct {
	ID             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	StudentID      uuid.UUID  `json:"studentId"`
	AssignedTo     *uuid.UUID `json:"assignedTo,omitempty"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	DueDate        time.Time  `json:"dueDate"`
	TriggerType    *string    `json:"triggerType,omitempty"`
	RuleID         *uuid.UUID `json:"ruleId,omitempty"`
	IdempotencyKey *string    `json:"idempotencyKey,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

type ListTasksResponse struct {
	Items    []TaskResponse `json:"items"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

type CreateTaskRequest struct {
	Title       string     `json:"title" validate:"required,notblank,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	StudentID   uuid.UUID  `json:"studentId" validate:"required"`
	AssignedTo  *uuid.UUID `json:"assignedTo,omitempty"`
	Priority    string     `json:"priority,omitempty" validate:"omitempty,task_priority"`
	DueDate     time.Time  `json:"dueDate" validate:"required"`
}
