package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"consultancy_backend/internal/events"
	"consultancy_backend/internal/tasks/repository"
	"consultancy_backend/internal/tasks/transport"
	"consultancy_backend/platform/apperr"
	"consultancy_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusDismissed = "dismissed"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Priorities is registered as the "task_priority" validation tag.
var Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Store is the persistence port used by the service.
type Store interface {
	Create(ctx context.Context, t repository.Task) (repository.Task, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Task, error)
	List(ctx context.Context, params repository.ListParams) ([]repository.Task, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string, at time.Time) (repository.Task, error)
}

// NewTask is what callers (automation actions) ask the service to create.
type NewTask struct {
	Title          string
	Description    string
	StudentID      uuid.UUID
	AssignedTo     *uuid.UUID
	Priority       string
	DueDate        time.Time
	TriggerType    string
	RuleID         *uuid.UUID
	IdempotencyKey string
}

// Service provides business logic for follow-up tasks.
type Service struct {
	repo     Store
	eventBus events.Bus
	now      func() time.Time
}

// New creates a new tasks service.
func New(repo Store, eventBus events.Bus) *Service {
	return &Service{repo: repo, eventBus: eventBus, now: time.Now}
}

// Create persists a task. created is false when a pending task with the same
// idempotency key already exists; that is not an error. The description may
// hold drafted email text and is kept as written; renderers escape it.
func (s *Service) Create(ctx context.Context, in NewTask) (task repository.Task, created bool, err error) {
	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	now := s.now()

	t := repository.Task{
		ID:          uuid.New(),
		Title:       sanitize.Text(in.Title),
		Description: strings.TrimSpace(in.Description),
		StudentID:   in.StudentID,
		AssignedTo:  in.AssignedTo,
		Status:      StatusPending,
		Priority:    priority,
		DueDate:     in.DueDate,
		RuleID:      in.RuleID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.TriggerType != "" {
		t.TriggerType = &in.TriggerType
	}
	if in.IdempotencyKey != "" {
		t.IdempotencyKey = &in.IdempotencyKey
	}

	stored, err := s.repo.Create(ctx, t)
	if errors.Is(err, repository.ErrDuplicatePending) {
		return repository.Task{}, false, nil
	}
	if err != nil {
		return repository.Task{}, false, err
	}

	s.eventBus.Publish(ctx, events.TaskCreated{
		BaseEvent:   events.NewBaseEvent(),
		TaskID:      stored.ID,
		StudentID:   stored.StudentID,
		AssignedTo:  stored.AssignedTo,
		Title:       stored.Title,
		Priority:    stored.Priority,
		TriggerType: in.TriggerType,
		DueDate:     stored.DueDate,
	})
	return stored, true, nil
}

// CreateManual creates a counselor-authored task. Without an explicit
// assignee the task goes to the caller.
func (s *Service) CreateManual(ctx context.Context, actorID uuid.UUID, req transport.CreateTaskRequest) (transport.TaskResponse, error) {
	assignee := req.AssignedTo
	if assignee == nil {
		assignee = &actorID
	}
	t, _, err := s.Create(ctx, NewTask{
		Title:       req.Title,
		Description: req.Description,
		StudentID:   req.StudentID,
		AssignedTo:  assignee,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		return transport.TaskResponse{}, err
	}
	return transport.TaskResponse(t), nil
}

// List returns tasks; Mine restricts to the caller's assignments.
func (s *Service) List(ctx context.Context, actorID uuid.UUID, req transport.ListTasksRequest) (transport.ListTasksResponse, error) {
	page, pageSize := req.Page, req.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	params := repository.ListParams{Status: req.Status, Limit: pageSize, Offset: (page - 1) * pageSize}
	if req.Mine {
		params.AssignedTo = &actorID
	} else if req.AssignedTo != "" {
		id, err := uuid.Parse(req.AssignedTo)
		if err != nil {
			return transport.ListTasksResponse{}, apperr.Validation("invalid assignedTo")
		}
		params.AssignedTo = &id
	}
	if req.StudentID != "" {
		id, err := uuid.Parse(req.StudentID)
		if err != nil {
			return transport.ListTasksResponse{}, apperr.Validation("invalid studentId")
		}
		params.StudentID = &id
	}

	items, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.ListTasksResponse{}, err
	}
	resp := make([]transport.TaskResponse, 0, len(items))
	for _, t := range items {
		resp = append(resp, transport.TaskResponse(t))
	}
	return transport.ListTasksResponse{Items: resp, Page: page, PageSize: pageSize}, nil
}

// ListPending returns every pending task; automation uses it to skip
// entities that already have an open follow-up.
func (s *Service) ListPending(ctx context.Context) ([]repository.Task, error) {
	return s.repo.List(ctx, repository.ListParams{Status: StatusPending})
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) (transport.TaskResponse, error) {
	return s.finish(ctx, id, StatusCompleted)
}

// Dismiss closes a task without completing it. The idempotency key becomes
// free again, so the trigger may fire on the next run.
func (s *Service) Dismiss(ctx context.Context, id uuid.UUID) (transport.TaskResponse, error) {
	return s.finish(ctx, id, StatusDismissed)
}

func (s *Service) finish(ctx context.Context, id uuid.UUID, status string) (transport.TaskResponse, error) {
	t, err := s.repo.SetStatus(ctx, id, status, s.now())
	if err != nil {
		return transport.TaskResponse{}, err
	}
	return transport.TaskResponse(t), nil
}
