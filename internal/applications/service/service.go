package service

import (
	"context"
	"fmt"
	"time"

	"consultancy_backend/internal/applications/repository"
	"consultancy_backend/internal/applications/transport"
	"consultancy_backend/platform/apperr"
	"consultancy_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Store is the persistence port used by the service.
type Store interface {
	CreateCourse(ctx context.Context, c repository.Course) (repository.Course, error)
	GetCourse(ctx context.Context, id uuid.UUID) (repository.Course, error)
	ListCourses(ctx context.Context, country string) ([]repository.Course, error)
	Create(ctx context.Context, a repository.Application) (repository.Application, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Application, error)
	List(ctx context.Context, params repository.ListParams) ([]repository.Application, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, submittedAt *time.Time) (repository.Application, error)
	UpdateMilestones(ctx context.Context, id uuid.UUID, milestones []repository.Milestone) (repository.Application, error)
}

// StudentChecker verifies the student exists before an application is filed.
type StudentChecker interface {
	StudentExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service provides business logic for courses and applications.
type Service struct {
	repo     Store
	students StudentChecker
	now      func() time.Time
}

// New creates a new applications service.
func New(repo Store, students StudentChecker) *Service {
	return &Service{repo: repo, students: students, now: time.Now}
}

func (s *Service) CreateCourse(ctx context.Context, req transport.CreateCourseRequest) (transport.CourseResponse, error) {
	created, err := s.repo.CreateCourse(ctx, repository.Course{
		ID:                  uuid.New(),
		UniversityName:      sanitize.Text(req.UniversityName),
		Name:                sanitize.Text(req.Name),
		Level:               sanitize.Text(req.Level),
		Country:             sanitize.Text(req.Country),
		ApplicationDeadline: req.ApplicationDeadline,
		CreatedAt:           s.now(),
	})
	if err != nil {
		return transport.CourseResponse{}, err
	}
	return transport.CourseResponse(created), nil
}

func (s *Service) ListCourses(ctx context.Context, req transport.ListCoursesRequest) ([]transport.CourseResponse, error) {
	items, err := s.repo.ListCourses(ctx, req.Country)
	if err != nil {
		return nil, err
	}
	resp := make([]transport.CourseResponse, 0, len(items))
	for _, c := range items {
		resp = append(resp, transport.CourseResponse(c))
	}
	return resp, nil
}

// Create files a draft application. The university name defaults to the
// course's university.
func (s *Service) Create(ctx context.Context, req transport.CreateApplicationRequest) (transport.ApplicationResponse, error) {
	exists, err := s.students.StudentExists(ctx, req.StudentID)
	if err != nil {
		return transport.ApplicationResponse{}, err
	}
	if !exists {
		return transport.ApplicationResponse{}, apperr.NotFound("student not found")
	}

	university := sanitize.Text(req.UniversityName)
	if req.CourseID != nil {
		course, err := s.repo.GetCourse(ctx, *req.CourseID)
		if err != nil {
			return transport.ApplicationResponse{}, err
		}
		if university == "" {
			university = course.UniversityName
		}
	}
	if university == "" {
		return transport.ApplicationResponse{}, apperr.Validation("universityName or courseId is required")
	}

	names := req.Milestones
	if len(names) == 0 {
		names = DefaultMilestones
	}
	milestones := make([]repository.Milestone, 0, len(names))
	for _, name := range names {
		milestones = append(milestones, repository.Milestone{Name: sanitize.Text(name)})
	}

	now := s.now()
	created, err := s.repo.Create(ctx, repository.Application{
		ID:             uuid.New(),
		StudentID:      req.StudentID,
		CourseID:       req.CourseID,
		UniversityName: university,
		Status:         StatusDraft,
		Milestones:     milestones,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return transport.ApplicationResponse{}, err
	}
	return mapApplication(created), nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.ApplicationResponse, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ApplicationResponse{}, err
	}
	return mapApplication(a), nil
}

func (s *Service) List(ctx context.Context, req transport.ListApplicationsRequest) ([]transport.ApplicationResponse, error) {
	params := repository.ListParams{Status: req.Status}
	if req.StudentID != "" {
		id, err := uuid.Parse(req.StudentID)
		if err != nil {
			return nil, apperr.Validation("invalid studentId")
		}
		params.StudentID = &id
	}

	items, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}
	resp := make([]transport.ApplicationResponse, 0, len(items))
	for _, a := range items {
		resp = append(resp, mapApplication(a))
	}
	return resp, nil
}

// UpdateStatus moves an application along the pipeline. Terminal statuses
// reject every transition.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, req transport.UpdateStatusRequest) (transport.ApplicationResponse, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ApplicationResponse{}, err
	}
	if current.Status == req.Status {
		return mapApplication(current), nil
	}
	if IsTerminal(current.Status) {
		return transport.ApplicationResponse{}, apperr.Conflict(fmt.Sprintf("application is %s and can no longer change", current.Status))
	}
	if !CanTransition(current.Status, req.Status) {
		return transport.ApplicationResponse{}, apperr.Validation(fmt.Sprintf("cannot move application from %s to %s", current.Status, req.Status))
	}

	var submittedAt *time.Time
	if req.Status == StatusSubmittedToUniversity {
		now := s.now()
		submittedAt = &now
	}

	updated, err := s.repo.UpdateStatus(ctx, id, req.Status, submittedAt)
	if err != nil {
		return transport.ApplicationResponse{}, err
	}
	return mapApplication(updated), nil
}

// CompleteMilestone marks a milestone done; completing it twice keeps the
// first completion time.
func (s *Service) CompleteMilestone(ctx context.Context, id uuid.UUID, req transport.CompleteMilestoneRequest) (transport.ApplicationResponse, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ApplicationResponse{}, err
	}

	name := sanitize.Text(req.Name)
	found := false
	for i := range current.Milestones {
		if current.Milestones[i].Name != name {
			continue
		}
		found = true
		if !current.Milestones[i].Completed {
			now := s.now()
			current.Milestones[i].Completed = true
			current.Milestones[i].CompletedAt = &now
		}
	}
	if !found {
		return transport.ApplicationResponse{}, apperr.NotFound("milestone not found")
	}

	updated, err := s.repo.UpdateMilestones(ctx, id, current.Milestones)
	if err != nil {
		return transport.ApplicationResponse{}, err
	}
	return mapApplication(updated), nil
}

func mapApplication(a repository.Application) transport.ApplicationResponse {
	milestones := make([]transport.Milestone, 0, len(a.Milestones))
	for _, m := range a.Milestones {
		milestones = append(milestones, transport.Milestone(m))
	}
	return transport.ApplicationResponse{
		ID:             a.ID,
		StudentID:      a.StudentID,
		CourseID:       a.CourseID,
		CourseName:     a.CourseName,
		CourseDeadline: a.CourseDeadline,
		UniversityName: a.UniversityName,
		Status:         a.Status,
		Milestones:     milestones,
		SubmittedAt:    a.SubmittedAt,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}
