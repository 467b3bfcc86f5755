package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateCourseRequest struct {
	UniversityName      string     `json:"universityName" validate:"required,notblank,max=200"`
	Name                string     `json:"name" validate:"required,notblank,max=200"`
	Level               string     `json:"level" validate:"omitempty,max=100"`
	Country             string     `json:"country" validate:"omitempty,max=100"`
	ApplicationDeadline *time.Time `json:"applicationDeadline,omitempty"`
}

type CourseResponse struct {
	ID                  uuid.UUID  `json:"id"`
	UniversityName      string     `json:"universityName"`
	Name                string     `json:"name"`
	Level               string     `json:"level"`
	Country             string     `json:"country"`
	ApplicationDeadline *time.Time `json:"applicationDeadline,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
}

type ListCoursesRequest struct {
	Country string `form:"country" validate:"omitempty,max=100"`
}

type CreateApplicationRequest struct {
	StudentID      uuid.UUID  `json:"studentId" validate:"required"`
	CourseID       *uuid.UUID `json:"courseId,omitempty"`
	UniversityName string     `json:"universityName,omitempty" validate:"omitempty,max=200"`
	Milestones     []string   `json:"milestones,omitempty" validate:"omitempty,max=20,dive,notblank,max=100"`
}

type Milestone struct {
	Name        string     `json:"name"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type ApplicationResponse struct {
	ID             uuid.UUID   `json:"id"`
	StudentID      uuid.UUID   `json:"studentId"`
	CourseID       *uuid.UUID  `json:"courseId,omitempty"`
	CourseName     *string     `json:"courseName,omitempty"`
	CourseDeadline *time.Time  `json:"courseDeadline,omitempty"`
	UniversityName string      `json:"universityName"`
	Status         string      `json:"status"`
	Milestones     []Milestone `json:"milestones"`
	SubmittedAt    *time.Time  `json:"submittedAt,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

type ListApplicationsRequest struct {
	StudentID string `form:"studentId" validate:"omitempty,uuid"`
	Status    string `form:"status" validate:"omitempty,application_status"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,application_status"`
}

type CompleteMilestoneRequest struct {
	Name string `json:"name" validate:"required,notblank,max=100"`
}
