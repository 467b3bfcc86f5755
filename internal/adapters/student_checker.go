package adapters

import (
	"context"

	studentsrepo "consultancy_backend/internal/students/repository"
	"consultancy_backend/platform/apperr"

	"github.com/google/uuid"
)

// StudentChecker lets applications, documents and notifications look up
// students without depending on the students service.
type StudentChecker struct {
	repo *studentsrepo.Repository
}

func NewStudentChecker(repo *studentsrepo.Repository) *StudentChecker {
	return &StudentChecker{repo: repo}
}

func (c *StudentChecker) StudentExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := c.repo.GetByID(ctx, id)
	if err == nil {
		return true, nil
	}
	if apperr.Is(err, apperr.KindNotFound) {
		return false, nil
	}
	return false, err
}

// StudentName returns the student's display name.
func (c *StudentChecker) StudentName(ctx context.Context, id uuid.UUID) (string, error) {
	s, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return s.FullName(), nil
}
