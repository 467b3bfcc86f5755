package service

import (
	"context"
	"strings"

	"consultancy_backend/internal/students/transport"
	"consultancy_backend/platform/apperr"
)

const (
	reasonMissingEmail   = "email is required for import"
	reasonDuplicateEmail = "a student with this email already exists"
	reasonDuplicateBatch = "email appears earlier in this import"
)

// Import creates students from a batch. Each record is validated on its own
// and the batch continues past failures. Every record that is not imported is
// counted as skipped with its reason, so imported + skipped covers the batch.
func (s *Service) Import(ctx context.Context, req transport.ImportStudentsRequest) (transport.ImportStudentsResponse, error) {
	result := transport.ImportStudentsResponse{Errors: make([]transport.ImportError, 0)}
	seen := make(map[string]struct{}, len(req.Students))
	skip := func(i int, email, reason string) {
		result.Skipped++
		result.Errors = append(result.Errors, transport.ImportError{Index: i, Email: email, Reason: reason})
	}

	for i, record := range req.Students {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		email := strings.ToLower(strings.TrimSpace(record.Email))
		if email == "" {
			skip(i, "", reasonMissingEmail)
			continue
		}
		if _, dup := seen[email]; dup {
			skip(i, email, reasonDuplicateBatch)
			continue
		}
		seen[email] = struct{}{}

		if err := s.val.Struct(record); err != nil {
			skip(i, email, err.Error())
			continue
		}

		if _, err := s.repo.FindByEmail(ctx, email); err == nil {
			skip(i, email, reasonDuplicateEmail)
			continue
		} else if !apperr.Is(err, apperr.KindNotFound) {
			skip(i, email, err.Error())
			continue
		}

		student, err := s.buildStudent(record)
		if err != nil {
			skip(i, email, err.Error())
			continue
		}

		created, err := s.repo.Create(ctx, student)
		if err != nil {
			reason := err.Error()
			if apperr.Is(err, apperr.KindConflict) {
				reason = reasonDuplicateEmail
			}
			skip(i, email, reason)
			continue
		}

		result.Imported++
		s.publishCreated(ctx, created, true)
	}

	return result, nil
}
