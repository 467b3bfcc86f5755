package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"consultancy_backend/internal/adapters/storage"
	"consultancy_backend/internal/documents/repository"
	"consultancy_backend/internal/documents/transport"
	"consultancy_backend/platform/apperr"
	"consultancy_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	StatusPending  = "pending"
	StatusVerified = "verified"
	StatusRejected = "rejected"
)

// DocumentTypes is registered as the "document_type" validation tag.
var DocumentTypes = []string{
	"passport",
	"transcript",
	"degree_certificate",
	"english_test",
	"personal_statement",
	"recommendation_letter",
	"cv",
	"financial_statement",
	"other",
}

// Store is the persistence port used by the service.
type Store interface {
	Create(ctx context.Context, d repository.Document) (repository.Document, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Document, error)
	List(ctx context.Context, studentID *uuid.UUID, status string) ([]repository.Document, error)
	Review(ctx context.Context, id uuid.UUID, status string, notes *string, reviewedAt time.Time) (repository.Document, error)
}

// StudentChecker verifies the owning student exists.
type StudentChecker interface {
	StudentExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service provides business logic for student documents.
type Service struct {
	repo     Store
	students StudentChecker
	storage  storage.StorageService
	bucket   string
	now      func() time.Time
}

// New creates a new documents service.
func New(repo Store, students StudentChecker, storageSvc storage.StorageService, bucket string) *Service {
	return &Service{repo: repo, students: students, storage: storageSvc, bucket: bucket, now: time.Now}
}

// PresignUpload returns a short-lived PUT URL scoped to the student's folder.
func (s *Service) PresignUpload(ctx context.Context, studentID uuid.UUID, req transport.PresignUploadRequest) (transport.PresignUploadResponse, error) {
	if err := s.ensureStudent(ctx, studentID); err != nil {
		return transport.PresignUploadResponse{}, err
	}

	presigned, err := s.storage.GenerateUploadURL(ctx, s.bucket, studentFolder(studentID), req.FileName, req.ContentType, req.SizeBytes)
	if err != nil {
		return transport.PresignUploadResponse{}, storageError(err)
	}

	return transport.PresignUploadResponse{
		UploadURL: presigned.URL,
		FileKey:   presigned.FileKey,
		ExpiresAt: presigned.ExpiresAt.Unix(),
	}, nil
}

// Register records an uploaded file as a pending document after checking
// the key belongs to the student and the object exists.
func (s *Service) Register(ctx context.Context, studentID uuid.UUID, req transport.RegisterDocumentRequest) (transport.DocumentResponse, error) {
	if err := s.ensureStudent(ctx, studentID); err != nil {
		return transport.DocumentResponse{}, err
	}
	if !strings.HasPrefix(req.FileKey, studentFolder(studentID)+"/") {
		return transport.DocumentResponse{}, apperr.Validation("fileKey does not belong to this student")
	}
	if _, err := s.storage.StatObject(ctx, s.bucket, req.FileKey); err != nil {
		return transport.DocumentResponse{}, storageError(err)
	}

	created, err := s.repo.Create(ctx, repository.Document{
		ID:           uuid.New(),
		StudentID:    studentID,
		DocumentType: req.DocumentType,
		FileName:     sanitize.Text(req.FileName),
		FileKey:      req.FileKey,
		ContentType:  strings.TrimSpace(req.ContentType),
		SizeBytes:    req.SizeBytes,
		Status:       StatusPending,
		UploadedAt:   s.now(),
	})
	if err != nil {
		return transport.DocumentResponse{}, err
	}
	return transport.DocumentResponse(created), nil
}

func (s *Service) List(ctx context.Context, studentID uuid.UUID, req transport.ListDocumentsRequest) ([]transport.DocumentResponse, error) {
	items, err := s.repo.List(ctx, &studentID, req.Status)
	if err != nil {
		return nil, err
	}
	resp := make([]transport.DocumentResponse, 0, len(items))
	for _, d := range items {
		resp = append(resp, transport.DocumentResponse(d))
	}
	return resp, nil
}

// Review verifies or rejects a pending document. Reviewed documents are final.
func (s *Service) Review(ctx context.Context, id uuid.UUID, req transport.ReviewDocumentRequest) (transport.DocumentResponse, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.DocumentResponse{}, err
	}
	if current.Status != StatusPending {
		return transport.DocumentResponse{}, apperr.Conflict("document has already been reviewed")
	}
	if req.Status == StatusRejected && sanitize.OptionalText(req.Notes) == nil {
		return transport.DocumentResponse{}, apperr.Validation("notes are required when rejecting a document")
	}

	updated, err := s.repo.Review(ctx, id, req.Status, sanitize.OptionalText(req.Notes), s.now())
	if err != nil {
		return transport.DocumentResponse{}, err
	}
	return transport.DocumentResponse(updated), nil
}

func (s *Service) DownloadURL(ctx context.Context, id uuid.UUID) (transport.DownloadURLResponse, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.DownloadURLResponse{}, err
	}
	presigned, err := s.storage.GenerateDownloadURL(ctx, s.bucket, doc.FileKey)
	if err != nil {
		return transport.DownloadURLResponse{}, storageError(err)
	}
	return transport.DownloadURLResponse{DownloadURL: presigned.URL, ExpiresAt: presigned.ExpiresAt.Unix()}, nil
}

func (s *Service) ensureStudent(ctx context.Context, studentID uuid.UUID) error {
	exists, err := s.students.StudentExists(ctx, studentID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("student not found")
	}
	return nil
}

func studentFolder(studentID uuid.UUID) string {
	return "students/" + studentID.String()
}

// storageError maps the disabled store to 502 and validation failures
// (content type, size) to 400.
func storageError(err error) error {
	if errors.Is(err, storage.ErrDisabled) {
		return apperr.Unavailable("document storage is unavailable", err)
	}
	if errors.Is(err, storage.ErrInvalidFile) {
		return apperr.Validation(err.Error())
	}
	return apperr.Unavailable("document storage request failed", err)
}
