package transport

import (
	"time"

	"github.com/google/uuid"
)

type PresignUploadRequest struct {
	FileName    string `json:"fileName" validate:"required,notblank,max=255"`
	ContentType string `json:"contentType" validate:"required,max=100"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,min=1"`
}

type PresignUploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	FileKey   string `json:"fileKey"`
	ExpiresAt int64  `json:"expiresAt"`
}

type RegisterDocumentRequest struct {
	DocumentType string `json:"documentType" validate:"required,document_type"`
	FileKey      string `json:"fileKey" validate:"required,max=500"`
	FileName     string `json:"fileName" validate:"required,notblank,max=255"`
	ContentType  string `json:"contentType" validate:"required,max=100"`
	SizeBytes    int64  `json:"sizeBytes" validate:"required,min=1"`
}

type ReviewDocumentRequest struct {
	Status string  `json:"status" validate:"required,oneof=verified rejected"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type ListDocumentsRequest struct {
	Status string `form:"status" validate:"omitempty,oneof=pending verified rejected"`
}

type DocumentResponse struct {
	ID           uuid.UUID  `json:"id"`
	StudentID    uuid.UUID  `json:"studentId"`
	DocumentType string     `json:"documentType"`
	FileName     string     `json:"fileName"`
	FileKey      string     `json:"fileKey"`
	ContentType  string     `json:"contentType"`
	SizeBytes    int64      `json:"sizeBytes"`
	Status       string     `json:"status"`
	ReviewNotes  *string    `json:"reviewNotes,omitempty"`
	UploadedAt   time.Time  `json:"uploadedAt"`
	ReviewedAt   *time.Time `json:"reviewedAt,omitempty"`
}

type DownloadURLResponse struct {
	DownloadURL string `json:"downloadUrl"`
	ExpiresAt   int64  `json:"expiresAt"`
}
