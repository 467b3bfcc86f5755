// Package storage provides presigned access to S3-compatible object storage
// for student documents (passports, transcripts, test certificates).
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrDisabled is returned by the disabled store when MinIO is not configured.
var ErrDisabled = errors.New("object storage is not configured")

// PresignedURL contains the URL and metadata for a presigned upload/download operation.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ObjectInfo describes an uploaded object.
type ObjectInfo struct {
	Key         string
	SizeBytes   int64
	ContentType string
}

// StorageService defines the object storage operations used by the documents module.
type StorageService interface {
	// GenerateUploadURL validates the file and returns a presigned PUT URL
	// under folder with a collision-free key.
	GenerateUploadURL(ctx context.Context, bucket, folder, fileName, contentType string, sizeBytes int64) (*PresignedURL, error)
	// GenerateDownloadURL returns a presigned GET URL.
	GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*PresignedURL, error)
	// StatObject confirms that an upload actually landed.
	StatObject(ctx context.Context, bucket, fileKey string) (ObjectInfo, error)
	// DeleteObject removes an object from storage.
	DeleteObject(ctx context.Context, bucket, fileKey string) error
	// EnsureBucketExists creates the bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context, bucket string) error
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	IsMinIOEnabled() bool
}

// Disabled is used when MinIO is not configured; every call fails with
// ErrDisabled.
type Disabled struct{}

func (Disabled) GenerateUploadURL(context.Context, string, string, string, string, int64) (*PresignedURL, error) {
	return nil, ErrDisabled
}

func (Disabled) GenerateDownloadURL(context.Context, string, string) (*PresignedURL, error) {
	return nil, ErrDisabled
}

func (Disabled) StatObject(context.Context, string, string) (ObjectInfo, error) {
	return ObjectInfo{}, ErrDisabled
}

func (Disabled) DeleteObject(context.Context, string, string) error { return ErrDisabled }

func (Disabled) EnsureBucketExists(context.Context, string) error { return nil }

var (
	_ StorageService = (*MinIOService)(nil)
	_ StorageService = Disabled{}
)
