package storage

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFile wraps content-type and size rejections.
var ErrInvalidFile = errors.New("invalid file")

// AllowedContentTypes lists the MIME types accepted for student documents.
var AllowedContentTypes = map[string]bool{
	"application/pdf":                                                         true,
	"image/jpeg":                                                              true,
	"image/png":                                                               true,
	"image/webp":                                                              true,
	"image/heic":                                                              true,
	"application/msword":                                                      true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// ValidateContentType checks if the content type is allowed.
func ValidateContentType(contentType string) error {
	normalized := strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
	if !AllowedContentTypes[normalized] {
		return fmt.Errorf("%w: content type %q is not allowed", ErrInvalidFile, contentType)
	}
	return nil
}

// ValidateFileSize checks 0 < size <= max. A non-positive max disables the
// upper bound.
func ValidateFileSize(sizeBytes, maxBytes int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("%w: file size must be greater than 0", ErrInvalidFile)
	}
	if maxBytes > 0 && sizeBytes > maxBytes {
		return fmt.Errorf("%w: file size %d bytes exceeds maximum allowed size of %d bytes", ErrInvalidFile, sizeBytes, maxBytes)
	}
	return nil
}
