package storage

import (
	"context"
	"errors"
	"io"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader abstracts object storage so services never see SDK types.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// ErrUploadsDisabled is returned when no object storage is configured.
var ErrUploadsDisabled = errors.New("file uploads are not configured")

type disabledUploader struct{}

// NewDisabledUploader satisfies FileUploader for deployments without R2
// credentials. Every upload attempt fails with ErrUploadsDisabled.
func NewDisabledUploader() FileUploader {
	return disabledUploader{}
}

func (disabledUploader) Upload(ctx context.Context, key, contentType string, reader io.Reader) (*UploadResult, error) {
	return nil, ErrUploadsDisabled
}

func (disabledUploader) Delete(ctx context.Context, key string) error {
	return ErrUploadsDisabled
}

func (disabledUploader) GetPublicURL(key string) string { return "" }
