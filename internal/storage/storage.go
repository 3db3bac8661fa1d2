package storage

import (
	"context"
	"errors"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

var ErrObjectNotFound = errors.New("object not found in storage")

// ArchiveStore is the object storage used for purged assignment archives.
type ArchiveStore interface {
	// PutObject writes body under objectKey, replacing any previous object.
	PutObject(ctx context.Context, objectKey string, body []byte, contentType string) error

	// GetObject reads an object back. ErrObjectNotFound when the key is absent.
	GetObject(ctx context.Context, objectKey string) ([]byte, error)

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for downloading an archive directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	DeleteObject(ctx context.Context, objectKey string) error
}
