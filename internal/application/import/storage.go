package importapp

import (
	"context"
	"time"
)

// ObjectStorageService abstracts the object storage backend used to
// archive raw CSV uploads. Implemented by the S3 adapter in
// infrastructure/storage.
type ObjectStorageService interface {
	// Upload stores data under storageKey
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error

	// GenerateDownloadURL returns a presigned URL for retrieving an
	// archived file, along with its expiry time
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)

	// DeleteObject removes an archived file
	DeleteObject(ctx context.Context, storageKey string) error

	// ObjectExists checks whether an archived file is present
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}
