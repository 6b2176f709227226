package borrowing

import (
	"context"

	"github.com/google/uuid"
)

// RecordRepository defines the interface for borrowing record persistence
type RecordRepository interface {
	// CreateBatch inserts a batch of records atomically
	CreateBatch(ctx context.Context, records []*Record) error

	// FindRecent returns the latest records ordered by upload time descending
	FindRecent(ctx context.Context, limit int) ([]*Record, error)

	// FindByUploadID returns all records belonging to an upload
	FindByUploadID(ctx context.Context, uploadID uuid.UUID) ([]*Record, error)

	// Count returns the total number of records
	Count(ctx context.Context) (int64, error)
}

// UploadSort controls ordering of upload listings. Empty fields fall
// back to uploaded_at descending.
type UploadSort struct {
	Field string
	Order string
}

// UploadRepository defines the interface for upload history persistence
type UploadRepository interface {
	// Create persists a new upload
	Create(ctx context.Context, upload *Upload) error

	// Update persists changes to an existing upload
	Update(ctx context.Context, upload *Upload) error

	// FindByID finds an upload by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Upload, error)

	// FindByUser returns uploads made by a user ordered per sort
	FindByUser(ctx context.Context, userID uuid.UUID, sort UploadSort) ([]*Upload, error)
}
