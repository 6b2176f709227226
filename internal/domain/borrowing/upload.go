package borrowing

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/libinsight/backend/internal/domain/shared"
)

// UploadStatus represents the outcome of a CSV upload
type UploadStatus string

const (
	UploadStatusCompleted UploadStatus = "completed"
	UploadStatusFailed    UploadStatus = "failed"
)

// Upload represents one CSV file ingested into the system, together
// with its row counters. The raw file is archived in object storage
// under StorageKey.
type Upload struct {
	shared.BaseAggregateRoot
	FileName     string
	StorageKey   string
	TotalRows    int
	ImportedRows int
	SkippedRows  int
	ErrorRows    int
	Status       UploadStatus
	UploadedBy   uuid.UUID
	UploadedAt   time.Time
}

// NewUpload creates an upload in progress for the given file
func NewUpload(fileName string, uploadedBy uuid.UUID) (*Upload, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name cannot be empty")
	}
	if len(fileName) > 255 {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name cannot exceed 255 characters")
	}
	if uploadedBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER_ID", "Uploader is required")
	}

	return &Upload{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		FileName:          fileName,
		Status:            UploadStatusCompleted,
		UploadedBy:        uploadedBy,
		UploadedAt:        time.Now(),
	}, nil
}

// SetStorageKey records the object storage key of the archived raw file
func (u *Upload) SetStorageKey(key string) {
	u.StorageKey = key
	u.UpdatedAt = time.Now()
}

// Complete records the final row counters of a successful import
func (u *Upload) Complete(totalRows, importedRows, skippedRows, errorRows int) {
	u.TotalRows = totalRows
	u.ImportedRows = importedRows
	u.SkippedRows = skippedRows
	u.ErrorRows = errorRows
	u.Status = UploadStatusCompleted
	u.UpdatedAt = time.Now()
	u.IncrementVersion()

	u.AddDomainEvent(NewUploadCompletedEvent(u))
}

// Fail marks the upload as failed; no records were written
func (u *Upload) Fail(totalRows, errorRows int) {
	u.TotalRows = totalRows
	u.ImportedRows = 0
	u.SkippedRows = 0
	u.ErrorRows = errorRows
	u.Status = UploadStatusFailed
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
}

// IsCompleted returns true if the upload imported records
func (u *Upload) IsCompleted() bool {
	return u.Status == UploadStatusCompleted
}
