package borrowing

import (
	"github.com/libinsight/backend/internal/domain/shared"
)

// Aggregate type constant for Upload
const AggregateTypeUpload = "Upload"

// Upload domain event types
const (
	EventTypeUploadCompleted = "UploadCompleted"
)

// UploadCompletedEvent is published when a CSV upload finishes importing
type UploadCompletedEvent struct {
	shared.BaseDomainEvent
	FileName     string `json:"file_name"`
	TotalRows    int    `json:"total_rows"`
	ImportedRows int    `json:"imported_rows"`
	SkippedRows  int    `json:"skipped_rows"`
	ErrorRows    int    `json:"error_rows"`
}

// NewUploadCompletedEvent creates a new UploadCompletedEvent
func NewUploadCompletedEvent(upload *Upload) *UploadCompletedEvent {
	return &UploadCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUploadCompleted, AggregateTypeUpload, upload.ID),
		FileName:        upload.FileName,
		TotalRows:       upload.TotalRows,
		ImportedRows:    upload.ImportedRows,
		SkippedRows:     upload.SkippedRows,
		ErrorRows:       upload.ErrorRows,
	}
}
