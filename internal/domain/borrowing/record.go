package borrowing

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/libinsight/backend/internal/domain/shared"
)

// BorrowDateFormat is the expected date layout in uploaded files
const BorrowDateFormat = "2006-01-02"

// Record represents a single borrowing record ingested from an upload.
// It is the aggregate root for record-related operations.
type Record struct {
	shared.BaseAggregateRoot
	Title      string
	Department string
	Genre      string
	Count      int
	BorrowDate time.Time
	UploadID   uuid.UUID
	UploadedBy uuid.UUID
	UploadedAt time.Time
}

// NewRecord creates a borrowing record. Title, Department and Genre are
// optional and stored trimmed; Count must be non-negative and BorrowDate
// must be set.
func NewRecord(title, department, genre string, count int, borrowDate time.Time, uploadID, uploadedBy uuid.UUID) (*Record, error) {
	if count < 0 {
		return nil, shared.NewDomainError("INVALID_COUNT", "Borrow count cannot be negative")
	}
	if borrowDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_BORROW_DATE", "Borrow date is required")
	}

	title = strings.TrimSpace(title)
	if len(title) > 500 {
		return nil, shared.NewDomainError("INVALID_TITLE", "Title cannot exceed 500 characters")
	}

	return &Record{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Title:             title,
		Department:        strings.TrimSpace(department),
		Genre:             strings.TrimSpace(genre),
		Count:             count,
		BorrowDate:        borrowDate,
		UploadID:          uploadID,
		UploadedBy:        uploadedBy,
		UploadedAt:        time.Now(),
	}, nil
}

// Month returns the calendar month bucket of the borrow date as "YYYY-MM"
func (r *Record) Month() string {
	return r.BorrowDate.Format("2006-01")
}

// Year returns the calendar year of the borrow date
func (r *Record) Year() int {
	return r.BorrowDate.Year()
}
