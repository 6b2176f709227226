package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/libinsight/backend/internal/domain/borrowing"
	"github.com/libinsight/backend/internal/domain/shared"
)

// RecordModel is the persistence model for the borrowing Record aggregate.
type RecordModel struct {
	AggregateModel
	Title      string    `gorm:"type:varchar(500);index"`
	Department string    `gorm:"type:varchar(200);index"`
	Genre      string    `gorm:"type:varchar(100);index"`
	Count      int       `gorm:"not null;default:0"`
	BorrowDate time.Time `gorm:"not null;index"`
	UploadID   uuid.UUID `gorm:"type:uuid;not null;index"`
	UploadedBy uuid.UUID `gorm:"type:uuid;not null;index"`
	UploadedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RecordModel) TableName() string {
	return "borrow_records"
}

// ToDomain converts the persistence model to a domain Record.
func (m *RecordModel) ToDomain() *borrowing.Record {
	return &borrowing.Record{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		Title:      m.Title,
		Department: m.Department,
		Genre:      m.Genre,
		Count:      m.Count,
		BorrowDate: m.BorrowDate,
		UploadID:   m.UploadID,
		UploadedBy: m.UploadedBy,
		UploadedAt: m.UploadedAt,
	}
}

// FromDomain populates the persistence model from a domain Record.
func (m *RecordModel) FromDomain(r *borrowing.Record) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.Title = r.Title
	m.Department = r.Department
	m.Genre = r.Genre
	m.Count = r.Count
	m.BorrowDate = r.BorrowDate
	m.UploadID = r.UploadID
	m.UploadedBy = r.UploadedBy
	m.UploadedAt = r.UploadedAt
}

// RecordModelFromDomain creates a new persistence model from a domain Record.
func RecordModelFromDomain(r *borrowing.Record) *RecordModel {
	m := &RecordModel{}
	m.FromDomain(r)
	return m
}

// UploadModel is the persistence model for the borrowing Upload aggregate.
type UploadModel struct {
	AggregateModel
	FileName     string                 `gorm:"type:varchar(255);not null"`
	StorageKey   string                 `gorm:"type:varchar(500)"`
	TotalRows    int                    `gorm:"not null;default:0"`
	ImportedRows int                    `gorm:"not null;default:0"`
	SkippedRows  int                    `gorm:"not null;default:0"`
	ErrorRows    int                    `gorm:"not null;default:0"`
	Status       borrowing.UploadStatus `gorm:"type:varchar(20);not null;default:'completed'"`
	UploadedBy   uuid.UUID              `gorm:"type:uuid;not null;index"`
	UploadedAt   time.Time              `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (UploadModel) TableName() string {
	return "uploads"
}

// ToDomain converts the persistence model to a domain Upload.
func (m *UploadModel) ToDomain() *borrowing.Upload {
	return &borrowing.Upload{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		FileName:     m.FileName,
		StorageKey:   m.StorageKey,
		TotalRows:    m.TotalRows,
		ImportedRows: m.ImportedRows,
		SkippedRows:  m.SkippedRows,
		ErrorRows:    m.ErrorRows,
		Status:       m.Status,
		UploadedBy:   m.UploadedBy,
		UploadedAt:   m.UploadedAt,
	}
}

// FromDomain populates the persistence model from a domain Upload.
func (m *UploadModel) FromDomain(u *borrowing.Upload) {
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	m.FileName = u.FileName
	m.StorageKey = u.StorageKey
	m.TotalRows = u.TotalRows
	m.ImportedRows = u.ImportedRows
	m.SkippedRows = u.SkippedRows
	m.ErrorRows = u.ErrorRows
	m.Status = u.Status
	m.UploadedBy = u.UploadedBy
	m.UploadedAt = u.UploadedAt
}

// UploadModelFromDomain creates a new persistence model from a domain Upload.
func UploadModelFromDomain(u *borrowing.Upload) *UploadModel {
	m := &UploadModel{}
	m.FromDomain(u)
	return m
}
