package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/libinsight/backend/internal/domain/borrowing"
	"github.com/libinsight/backend/internal/infrastructure/persistence/models"
)

// recordBatchSize controls how many rows go into a single INSERT
const recordBatchSize = 500

// GormRecordRepository implements RecordRepository using GORM
type GormRecordRepository struct {
	db *gorm.DB
}

// NewGormRecordRepository creates a new GormRecordRepository
func NewGormRecordRepository(db *gorm.DB) *GormRecordRepository {
	return &GormRecordRepository{db: db}
}

// CreateBatch inserts records in batches within a single transaction.
// Either every record is persisted or none are.
func (r *GormRecordRepository) CreateBatch(ctx context.Context, records []*borrowing.Record) error {
	if len(records) == 0 {
		return nil
	}

	recordModels := make([]*models.RecordModel, len(records))
	for i, rec := range records {
		recordModels[i] = models.RecordModelFromDomain(rec)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(recordModels, recordBatchSize).Error
	})
}

// FindRecent returns the most recently uploaded records, newest first
func (r *GormRecordRepository) FindRecent(ctx context.Context, limit int) ([]*borrowing.Record, error) {
	if limit <= 0 {
		limit = 100
	}

	var recordModels []*models.RecordModel
	if err := r.db.WithContext(ctx).
		Order("uploaded_at DESC, created_at DESC").
		Limit(limit).
		Find(&recordModels).Error; err != nil {
		return nil, err
	}

	records := make([]*borrowing.Record, len(recordModels))
	for i, model := range recordModels {
		records[i] = model.ToDomain()
	}
	return records, nil
}

// FindByUploadID returns all records ingested from one upload
func (r *GormRecordRepository) FindByUploadID(ctx context.Context, uploadID uuid.UUID) ([]*borrowing.Record, error) {
	var recordModels []*models.RecordModel
	if err := r.db.WithContext(ctx).
		Where("upload_id = ?", uploadID).
		Order("created_at ASC").
		Find(&recordModels).Error; err != nil {
		return nil, err
	}

	records := make([]*borrowing.Record, len(recordModels))
	for i, model := range recordModels {
		records[i] = model.ToDomain()
	}
	return records, nil
}

// Count returns the total number of borrowing records
func (r *GormRecordRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.RecordModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormRecordRepository implements RecordRepository
var _ borrowing.RecordRepository = (*GormRecordRepository)(nil)
