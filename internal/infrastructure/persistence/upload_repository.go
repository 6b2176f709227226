package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/libinsight/backend/internal/domain/borrowing"
	"github.com/libinsight/backend/internal/domain/shared"
	"github.com/libinsight/backend/internal/infrastructure/persistence/models"
)

// GormUploadRepository implements UploadRepository using GORM
type GormUploadRepository struct {
	db *gorm.DB
}

// NewGormUploadRepository creates a new GormUploadRepository
func NewGormUploadRepository(db *gorm.DB) *GormUploadRepository {
	return &GormUploadRepository{db: db}
}

// Create persists a new upload
func (r *GormUploadRepository) Create(ctx context.Context, upload *borrowing.Upload) error {
	model := models.UploadModelFromDomain(upload)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update persists changes to an existing upload
func (r *GormUploadRepository) Update(ctx context.Context, upload *borrowing.Upload) error {
	model := models.UploadModelFromDomain(upload)
	result := r.db.WithContext(ctx).Save(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds an upload by ID
func (r *GormUploadRepository) FindByID(ctx context.Context, id uuid.UUID) (*borrowing.Upload, error) {
	var model models.UploadModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUser returns uploads made by a user. The sort field is checked
// against a whitelist before it reaches the ORDER BY clause.
func (r *GormUploadRepository) FindByUser(ctx context.Context, userID uuid.UUID, sort borrowing.UploadSort) ([]*borrowing.Upload, error) {
	field := ValidateSortField(sort.Field, UploadSortFields, "uploaded_at")
	order := ValidateSortOrder(sort.Order)

	var uploadModels []*models.UploadModel
	if err := r.db.WithContext(ctx).
		Where("uploaded_by = ?", userID).
		Order(field + " " + order).
		Find(&uploadModels).Error; err != nil {
		return nil, err
	}

	uploads := make([]*borrowing.Upload, len(uploadModels))
	for i, model := range uploadModels {
		uploads[i] = model.ToDomain()
	}
	return uploads, nil
}

// Ensure GormUploadRepository implements UploadRepository
var _ borrowing.UploadRepository = (*GormUploadRepository)(nil)
