package assessment

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"stroke_rehab_backend/internal/common"
)

// Repository defines the interface for assessment storage.
type Repository interface {
	Create(ctx context.Context, a *Assessment) error
	FindByID(ctx context.Context, id uint) (*Assessment, error)
	ListByUser(ctx context.Context, userID uint, query ListQuery) ([]Assessment, int64, error)
	Delete(ctx context.Context, id uint) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM assessment repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, a *Assessment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *gormRepository) FindByID(ctx context.Context, id uint) (*Assessment, error) {
	var a Assessment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Assessment not found.")
		}
		return nil, err
	}
	return &a, nil
}

// ListByUser returns one page of a user's assessments, newest first, with
// the unpaged total.
func (r *gormRepository) ListByUser(ctx context.Context, userID uint, query ListQuery) ([]Assessment, int64, error) {
	tx := r.db.WithContext(ctx).Model(&Assessment{}).Where("user_id = ?", userID)
	if query.Kind != "" {
		tx = tx.Where("kind = ?", query.Kind)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []Assessment
	offset := (query.Page - 1) * query.PageSize
	err := tx.Order("recorded_at DESC").
		Offset(offset).
		Limit(query.PageSize).
		Find(&list).Error
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *gormRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&Assessment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Assessment not found.")
	}
	return nil
}
