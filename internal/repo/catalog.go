package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/servicehub/backend/internal/models"
)

var ErrServiceNotFound = errors.New("service not found")

func (r *GormRepo) ListServices(ctx context.Context) ([]models.Service, error) {
	var items []models.Service
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) GetService(ctx context.Context, id uint) (*models.Service, error) {
	var item models.Service
	if err := r.DB.WithContext(ctx).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) CreateService(ctx context.Context, item *models.Service) error {
	return r.DB.WithContext(ctx).Create(item).Error
}

// UpdateService overwrites every column of the row, false and zero values
// included.
func (r *GormRepo) UpdateService(ctx context.Context, item *models.Service) error {
	result := r.DB.WithContext(ctx).Model(&models.Service{}).
		Where("id = ?", item.ID).
		Select("*").Omit("id", "created_at").
		Updates(item)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrServiceNotFound
	}
	return nil
}

func (r *GormRepo) DeleteService(ctx context.Context, id uint) error {
	result := r.DB.WithContext(ctx).Delete(&models.Service{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrServiceNotFound
	}
	return nil
}

func (r *GormRepo) CountServices(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.Service{}).Count(&count).Error
	return count, err
}
