package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/servicehub/backend/internal/models"
)

var ErrRefreshNotFound = errors.New("refresh token not found")

// SaveRefreshToken is an upsert keyed by user: a user holds at most one
// active refresh token, so a new login replaces the previous one. The
// conflict is resolved in the database, concurrent logins are last-write-
// wins instead of one of them failing on the unique index.
func (r *GormRepo) SaveRefreshToken(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error {
	now := time.Now().UTC()

	record := models.RefreshToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "expires_at"}),
	}).Create(&record).Error
}

func (r *GormRepo) FindRefreshByUser(ctx context.Context, userID uuid.UUID) (*models.RefreshToken, error) {
	var record models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRefreshNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *GormRepo) FindRefreshByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var record models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("token = ?", token).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRefreshNotFound
		}
		return nil, err
	}
	return &record, nil
}

// RevokeRefreshToken deletes the record. Deleting an already-gone record is
// not an error.
func (r *GormRepo) RevokeRefreshToken(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&models.RefreshToken{}, id).Error
}
