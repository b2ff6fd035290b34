package repo

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/servicehub/backend/internal/models"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Role{}, &models.UserClaim{}, &models.RefreshToken{},
		&models.Service{}, &models.Order{}, &models.OrderItem{},
	))
	return &GormRepo{DB: db}
}

func seedRoles(t *testing.T, r *GormRepo) {
	t.Helper()
	for _, name := range []string{models.RoleAdmin, models.RoleCustomer} {
		require.NoError(t, r.DB.Create(&models.Role{Name: name}).Error)
	}
}
