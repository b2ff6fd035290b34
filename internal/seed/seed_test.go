package seed

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/servicehub/backend/internal/config"
	"github.com/servicehub/backend/internal/models"
	"github.com/servicehub/backend/internal/repo"
)

func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Role{}, &models.UserClaim{},
		&models.Service{},
	))
	return &repo.GormRepo{DB: db}
}

func TestRun_Idempotent(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	cfg := &config.Config{AdminEmail: "root@example.com", AdminPassword: "Abcdef1!"}

	require.NoError(t, Run(ctx, r, cfg))
	require.NoError(t, Run(ctx, r, cfg))

	var roleCount int64
	require.NoError(t, r.DB.Model(&models.Role{}).Count(&roleCount).Error)
	assert.Equal(t, int64(2), roleCount)

	admin, err := r.FindUserByEmail(ctx, cfg.AdminEmail)
	require.NoError(t, err)
	assert.True(t, admin.EmailConfirmed)

	roles, err := r.GetRoles(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleAdmin}, roles)

	services, err := r.CountServices(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), services, "samples are seeded once")
}

func TestRun_SkipsAdminWhenUnconfigured(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, Run(ctx, r, &config.Config{}))

	var userCount int64
	require.NoError(t, r.DB.Model(&models.User{}).Count(&userCount).Error)
	assert.Zero(t, userCount)
}

func TestRun_LeavesExistingCatalogAlone(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.CreateService(ctx, &models.Service{Name: "Existing", Price: 10}))
	require.NoError(t, Run(ctx, r, &config.Config{}))

	count, err := r.CountServices(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
