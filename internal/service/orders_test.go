package service

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/servicehub/backend/internal/models"
	"github.com/servicehub/backend/internal/repo"
)

func newTestOrders(t *testing.T) *OrdersService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Service{}, &models.Order{}, &models.OrderItem{},
	))
	return &OrdersService{Repo: &repo.GormRepo{DB: db}}
}

func seedService(t *testing.T, s *OrdersService, item models.Service) uint {
	t.Helper()
	require.NoError(t, s.Repo.CreateService(context.Background(), &item))
	return item.ID
}

func TestOrdersCreate_SnapshotsPrices(t *testing.T) {
	t.Parallel()

	s := newTestOrders(t)
	ctx := context.Background()
	userID := uuid.New()

	logoID := seedService(t, s, models.Service{Name: "Logo design", Price: 150, Available: true})
	webID := seedService(t, s, models.Service{Name: "Web dev", Price: 500, Available: true})

	order, err := s.Create(ctx, userID, []OrderItemInput{
		{ServiceID: logoID, Quantity: 2},
		{ServiceID: webID, Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 800.0, order.TotalAmount)
	require.Len(t, order.OrderItems, 2)
	assert.Equal(t, 150.0, order.OrderItems[0].Price)

	// a later price change leaves the stored order untouched
	updated := models.Service{ID: logoID, Name: "Logo design", Price: 999, Available: true}
	require.NoError(t, s.Repo.UpdateService(ctx, &updated))

	mine, err := s.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, 800.0, mine[0].TotalAmount)
	assert.Equal(t, 150.0, mine[0].OrderItems[0].Price)
}

func TestOrdersCreate_Rejections(t *testing.T) {
	t.Parallel()

	s := newTestOrders(t)
	ctx := context.Background()
	userID := uuid.New()

	okID := seedService(t, s, models.Service{Name: "Logo design", Price: 150, Available: true})

	// the column default is true, flip it after insert
	off := models.Service{Name: "Paused", Price: 80, Available: true}
	offID := seedService(t, s, off)
	off.ID = offID
	off.Available = false
	require.NoError(t, s.Repo.UpdateService(ctx, &off))

	_, err := s.Create(ctx, userID, nil)
	require.ErrorIs(t, err, ErrEmptyOrder)

	_, err = s.Create(ctx, userID, []OrderItemInput{{ServiceID: okID, Quantity: 0}})
	require.Error(t, err)

	_, err = s.Create(ctx, userID, []OrderItemInput{{ServiceID: offID, Quantity: 1}})
	require.ErrorIs(t, err, ErrServiceUnavailable)

	_, err = s.Create(ctx, userID, []OrderItemInput{{ServiceID: 9999, Quantity: 1}})
	require.ErrorIs(t, err, repo.ErrServiceNotFound)

	// nothing was persisted by the rejected attempts
	count, err := s.Repo.CountOrders(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
