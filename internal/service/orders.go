package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/servicehub/backend/internal/logging"
	"github.com/servicehub/backend/internal/models"
	"github.com/servicehub/backend/internal/mykafka"
	"github.com/servicehub/backend/internal/repo"
)

var (
	ErrEmptyOrder         = errors.New("order has no items")
	ErrServiceUnavailable = errors.New("service is not available")
)

const orderEventsTopic = "order_events"

type OrderItemInput struct {
	ServiceID uint `json:"service_id"`
	Quantity  int  `json:"quantity"`
}

type OrdersService struct {
	Repo     *repo.GormRepo
	Producer *mykafka.Producer // optional
}

// Create places an order for the user. Unit prices are read from the
// catalog at order time and snapshotted onto the items.
func (s *OrdersService) Create(ctx context.Context, userID uuid.UUID, items []OrderItemInput) (*models.Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	order := models.Order{
		UserID:    userID,
		OrderDate: time.Now().UTC(),
	}

	for _, in := range items {
		if in.Quantity <= 0 {
			return nil, fmt.Errorf("invalid quantity for service %d", in.ServiceID)
		}

		svc, err := s.Repo.GetService(ctx, in.ServiceID)
		if err != nil {
			return nil, err
		}
		if !svc.Available {
			return nil, ErrServiceUnavailable
		}

		order.OrderItems = append(order.OrderItems, models.OrderItem{
			ServiceID: svc.ID,
			Quantity:  in.Quantity,
			Price:     svc.Price,
		})
		order.TotalAmount += svc.Price * float64(in.Quantity)
	}

	if err := s.Repo.CreateOrder(ctx, &order); err != nil {
		return nil, err
	}

	s.publish(ctx, &order)
	return &order, nil
}

func (s *OrdersService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return s.Repo.ListOrdersByUser(ctx, userID)
}

func (s *OrdersService) ListAll(ctx context.Context) ([]models.Order, error) {
	return s.Repo.ListOrders(ctx)
}

func (s *OrdersService) publish(ctx context.Context, order *models.Order) {
	if s.Producer == nil {
		return
	}

	event := map[string]interface{}{
		"type":         "order_created",
		"order_id":     order.ID,
		"user_id":      order.UserID.String(),
		"total_amount": order.TotalAmount,
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.Producer.PublishEvent(pubCtx, orderEventsTopic, order.UserID.String(), event); err != nil {
		logging.FromContext(ctx).Error("kafka publish failed", "type", "order_created", "error", err)
	}
}
