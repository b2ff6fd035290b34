package service

import (
	"context"

	"github.com/servicehub/backend/internal/repo"
)

type DashboardStats struct {
	ServiceCount int64   `json:"service_count"`
	OrderCount   int64   `json:"order_count"`
	TotalRevenue float64 `json:"total_revenue"`
}

type DashboardService struct {
	Repo *repo.GormRepo
}

func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	services, err := s.Repo.CountServices(ctx)
	if err != nil {
		return nil, err
	}

	orders, err := s.Repo.CountOrders(ctx)
	if err != nil {
		return nil, err
	}

	revenue, err := s.Repo.TotalRevenue(ctx)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		ServiceCount: services,
		OrderCount:   orders,
		TotalRevenue: revenue,
	}, nil
}
