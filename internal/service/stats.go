package service

import (
	"context"
	"fmt"
	"time"

	"github.com/flicky/premium-store/internal/dto"
	"github.com/flicky/premium-store/internal/repository"
)

const topProductsLimit = 5

// StatsService backs the admin dashboard and customer list.
type StatsService struct {
	statsRepo repository.StatsRepository
	userRepo  repository.UserRepository
	now       func() time.Time
}

func NewStatsService(statsRepo repository.StatsRepository, userRepo repository.UserRepository) *StatsService {
	return &StatsService{statsRepo: statsRepo, userRepo: userRepo, now: time.Now}
}

func (s *StatsService) Dashboard(ctx context.Context) (*dto.StatsResponse, error) {
	stats, err := s.statsRepo.Dashboard(ctx, s.now(), topProductsLimit)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}

	top := make([]dto.TopProductResponse, 0, len(stats.TopProducts))
	for _, p := range stats.TopProducts {
		top = append(top, dto.TopProductResponse{
			ProductID: p.ProductID, Slug: p.Slug, Name: p.Name,
			Quantity: p.Quantity, Revenue: p.Revenue,
		})
	}
	return &dto.StatsResponse{
		TotalRevenue:        stats.TotalRevenue,
		TotalOrders:         stats.TotalOrders,
		OrdersByStatus:      stats.OrdersByStatus,
		Customers:           stats.Customers,
		ActiveSubscriptions: stats.ActiveSubscriptions,
		TopProducts:         top,
	}, nil
}

func (s *StatsService) Customers(ctx context.Context, page, limit int) (*dto.CustomerListResponse, error) {
	users, total, err := s.userRepo.ListCustomers(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, ToUserResponse(&users[i]))
	}
	return &dto.CustomerListResponse{Customers: out, Total: total, Page: page, Limit: limit}, nil
}
