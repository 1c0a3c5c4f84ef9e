package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flicky/premium-store/internal/dto"
	"github.com/flicky/premium-store/internal/model"
	"github.com/flicky/premium-store/internal/repository"
)

type SubscriptionService struct {
	subRepo repository.SubscriptionRepository
	now     func() time.Time
}

func NewSubscriptionService(subRepo repository.SubscriptionRepository) *SubscriptionService {
	return &SubscriptionService{subRepo: subRepo, now: time.Now}
}

// ListForUser reports activity and days left against the wall clock at read
// time; nothing expires subscriptions in storage.
func (s *SubscriptionService) ListForUser(ctx context.Context, userID uuid.UUID) ([]dto.SubscriptionResponse, error) {
	subs, err := s.subRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return toSubscriptionResponses(subs, s.now()), nil
}

// ListForOrder returns the grants an approved order produced.
func (s *SubscriptionService) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]dto.SubscriptionResponse, error) {
	subs, err := s.subRepo.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order subscriptions: %w", err)
	}
	return toSubscriptionResponses(subs, s.now()), nil
}

func toSubscriptionResponses(subs []model.Subscription, now time.Time) []dto.SubscriptionResponse {
	out := make([]dto.SubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, dto.SubscriptionResponse{
			ID:          sub.ID,
			ProductID:   sub.ProductID,
			ProductName: sub.ProductName,
			OrderID:     sub.OrderID,
			StartDate:   sub.StartDate,
			EndDate:     sub.EndDate,
			IsActive:    sub.ActiveAt(now),
			DaysLeft:    sub.DaysLeft(now),
		})
	}
	return out
}
