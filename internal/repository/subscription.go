package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/premium-store/internal/model"
)

type SubscriptionRepository interface {
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Subscription, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]model.Subscription, error)
}

type pgSubscriptionRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRepository(pool *pgxpool.Pool) SubscriptionRepository {
	return &pgSubscriptionRepo{pool: pool}
}

const subscriptionSelect = `SELECT s.id, s.user_id, s.product_id, p.name, s.order_id, s.order_item_id,
	s.start_date, s.end_date, s.is_active, s.created_at
	FROM subscriptions s JOIN products p ON p.id = s.product_id`

func (r *pgSubscriptionRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Subscription, error) {
	return r.list(ctx, subscriptionSelect+` WHERE s.user_id = $1 ORDER BY s.end_date DESC`, userID)
}

func (r *pgSubscriptionRepo) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]model.Subscription, error) {
	return r.list(ctx, subscriptionSelect+` WHERE s.order_id = $1 ORDER BY s.created_at`, orderID)
}

func (r *pgSubscriptionRepo) list(ctx context.Context, query string, arg any) ([]model.Subscription, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.Subscription
	for rows.Next() {
		var s model.Subscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.ProductID, &s.ProductName, &s.OrderID, &s.OrderItemID,
			&s.StartDate, &s.EndDate, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
