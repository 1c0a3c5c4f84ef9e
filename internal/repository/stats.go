package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/premium-store/internal/model"
)

type StatsRepository interface {
	Dashboard(ctx context.Context, now time.Time, topN int) (*model.DashboardStats, error)
}

type pgStatsRepo struct{ pool *pgxpool.Pool }

func NewStatsRepository(pool *pgxpool.Pool) StatsRepository {
	return &pgStatsRepo{pool: pool}
}

func (r *pgStatsRepo) Dashboard(ctx context.Context, now time.Time, topN int) (*model.DashboardStats, error) {
	stats := &model.DashboardStats{OrdersByStatus: make(map[model.OrderStatus]int)}
	for _, st := range model.AllOrderStatuses {
		stats.OrdersByStatus[st] = 0
	}

	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE status = $1`, model.OrderStatusCompleted,
	).Scan(&stats.TotalRevenue)
	if err != nil {
		return nil, fmt.Errorf("sum revenue: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count orders by status: %w", err)
	}
	for rows.Next() {
		var st model.OrderStatus
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.OrdersByStatus[st] = n
		stats.TotalOrders += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count orders by status: %w", err)
	}

	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE NOT is_admin`).Scan(&stats.Customers); err != nil {
		return nil, fmt.Errorf("count customers: %w", err)
	}

	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE is_active AND end_date > $1`, now,
	).Scan(&stats.ActiveSubscriptions); err != nil {
		return nil, fmt.Errorf("count active subscriptions: %w", err)
	}

	top, err := r.pool.Query(ctx,
		`SELECT p.id, p.slug, p.name, SUM(i.quantity), SUM(i.price * i.quantity * i.months)
		 FROM order_items i
		 JOIN orders o ON o.id = i.order_id
		 JOIN products p ON p.id = i.product_id
		 WHERE o.status = $1
		 GROUP BY p.id, p.slug, p.name
		 ORDER BY SUM(i.quantity) DESC, p.name
		 LIMIT $2`, model.OrderStatusCompleted, topN,
	)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer top.Close()
	for top.Next() {
		var tp model.TopProduct
		if err := top.Scan(&tp.ProductID, &tp.Slug, &tp.Name, &tp.Quantity, &tp.Revenue); err != nil {
			return nil, fmt.Errorf("scan top product: %w", err)
		}
		stats.TopProducts = append(stats.TopProducts, tp)
	}
	return stats, top.Err()
}
