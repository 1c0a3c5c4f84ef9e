package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/premium-store/internal/model"
)

// OrderTx is the unit of work used by the approval workflow. The order row
// read through it stays locked until the transaction ends.
type OrderTx interface {
	GetByNumberForUpdate(ctx context.Context, orderNumber string) (*model.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus, verifiedAt *time.Time) error
	CreateSubscriptions(ctx context.Context, subs []model.Subscription) error
	ReleaseStock(ctx context.Context, items []model.OrderItem) error
}

type OrderFilter struct {
	Status *model.OrderStatus
	Limit  int
	Offset int
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	List(ctx context.Context, f OrderFilter) ([]model.Order, int, error)
	UpdateNotes(ctx context.Context, orderNumber, notes string) error
	Delete(ctx context.Context, orderNumber string) error
	WithinTx(ctx context.Context, fn func(tx OrderTx) error) error
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

const orderColumns = `o.id, o.order_number, o.user_id, o.total_amount, o.status, o.payment_method,
	o.payment_receipt, o.contact_email, o.admin_notes, o.verified_at, o.created_at, o.updated_at`

func scanOrder(row pgx.Row, o *model.Order) error {
	return row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.TotalAmount, &o.Status, &o.PaymentMethod,
		&o.PaymentReceipt, &o.ContactEmail, &o.AdminNotes, &o.VerifiedAt, &o.CreatedAt, &o.UpdatedAt)
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Create persists the order, its items and the stock reservation atomically.
func (r *pgOrderRepo) Create(ctx context.Context, order *model.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	order.ID = uuid.New()
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (id, order_number, user_id, total_amount, status, payment_method, payment_receipt, contact_email, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()) RETURNING created_at, updated_at`,
		order.ID, order.OrderNumber, order.UserID, order.TotalAmount, order.Status, order.PaymentMethod,
		order.PaymentReceipt, order.ContactEmail,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.ID = uuid.New()
		item.OrderID = order.ID
		if _, err := tx.Exec(ctx,
			`INSERT INTO order_items (id, order_id, product_id, quantity, months, price, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
			item.ID, item.OrderID, item.ProductID, item.Quantity, item.Months, item.Price,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
		if err := reserveStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *pgOrderRepo) GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	return getOrder(ctx, r.pool, `SELECT `+orderColumns+` FROM orders o WHERE o.order_number = $1`, orderNumber)
}

func getOrder(ctx context.Context, q querier, query string, args ...any) (*model.Order, error) {
	order := &model.Order{}
	if err := scanOrder(q.QueryRow(ctx, query, args...), order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	items, err := loadItems(ctx, q, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func loadItems(ctx context.Context, q querier, orderID uuid.UUID) ([]model.OrderItem, error) {
	rows, err := q.Query(ctx,
		`SELECT i.id, i.product_id, p.slug, p.name, i.quantity, i.months, i.price
		 FROM order_items i JOIN products p ON p.id = i.product_id
		 WHERE i.order_id = $1 ORDER BY i.created_at, i.id`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductSlug, &item.ProductName,
			&item.Quantity, &item.Months, &item.Price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.OrderID = orderID
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *pgOrderRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders o WHERE o.user_id = $1 ORDER BY o.created_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}
	return r.withItems(ctx, orders)
}

func (r *pgOrderRepo) List(ctx context.Context, f OrderFilter) ([]model.Order, int, error) {
	var status string
	if f.Status != nil {
		status = string(*f.Status)
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE ($1 = '' OR status = $1)`, status,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders o WHERE ($1 = '' OR o.status = $1)
		 ORDER BY o.created_at DESC LIMIT $2 OFFSET $3`, status, f.Limit, f.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	orders, err = r.withItems(ctx, orders)
	return orders, total, err
}

func collectOrders(rows pgx.Rows) ([]model.Order, error) {
	defer rows.Close()
	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *pgOrderRepo) withItems(ctx context.Context, orders []model.Order) ([]model.Order, error) {
	for i := range orders {
		items, err := loadItems(ctx, r.pool, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (r *pgOrderRepo) UpdateNotes(ctx context.Context, orderNumber, notes string) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET admin_notes = $2, updated_at = NOW() WHERE order_number = $1`, orderNumber, notes,
	)
	if err != nil {
		return fmt.Errorf("update order notes: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete hard-deletes an order and its items. Reserved stock of an open
// order is returned; subscriptions already granted are kept.
func (r *pgOrderRepo) Delete(ctx context.Context, orderNumber string) error {
	return r.WithinTx(ctx, func(otx OrderTx) error {
		t := otx.(*pgOrderTx)
		order, err := t.GetByNumberForUpdate(ctx, orderNumber)
		if err != nil {
			return err
		}
		if order == nil {
			return pgx.ErrNoRows
		}
		if !order.Status.Terminal() {
			if err := releaseStock(ctx, t.tx, order.Items); err != nil {
				return err
			}
		}
		if _, err := t.tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, order.ID); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		return nil
	})
}

func (r *pgOrderRepo) WithinTx(ctx context.Context, fn func(tx OrderTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgOrderTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type pgOrderTx struct{ tx pgx.Tx }

func (t *pgOrderTx) GetByNumberForUpdate(ctx context.Context, orderNumber string) (*model.Order, error) {
	return getOrder(ctx, t.tx,
		`SELECT `+orderColumns+` FROM orders o WHERE o.order_number = $1 FOR UPDATE`, orderNumber)
}

func (t *pgOrderTx) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus, verifiedAt *time.Time) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE orders SET status = $2, verified_at = COALESCE($3, verified_at), updated_at = NOW() WHERE id = $1`,
		id, status, verifiedAt,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

func (t *pgOrderTx) CreateSubscriptions(ctx context.Context, subs []model.Subscription) error {
	for i := range subs {
		s := &subs[i]
		s.ID = uuid.New()
		err := t.tx.QueryRow(ctx,
			`INSERT INTO subscriptions (id, user_id, product_id, order_id, order_item_id, start_date, end_date, is_active, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW()) RETURNING created_at`,
			s.ID, s.UserID, s.ProductID, s.OrderID, s.OrderItemID, s.StartDate, s.EndDate, s.IsActive,
		).Scan(&s.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert subscription: %w", err)
		}
	}
	return nil
}

func (t *pgOrderTx) ReleaseStock(ctx context.Context, items []model.OrderItem) error {
	return releaseStock(ctx, t.tx, items)
}
