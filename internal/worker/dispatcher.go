package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/flicky/premium-store/internal/metrics"
	"github.com/flicky/premium-store/internal/model"
	"github.com/flicky/premium-store/internal/service"
)

// ErrOrderGone marks an event whose order no longer exists. Retrying it
// cannot succeed.
var ErrOrderGone = errors.New("order no longer exists")

type OrderReader interface {
	GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// Dispatcher fans an order-created event out to the admin chat and the
// customer's inbox. Each channel is attempted independently.
type Dispatcher struct {
	orders   OrderReader
	users    UserReader
	notifier service.AdminNotifier
	mailer   service.CustomerMailer
	metrics  *metrics.Metrics
	log      *slog.Logger
}

func NewDispatcher(orders OrderReader, users UserReader, notifier service.AdminNotifier, mailer service.CustomerMailer, m *metrics.Metrics, log *slog.Logger) *Dispatcher {
	return &Dispatcher{orders: orders, users: users, notifier: notifier, mailer: mailer, metrics: m, log: log}
}

// HandleOrderCreated returns an error only when nothing was delivered, so a
// redelivery never duplicates a channel that already succeeded.
func (d *Dispatcher) HandleOrderCreated(ctx context.Context, msg model.OrderMessage) error {
	order, err := d.orders.GetByNumber(ctx, msg.OrderNumber)
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}
	if order == nil {
		return fmt.Errorf("%w: %s", ErrOrderGone, msg.OrderNumber)
	}
	customer, err := d.users.GetByID(ctx, order.UserID)
	if err != nil {
		return fmt.Errorf("load customer: %w", err)
	}
	if customer == nil {
		customer = &model.User{ID: order.UserID}
	}

	log := d.log.With("order_number", order.OrderNumber, "user_id", order.UserID)

	adminErr := d.notifier.NotifyNewOrder(ctx, order, customer)
	d.metrics.Notification("telegram", adminErr)
	if adminErr != nil {
		log.Error("notify admin of new order", "error", adminErr)
	}

	var mailErr error
	if order.RecipientFor(customer) == "" {
		mailErr = errors.New("order has no contact email")
	} else {
		mailErr = d.mailer.SendOrderConfirmation(ctx, order, customer)
	}
	d.metrics.Notification("email", mailErr)
	if mailErr != nil {
		log.Error("send order confirmation", "error", mailErr)
	}

	if adminErr != nil && mailErr != nil {
		return errors.Join(adminErr, mailErr)
	}
	log.Info("order notifications dispatched")
	return nil
}
