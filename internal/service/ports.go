package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/flicky/premium-store/internal/model"
)

// EventPublisher hands the order-created event to the notification pipeline.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, msg model.OrderMessage) error
}

type ReceiptUploader interface {
	Upload(ctx context.Context, data []byte, name string) (string, error)
}

// AdminNotifier reaches the store operator.
type AdminNotifier interface {
	NotifyNewOrder(ctx context.Context, order *model.Order, customer *model.User) error
	NotifyApprovalResult(ctx context.Context, order *model.Order, subscriptions int) error
}

type CustomerMailer interface {
	SendOrderConfirmation(ctx context.Context, order *model.Order, customer *model.User) error
	SendOrderStatus(ctx context.Context, order *model.Order, customer *model.User) error
}

// ProductCache drops cached product pages after their stock changed.
type ProductCache interface {
	Invalidate(ctx context.Context, slugs ...string)
}

type StatusBroadcaster interface {
	PublishOrderStatus(userID uuid.UUID, event model.OrderStatusEvent)
}

// Identity is what the external identity provider vouches for.
type Identity struct {
	Email string
	Name  string
}

type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// StateStore remembers issued OAuth state values until they are consumed.
type StateStore interface {
	Put(ctx context.Context, state string) error
	Consume(ctx context.Context, state string) (bool, error)
}
