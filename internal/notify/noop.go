package notify

import (
	"context"
	"log/slog"

	"github.com/flicky/premium-store/internal/model"
)

// Disabled stands in for a channel turned off in config. It logs at debug
// level and always succeeds.
type Disabled struct {
	Channel string
	Log     *slog.Logger
}

func (d Disabled) NotifyNewOrder(_ context.Context, order *model.Order, _ *model.User) error {
	d.Log.Debug("notification channel disabled", "channel", d.Channel, "order_number", order.OrderNumber)
	return nil
}

func (d Disabled) NotifyApprovalResult(_ context.Context, order *model.Order, _ int) error {
	d.Log.Debug("notification channel disabled", "channel", d.Channel, "order_number", order.OrderNumber)
	return nil
}

func (d Disabled) SendOrderConfirmation(_ context.Context, order *model.Order, _ *model.User) error {
	d.Log.Debug("notification channel disabled", "channel", d.Channel, "order_number", order.OrderNumber)
	return nil
}

func (d Disabled) SendOrderStatus(_ context.Context, order *model.Order, _ *model.User) error {
	d.Log.Debug("notification channel disabled", "channel", d.Channel, "order_number", order.OrderNumber)
	return nil
}
