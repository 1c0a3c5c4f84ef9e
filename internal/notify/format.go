// Package notify delivers order notifications to the store admin over
// Telegram and to customers over email.
package notify

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/flicky/premium-store/internal/model"
)

const (
	callbackApprove = "approve_"
	callbackReject  = "reject_"
)

var ErrBadCallback = errors.New("unrecognised callback data")

// CallbackAction is an admin decision taken from an inline button.
type CallbackAction struct {
	Approve     bool
	OrderNumber string
}

func (a CallbackAction) Verb() string {
	if a.Approve {
		return "approve"
	}
	return "reject"
}

func ApproveData(orderNumber string) string { return callbackApprove + orderNumber }
func RejectData(orderNumber string) string  { return callbackReject + orderNumber }

// ParseCallbackData reads "approve_<orderNumber>" or "reject_<orderNumber>".
func ParseCallbackData(data string) (CallbackAction, error) {
	switch {
	case strings.HasPrefix(data, callbackApprove) && len(data) > len(callbackApprove):
		return CallbackAction{Approve: true, OrderNumber: data[len(callbackApprove):]}, nil
	case strings.HasPrefix(data, callbackReject) && len(data) > len(callbackReject):
		return CallbackAction{OrderNumber: data[len(callbackReject):]}, nil
	}
	return CallbackAction{}, fmt.Errorf("%w: %q", ErrBadCallback, data)
}

// WhatsAppLink returns a wa.me deep link, or "" when number has no digits.
func WhatsAppLink(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "https://wa.me/" + b.String()
}

func monthsLabel(m int) string {
	if m == 1 {
		return "1 month"
	}
	return fmt.Sprintf("%d months", m)
}

// FormatNewOrder renders the admin message in Telegram HTML.
func FormatNewOrder(order *model.Order, customer *model.User, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🛒 <b>New order %s</b>\n", html.EscapeString(order.OrderNumber))
	fmt.Fprintf(&b, "Total: <b>%s %s</b>\n\n", currency, order.TotalAmount.StringFixed(0))

	if customer != nil {
		fmt.Fprintf(&b, "👤 %s\n", html.EscapeString(customer.Name))
		fmt.Fprintf(&b, "📧 %s\n", html.EscapeString(customer.Email))
		if customer.WhatsAppNumber != "" {
			fmt.Fprintf(&b, "📱 %s\n", html.EscapeString(customer.WhatsAppNumber))
		}
		b.WriteString("\n")
	}

	b.WriteString("<b>Items</b>\n")
	for _, it := range order.Items {
		fmt.Fprintf(&b, "• %s × %d (%s): %s\n",
			html.EscapeString(it.ProductName), it.Quantity, monthsLabel(it.Months), it.Subtotal().StringFixed(0))
	}

	if !order.HasReceipt() {
		b.WriteString("\n⚠️ Receipt upload failed. Ask the customer to resend it on WhatsApp.")
	}
	return b.String()
}

func FormatDecision(order *model.Order, subscriptions int) string {
	num := html.EscapeString(order.OrderNumber)
	switch order.Status {
	case model.OrderStatusCompleted:
		return fmt.Sprintf("✅ Order <b>%s</b> approved. %d subscription(s) activated.", num, subscriptions)
	case model.OrderStatusCancelled:
		return fmt.Sprintf("❌ Order <b>%s</b> rejected.", num)
	}
	return fmt.Sprintf("Order <b>%s</b> is now %s.", num, order.Status)
}
