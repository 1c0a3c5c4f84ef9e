package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID             uuid.UUID
	Email          string
	Name           string
	WhatsAppNumber string
	IsAdmin        bool
	ReferralCode   string
	LoyaltyPoints  int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CategoryLifetime marks one-time purchases priced flat regardless of months.
const CategoryLifetime = "Software"

type Product struct {
	ID              uuid.UUID
	Slug            string
	Name            string
	Description     string
	Price           decimal.Decimal
	AvailableMonths []int
	Stock           int
	IsActive        bool
	IsPopular       bool
	RequiresAge     bool
	Category        string
	Features        []string
	Image           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Order struct {
	ID             uuid.UUID
	OrderNumber    string
	UserID         uuid.UUID
	TotalAmount    decimal.Decimal
	Status         OrderStatus
	PaymentMethod  string
	PaymentReceipt string
	ContactEmail   string
	AdminNotes     string
	VerifiedAt     *time.Time
	Items          []OrderItem
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PaymentMethodBankTransfer is the only payment method the store accepts.
const PaymentMethodBankTransfer = "BANK_TRANSFER"

// ReceiptUploadFailed replaces the receipt URL when the image host could not
// be reached; the admin asks the customer for the receipt over chat.
const ReceiptUploadFailed = "UPLOAD_FAILED"

// RecipientFor picks the email given at checkout, falling back to the
// account email for orders placed before it was recorded.
func (o *Order) RecipientFor(customer *User) string {
	if o.ContactEmail != "" {
		return o.ContactEmail
	}
	if customer == nil {
		return ""
	}
	return customer.Email
}

func (o *Order) HasReceipt() bool {
	return o.PaymentReceipt != "" && o.PaymentReceipt != ReceiptUploadFailed
}

type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductSlug string
	ProductName string
	Quantity    int
	Months      int
	Price       decimal.Decimal
}

// Subtotal is price × quantity × months.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity))).Mul(decimal.NewFromInt(int64(i.Months)))
}

// OrderTotal sums item subtotals.
func OrderTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

type Subscription struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	OrderID     *uuid.UUID
	OrderItemID *uuid.UUID
	StartDate   time.Time
	EndDate     time.Time
	IsActive    bool
	CreatedAt   time.Time
}

// ActiveAt reports whether the grant still runs at now. Expiry is never
// written back; it is evaluated on read.
func (s Subscription) ActiveAt(now time.Time) bool {
	return s.IsActive && now.Before(s.EndDate)
}

// DaysLeft rounds up partial days and never goes negative.
func (s Subscription) DaysLeft(now time.Time) int {
	if !s.ActiveAt(now) {
		return 0
	}
	left := s.EndDate.Sub(now)
	days := int(left / (24 * time.Hour))
	if left%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// OrderMessage is the payload of the order-created event.
type OrderMessage struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
}

// OrderStatusEvent is pushed to the customer's open sockets.
type OrderStatusEvent struct {
	Type        string      `json:"type"`
	OrderNumber string      `json:"orderNumber"`
	Status      OrderStatus `json:"status"`
	At          time.Time   `json:"at"`
}

type TopProduct struct {
	ProductID uuid.UUID
	Slug      string
	Name      string
	Quantity  int
	Revenue   decimal.Decimal
}

type DashboardStats struct {
	TotalRevenue        decimal.Decimal
	TotalOrders         int
	OrdersByStatus      map[OrderStatus]int
	Customers           int
	ActiveSubscriptions int
	TopProducts         []TopProduct
}
