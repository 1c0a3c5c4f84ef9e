package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/premium-store/internal/catalog"
	"github.com/flicky/premium-store/internal/model"
)

// --- Auth ---

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	WhatsAppNumber string    `json:"whatsappNumber,omitempty"`
	IsAdmin        bool      `json:"isAdmin"`
	ReferralCode   string    `json:"referralCode"`
	LoyaltyPoints  int       `json:"loyaltyPoints"`
	CreatedAt      time.Time `json:"createdAt"`
}

type CustomerListResponse struct {
	Customers []UserResponse `json:"customers"`
	Total     int            `json:"total"`
	Page      int            `json:"page"`
	Limit     int            `json:"limit"`
}

// --- Product ---

type CreateProductRequest struct {
	Slug            string          `json:"slug" binding:"required"`
	Name            string          `json:"name" binding:"required"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price" binding:"required"`
	AvailableMonths []int           `json:"availableMonths" binding:"required,min=1,dive,min=1"`
	Stock           int             `json:"stock" binding:"min=0"`
	IsActive        *bool           `json:"isActive"`
	IsPopular       bool            `json:"isPopular"`
	RequiresAge     bool            `json:"requiresAge"`
	Category        string          `json:"category" binding:"required"`
	Features        []string        `json:"features"`
	Image           string          `json:"image"`
}

type UpdateProductRequest struct {
	Name            *string          `json:"name"`
	Description     *string          `json:"description"`
	Price           *decimal.Decimal `json:"price"`
	AvailableMonths []int            `json:"availableMonths" binding:"omitempty,dive,min=1"`
	Stock           *int             `json:"stock" binding:"omitempty,min=0"`
	IsActive        *bool            `json:"isActive"`
	IsPopular       *bool            `json:"isPopular"`
	RequiresAge     *bool            `json:"requiresAge"`
	Category        *string          `json:"category"`
	Features        []string         `json:"features"`
	Image           *string          `json:"image"`
}

type ListProductsRequest struct {
	Page     int    `form:"page,default=1" binding:"min=1"`
	Limit    int    `form:"limit,default=20" binding:"min=1,max=100"`
	Search   string `form:"search"`
	Category string `form:"category"`
	Popular  bool   `form:"popular"`
	Sort     string `form:"sort,default=created_at" binding:"oneof=name price created_at"`
	Order    string `form:"order,default=desc" binding:"oneof=asc desc"`
}

type ProductResponse struct {
	ID              uuid.UUID               `json:"uuid"`
	Slug            string                  `json:"id"`
	Name            string                  `json:"name"`
	Description     string                  `json:"description"`
	Price           decimal.Decimal         `json:"price"`
	AvailableMonths []int                   `json:"availableMonths"`
	Stock           int                     `json:"stock"`
	IsActive        bool                    `json:"isActive"`
	IsPopular       bool                    `json:"isPopular"`
	RequiresAge     bool                    `json:"requiresAge"`
	Category        string                  `json:"category"`
	Features        []string                `json:"features"`
	Image           string                  `json:"image,omitempty"`
	Orderable       bool                    `json:"orderable"`
	Pricing         map[int]catalog.Pricing `json:"pricing,omitempty"`
	CreatedAt       time.Time               `json:"createdAt"`
	UpdatedAt       time.Time               `json:"updatedAt"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

// --- Cart ---

type AddCartItemRequest struct {
	ProductID string `json:"id" binding:"required"`
	Months    int    `json:"months" binding:"required,min=1"`
}

type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"omitempty,min=0,max=10"`
	Months   *int `json:"months" binding:"omitempty,min=1"`
}

type CartResponse struct {
	Items      []CartItemResponse `json:"items"`
	TotalItems int                `json:"totalItems"`
	TotalPrice decimal.Decimal    `json:"totalPrice"`
}

type CartItemResponse struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image,omitempty"`
	Months   int             `json:"months"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// --- Checkout ---

type CheckoutItem struct {
	ID       string          `json:"id" binding:"required"`
	Quantity int             `json:"quantity"`
	Months   int             `json:"months"`
	Price    decimal.Decimal `json:"price"`
}

type CustomerInfo struct {
	FullName       string `json:"fullName"`
	Email          string `json:"email"`
	WhatsAppNumber string `json:"whatsappNumber"`
}

// CreateOrderRequest is validated by the checkout service rather than by
// binding tags so every rejection maps to a named error.
type CreateOrderRequest struct {
	Items          []CheckoutItem `json:"items"`
	CustomerInfo   CustomerInfo   `json:"customerInfo"`
	PaymentReceipt string         `json:"paymentReceipt"`
}

type CreateOrderResponse struct {
	Success     bool         `json:"success"`
	OrderNumber string       `json:"orderNumber"`
	Order       OrderSummary `json:"order"`
}

type OrderSummary struct {
	ID          uuid.UUID         `json:"id,omitempty"`
	OrderNumber string            `json:"orderNumber"`
	Status      model.OrderStatus `json:"status"`
}

// --- Order ---

type OrderResponse struct {
	ID             uuid.UUID           `json:"id"`
	OrderNumber    string              `json:"orderNumber"`
	UserID         uuid.UUID           `json:"userId"`
	Status         model.OrderStatus   `json:"status"`
	TotalAmount    decimal.Decimal     `json:"totalAmount"`
	PaymentMethod  string              `json:"paymentMethod"`
	PaymentReceipt string              `json:"paymentReceipt"`
	ContactEmail   string              `json:"contactEmail,omitempty"`
	AdminNotes     string              `json:"adminNotes,omitempty"`
	VerifiedAt     *time.Time          `json:"verifiedAt,omitempty"`
	Items          []OrderItemResponse `json:"items"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// AdminOrderResponse adds the subscriptions the order granted.
type AdminOrderResponse struct {
	OrderResponse
	Subscriptions []SubscriptionResponse `json:"subscriptions"`
}

type OrderItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Months      int             `json:"months"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}

type AdminOrderListRequest struct {
	Page   int    `form:"page,default=1" binding:"min=1"`
	Limit  int    `form:"limit,default=20" binding:"min=1,max=100"`
	Status string `form:"status"`
}

type UpdateNotesRequest struct {
	AdminNotes string `json:"adminNotes"`
}

// --- Approval ---

type ApproveOrderRequest struct {
	OrderNumber string `json:"orderNumber" binding:"required"`
	Action      string `json:"action" binding:"required"`
}

type ApproveOrderResponse struct {
	Success          bool         `json:"success"`
	Message          string       `json:"message"`
	Order            OrderSummary `json:"order"`
	Subscriptions    int          `json:"subscriptions"`
	AlreadyProcessed bool         `json:"alreadyProcessed,omitempty"`
}

// --- Subscriptions ---

type SubscriptionResponse struct {
	ID          uuid.UUID  `json:"id"`
	ProductID   uuid.UUID  `json:"productId"`
	ProductName string     `json:"productName"`
	OrderID     *uuid.UUID `json:"orderId,omitempty"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     time.Time  `json:"endDate"`
	IsActive    bool       `json:"isActive"`
	DaysLeft    int        `json:"daysLeft"`
}

// --- Admin stats ---

type TopProductResponse struct {
	ProductID uuid.UUID       `json:"productId"`
	Slug      string          `json:"slug"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type StatsResponse struct {
	TotalRevenue        decimal.Decimal           `json:"totalRevenue"`
	TotalOrders         int                       `json:"totalOrders"`
	OrdersByStatus      map[model.OrderStatus]int `json:"ordersByStatus"`
	Customers           int                       `json:"customers"`
	ActiveSubscriptions int                       `json:"activeSubscriptions"`
	TopProducts         []TopProductResponse      `json:"topProducts"`
}

// --- Payment ---

type BankDetailsResponse struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	AccountHolder string `json:"accountHolder"`
	Currency      string `json:"currency"`
}
