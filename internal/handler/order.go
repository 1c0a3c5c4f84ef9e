package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flicky/premium-store/internal/dto"
	"github.com/flicky/premium-store/internal/middleware"
	"github.com/flicky/premium-store/internal/model"
	"github.com/flicky/premium-store/internal/payment"
)

type OrderService interface {
	Checkout(ctx context.Context, userID uuid.UUID, req dto.CreateOrderRequest) (*model.Order, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	GetForUser(ctx context.Context, orderNumber string, userID uuid.UUID) (*model.Order, error)
}

type OrderHandler struct {
	orderService OrderService
	bank         payment.BankDetails
}

func NewOrderHandler(orderService OrderService, bank payment.BankDetails) *OrderHandler {
	return &OrderHandler{orderService: orderService, bank: bank}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.orderService.Checkout(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.CreateOrderResponse{
		Success:     true,
		OrderNumber: order.OrderNumber,
		Order:       dto.OrderSummary{ID: order.ID, OrderNumber: order.OrderNumber, Status: order.Status},
	})
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.orderService.ListByUserID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderList(orders, len(orders)))
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetForUser(c.Request.Context(), c.Param("orderNumber"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

// PaymentQR renders the bank transfer payload for the order as a PNG.
func (h *OrderHandler) PaymentQR(c *gin.Context) {
	order, err := h.orderService.GetForUser(c.Request.Context(), c.Param("orderNumber"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	png, err := h.bank.QRCode(order.OrderNumber, order.TotalAmount)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "render payment qr", "order_number", order.OrderNumber, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}

func (h *OrderHandler) BankDetails(c *gin.Context) {
	c.JSON(http.StatusOK, dto.BankDetailsResponse{
		BankName:      h.bank.BankName,
		AccountNumber: h.bank.AccountNumber,
		AccountHolder: h.bank.AccountHolder,
		Currency:      h.bank.Currency,
	})
}

func toOrderList(orders []model.Order, total int) dto.OrderListResponse {
	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, toOrderResponse(&orders[i]))
	}
	return dto.OrderListResponse{Orders: items, Total: total}
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, dto.OrderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductSlug,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Months:      item.Months,
			Price:       item.Price,
			Subtotal:    item.Subtotal(),
		})
	}
	return dto.OrderResponse{
		ID:             order.ID,
		OrderNumber:    order.OrderNumber,
		UserID:         order.UserID,
		Status:         order.Status,
		TotalAmount:    order.TotalAmount,
		PaymentMethod:  order.PaymentMethod,
		PaymentReceipt: order.PaymentReceipt,
		ContactEmail:   order.ContactEmail,
		AdminNotes:     order.AdminNotes,
		VerifiedAt:     order.VerifiedAt,
		Items:          items,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}
