package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flicky/premium-store/internal/dto"
	"github.com/flicky/premium-store/internal/model"
	"github.com/flicky/premium-store/internal/service"
)

type ApprovalService interface {
	Process(ctx context.Context, orderNumber string, action service.Action) (*service.ApprovalResult, error)
}

type AdminOrderService interface {
	GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error)
	List(ctx context.Context, req dto.AdminOrderListRequest) ([]model.Order, int, error)
	UpdateNotes(ctx context.Context, orderNumber, notes string) error
	Delete(ctx context.Context, orderNumber string) error
}

type OrderSubscriptions interface {
	ListForOrder(ctx context.Context, orderID uuid.UUID) ([]dto.SubscriptionResponse, error)
}

type StatsService interface {
	Dashboard(ctx context.Context) (*dto.StatsResponse, error)
	Customers(ctx context.Context, page, limit int) (*dto.CustomerListResponse, error)
}

type AdminHandler struct {
	approvals     ApprovalService
	orders        AdminOrderService
	subscriptions OrderSubscriptions
	stats         StatsService
}

func NewAdminHandler(approvals ApprovalService, orders AdminOrderService, subscriptions OrderSubscriptions, stats StatsService) *AdminHandler {
	return &AdminHandler{approvals: approvals, orders: orders, subscriptions: subscriptions, stats: stats}
}

// ApproveOrder is the HTTP entry to the same decision the chat bot makes.
func (h *AdminHandler) ApproveOrder(c *gin.Context) {
	var req dto.ApproveOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	action, err := service.ParseAction(req.Action)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.approvals.Process(c.Request.Context(), req.OrderNumber, action)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ApproveOrderResponse{
		Success: true,
		Message: result.Message(),
		Order: dto.OrderSummary{
			ID:          result.Order.ID,
			OrderNumber: result.OrderNumber,
			Status:      result.Status,
		},
		Subscriptions:    result.SubscriptionsCreated,
		AlreadyProcessed: result.AlreadyProcessed,
	})
}

func (h *AdminHandler) ListOrders(c *gin.Context) {
	var req dto.AdminOrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}
	orders, total, err := h.orders.List(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderList(orders, total))
}

func (h *AdminHandler) GetOrder(c *gin.Context) {
	order, err := h.orders.GetByNumber(c.Request.Context(), c.Param("orderNumber"))
	if err != nil {
		respondError(c, err)
		return
	}
	subs, err := h.subscriptions.ListForOrder(c.Request.Context(), order.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AdminOrderResponse{OrderResponse: toOrderResponse(order), Subscriptions: subs})
}

func (h *AdminHandler) UpdateNotes(c *gin.Context) {
	var req dto.UpdateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.orders.UpdateNotes(c.Request.Context(), c.Param("orderNumber"), req.AdminNotes); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notes updated"})
}

func (h *AdminHandler) DeleteOrder(c *gin.Context) {
	if err := h.orders.Delete(c.Request.Context(), c.Param("orderNumber")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) Stats(c *gin.Context) {
	resp, err := h.stats.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AdminHandler) Customers(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)
	if limit > 100 {
		limit = 100
	}
	resp, err := h.stats.Customers(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 1 {
		return def
	}
	return v
}
