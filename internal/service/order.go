package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flicky/premium-store/internal/cart"
	"github.com/flicky/premium-store/internal/catalog"
	"github.com/flicky/premium-store/internal/dto"
	"github.com/flicky/premium-store/internal/metrics"
	"github.com/flicky/premium-store/internal/model"
	"github.com/flicky/premium-store/internal/repository"
	"github.com/flicky/premium-store/internal/upload"
)

type OrderService struct {
	orderRepo    repository.OrderRepository
	productRepo  repository.ProductRepository
	userRepo     repository.UserRepository
	cartRepo     repository.CartRepository
	uploader     ReceiptUploader
	receiptHosts []string
	publisher    EventPublisher
	cache        ProductCache
	metrics      *metrics.Metrics
	log          *slog.Logger
	now          func() time.Time
}

// OrderDeps wires the checkout. ReceiptHosts lists the domains a pre-hosted
// receipt URL may point at.
type OrderDeps struct {
	Orders       repository.OrderRepository
	Products     repository.ProductRepository
	Users        repository.UserRepository
	Carts        repository.CartRepository
	Uploader     ReceiptUploader
	ReceiptHosts []string
	Publisher    EventPublisher
	Cache        ProductCache
	Metrics      *metrics.Metrics
	Log          *slog.Logger
}

func NewOrderService(d OrderDeps) *OrderService {
	return &OrderService{
		orderRepo: d.Orders, productRepo: d.Products, userRepo: d.Users, cartRepo: d.Carts,
		uploader: d.Uploader, receiptHosts: d.ReceiptHosts, publisher: d.Publisher, cache: d.Cache,
		metrics: d.Metrics, log: d.Log, now: time.Now,
	}
}

// NewOrderNumber formats ORD-YYYYMMDD-XXXXXXXX from the UTC date and eight
// random hex digits.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}

// Checkout validates the submission, stores the receipt and persists the
// order. Everything after the order is durable is best-effort.
func (s *OrderService) Checkout(ctx context.Context, userID uuid.UUID, req dto.CreateOrderRequest) (*model.Order, error) {
	if len(req.Items) == 0 {
		return nil, invalid("items", ErrNoItems)
	}
	info := dto.CustomerInfo{
		FullName:       strings.TrimSpace(req.CustomerInfo.FullName),
		Email:          strings.TrimSpace(req.CustomerInfo.Email),
		WhatsAppNumber: strings.TrimSpace(req.CustomerInfo.WhatsAppNumber),
	}
	if info.FullName == "" || info.Email == "" || info.WhatsAppNumber == "" {
		return nil, invalid("customerInfo", ErrMissingCustomerInfo)
	}
	receipt, err := upload.ParseReceipt(req.PaymentReceipt, s.receiptHosts)
	if err != nil {
		return nil, invalid("paymentReceipt", fmt.Errorf("%w: %w", ErrInvalidReceipt, err))
	}

	items, err := s.resolveItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order := &model.Order{
		OrderNumber:   NewOrderNumber(now),
		UserID:        userID,
		Status:        model.OrderStatusPending,
		PaymentMethod: model.PaymentMethodBankTransfer,
		ContactEmail:  info.Email,
		Items:         items,
		TotalAmount:   model.OrderTotal(items),
	}
	order.PaymentReceipt = s.storeReceipt(ctx, order.OrderNumber, receipt)

	if err := s.orderRepo.Create(ctx, order); err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			return nil, invalid("items", ErrInsufficientStock)
		}
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.metrics.OrderCreated()
	invalidateProducts(ctx, s.cache, order.Items)
	s.log.Info("order created", "order_number", order.OrderNumber, "user_id", userID, "total", order.TotalAmount.String())

	if err := s.userRepo.UpdateContact(ctx, userID, info.FullName, info.WhatsAppNumber); err != nil {
		s.log.Warn("update customer contact", "order_number", order.OrderNumber, "error", err)
	}
	if s.cartRepo != nil {
		if err := s.cartRepo.Delete(ctx, userID); err != nil {
			s.log.Warn("clear cart after checkout", "order_number", order.OrderNumber, "error", err)
		}
	}
	msg := model.OrderMessage{OrderID: order.ID, OrderNumber: order.OrderNumber, UserID: userID}
	if err := s.publisher.PublishOrderCreated(ctx, msg); err != nil {
		s.log.Error("publish order created", "order_number", order.OrderNumber, "error", err)
	}
	return order, nil
}

// resolveItems maps client lines onto catalog products and snapshots the
// catalog unit price. A client-sent price is only compared, never trusted.
func (s *OrderService) resolveItems(ctx context.Context, lines []dto.CheckoutItem) ([]model.OrderItem, error) {
	items := make([]model.OrderItem, 0, len(lines))
	for _, line := range lines {
		if line.Quantity < cart.MinQuantity || line.Quantity > cart.MaxQuantity {
			return nil, invalid(line.ID, ErrInvalidQuantity)
		}
		if line.Months < 1 {
			return nil, invalid(line.ID, ErrInvalidDuration)
		}

		product, err := s.productRepo.GetBySlug(ctx, line.ID)
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		if product == nil {
			return nil, invalid(line.ID, ErrUnknownProduct)
		}
		if !catalog.Orderable(product) {
			return nil, invalid(line.ID, ErrProductUnavailable)
		}
		if !catalog.AllowsMonths(product, line.Months) {
			return nil, invalid(line.ID, ErrInvalidDuration)
		}
		if product.Stock < line.Quantity {
			return nil, invalid(line.ID, ErrInsufficientStock)
		}
		if !line.Price.IsZero() && !line.Price.Equal(product.Price) {
			s.log.Warn("client price differs from catalog", "product", product.Slug,
				"client_price", line.Price.String(), "catalog_price", product.Price.String())
		}

		items = append(items, model.OrderItem{
			ProductID:   product.ID,
			ProductSlug: product.Slug,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			Months:      line.Months,
			Price:       product.Price,
		})
	}
	return items, nil
}

func (s *OrderService) storeReceipt(ctx context.Context, orderNumber string, r *upload.Receipt) string {
	if r.Hosted() {
		return r.URL
	}
	if s.uploader == nil {
		s.metrics.ReceiptUploadFailed()
		s.log.Warn("no receipt uploader configured", "order_number", orderNumber)
		return model.ReceiptUploadFailed
	}
	url, err := s.uploader.Upload(ctx, r.Data, orderNumber)
	if err != nil {
		s.metrics.ReceiptUploadFailed()
		s.log.Error("upload payment receipt", "order_number", orderNumber, "error", err)
		return model.ReceiptUploadFailed
	}
	return url
}

func (s *OrderService) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	orders, err := s.orderRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// GetForUser returns the order only to its owner.
func (s *OrderService) GetForUser(ctx context.Context, orderNumber string, userID uuid.UUID) (*model.Order, error) {
	order, err := s.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrOrderAccessDenied
	}
	return order, nil
}

func (s *OrderService) GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	order, err := s.orderRepo.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) List(ctx context.Context, req dto.AdminOrderListRequest) ([]model.Order, int, error) {
	f := repository.OrderFilter{Limit: req.Limit, Offset: (req.Page - 1) * req.Limit}
	if req.Status != "" {
		st, err := model.ParseOrderStatus(strings.ToUpper(req.Status))
		if err != nil {
			return nil, 0, invalid("status", err)
		}
		f.Status = &st
	}
	orders, total, err := s.orderRepo.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

func (s *OrderService) UpdateNotes(ctx context.Context, orderNumber, notes string) error {
	if err := s.orderRepo.UpdateNotes(ctx, orderNumber, notes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("update notes: %w", err)
	}
	return nil
}

// Delete removes the order and its items. Granted subscriptions survive.
func (s *OrderService) Delete(ctx context.Context, orderNumber string) error {
	order, err := s.GetByNumber(ctx, orderNumber)
	if err != nil {
		return err
	}
	if err := s.orderRepo.Delete(ctx, orderNumber); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("delete order: %w", err)
	}
	invalidateProducts(ctx, s.cache, order.Items)
	s.log.Info("order deleted", "order_number", orderNumber)
	return nil
}

// invalidateProducts drops cached pages of products whose stock moved.
func invalidateProducts(ctx context.Context, cache ProductCache, items []model.OrderItem) {
	if cache == nil || len(items) == 0 {
		return
	}
	slugs := make([]string, 0, len(items))
	for _, it := range items {
		slugs = append(slugs, it.ProductSlug)
	}
	cache.Invalidate(ctx, slugs...)
}
