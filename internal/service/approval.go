package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/flicky/premium-store/internal/metrics"
	"github.com/flicky/premium-store/internal/model"
	"github.com/flicky/premium-store/internal/repository"
)

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionApprove:
		return ActionApprove, nil
	case ActionReject:
		return ActionReject, nil
	}
	return "", ErrInvalidAction
}

// Target is the status the action moves an order to.
func (a Action) Target() model.OrderStatus {
	if a == ActionApprove {
		return model.OrderStatusCompleted
	}
	return model.OrderStatusCancelled
}

type ApprovalResult struct {
	OrderNumber          string
	Status               model.OrderStatus
	SubscriptionsCreated int
	// AlreadyProcessed is set when the order already carried this decision;
	// nothing was written.
	AlreadyProcessed bool
	Order            *model.Order
}

// Message is the operator-facing summary shared by the API and the bot.
func (r *ApprovalResult) Message() string {
	if r.AlreadyProcessed {
		return fmt.Sprintf("Order %s was already %s", r.OrderNumber, strings.ToLower(string(r.Status)))
	}
	if r.Status == model.OrderStatusCompleted {
		return fmt.Sprintf("Order %s approved, %d subscription(s) activated", r.OrderNumber, r.SubscriptionsCreated)
	}
	return fmt.Sprintf("Order %s rejected", r.OrderNumber)
}

// ApprovalService is the single entry point for admin decisions, shared by
// the HTTP endpoint and the chat bot.
type ApprovalService struct {
	orderRepo     repository.OrderRepository
	userRepo      repository.UserRepository
	notifier      AdminNotifier
	mailer        CustomerMailer
	broadcaster   StatusBroadcaster
	cache         ProductCache
	metrics       *metrics.Metrics
	log           *slog.Logger
	notifyTimeout time.Duration
	now           func() time.Time
}

type ApprovalDeps struct {
	Orders        repository.OrderRepository
	Users         repository.UserRepository
	Notifier      AdminNotifier
	Mailer        CustomerMailer
	Broadcaster   StatusBroadcaster
	Cache         ProductCache
	Metrics       *metrics.Metrics
	Log           *slog.Logger
	NotifyTimeout time.Duration
}

func NewApprovalService(d ApprovalDeps) *ApprovalService {
	if d.NotifyTimeout <= 0 {
		d.NotifyTimeout = 10 * time.Second
	}
	return &ApprovalService{
		orderRepo: d.Orders, userRepo: d.Users, notifier: d.Notifier, mailer: d.Mailer,
		broadcaster: d.Broadcaster, cache: d.Cache, metrics: d.Metrics, log: d.Log,
		notifyTimeout: d.NotifyTimeout, now: time.Now,
	}
}

// Process applies the decision under a row lock. Concurrent or repeated
// decisions serialize on the lock; the loser sees the committed status and
// reports AlreadyProcessed without creating anything.
func (s *ApprovalService) Process(ctx context.Context, orderNumber string, action Action) (*ApprovalResult, error) {
	if action != ActionApprove && action != ActionReject {
		return nil, ErrInvalidAction
	}
	target := action.Target()
	result := &ApprovalResult{OrderNumber: orderNumber}

	err := s.orderRepo.WithinTx(ctx, func(tx repository.OrderTx) error {
		order, err := tx.GetByNumberForUpdate(ctx, orderNumber)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		result.Order = order

		if order.Status == target {
			result.AlreadyProcessed = true
			return nil
		}
		if !order.Status.CanTransitionTo(target) {
			return fmt.Errorf("%w: %s order cannot be %s", ErrInvalidTransition, order.Status, target)
		}

		now := s.now()
		switch action {
		case ActionApprove:
			subs := subscriptionsFor(order, now)
			if err := tx.UpdateStatus(ctx, order.ID, target, &now); err != nil {
				return err
			}
			if err := tx.CreateSubscriptions(ctx, subs); err != nil {
				return err
			}
			order.VerifiedAt = &now
			result.SubscriptionsCreated = len(subs)
		case ActionReject:
			if err := tx.UpdateStatus(ctx, order.ID, target, nil); err != nil {
				return err
			}
			if err := tx.ReleaseStock(ctx, order.Items); err != nil {
				return err
			}
		}
		order.Status = target
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Status = result.Order.Status
	s.metrics.OrderDecided(string(result.Status), result.AlreadyProcessed)
	s.log.Info("order decision",
		"order_number", orderNumber,
		"action", string(action),
		"status", string(result.Status),
		"subscriptions", result.SubscriptionsCreated,
		"already_processed", result.AlreadyProcessed,
	)

	if !result.AlreadyProcessed {
		if action == ActionReject {
			invalidateProducts(ctx, s.cache, result.Order.Items)
		}
		s.announce(ctx, result)
	}
	return result, nil
}

// Decide is Process for callers that only carry a yes/no decision and want
// the operator-facing reply.
func (s *ApprovalService) Decide(ctx context.Context, orderNumber string, approve bool) (string, error) {
	action := ActionReject
	if approve {
		action = ActionApprove
	}
	result, err := s.Process(ctx, orderNumber, action)
	if err != nil {
		return "", err
	}
	return result.Message(), nil
}

// subscriptionsFor creates one grant per order line, not per unit.
func subscriptionsFor(order *model.Order, start time.Time) []model.Subscription {
	subs := make([]model.Subscription, 0, len(order.Items))
	for i := range order.Items {
		item := &order.Items[i]
		orderID, itemID := order.ID, item.ID
		subs = append(subs, model.Subscription{
			UserID:      order.UserID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			OrderID:     &orderID,
			OrderItemID: &itemID,
			StartDate:   start,
			EndDate:     model.AddMonths(start, item.Months),
			IsActive:    true,
		})
	}
	return subs
}

// announce runs after commit and outlives a cancelled request context.
func (s *ApprovalService) announce(ctx context.Context, result *ApprovalResult) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	order := result.Order
	if s.broadcaster != nil {
		s.broadcaster.PublishOrderStatus(order.UserID, model.OrderStatusEvent{
			Type:        "order.status",
			OrderNumber: order.OrderNumber,
			Status:      order.Status,
			At:          order.UpdatedAt,
		})
	}

	if s.notifier != nil {
		err := s.notifier.NotifyApprovalResult(ctx, order, result.SubscriptionsCreated)
		s.metrics.Notification("telegram", err)
		if err != nil {
			s.log.Error("notify admin of decision", "order_number", order.OrderNumber, "error", err)
		}
	}

	if s.mailer != nil {
		customer, err := s.userRepo.GetByID(ctx, order.UserID)
		if err != nil || customer == nil {
			s.log.Error("load customer for status email", "order_number", order.OrderNumber, "error", err)
			return
		}
		err = s.mailer.SendOrderStatus(ctx, order, customer)
		s.metrics.Notification("email", err)
		if err != nil {
			s.log.Error("send status email", "order_number", order.OrderNumber, "error", err)
		}
	}
}
