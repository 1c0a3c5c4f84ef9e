package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/premium-store/internal/model"
)

type approvalFixture struct {
	*checkoutFixture
	approvals   *ApprovalService
	notifier    *fakeNotifier
	mailer      *fakeMailer
	broadcaster *fakeBroadcaster
	now         time.Time
}

func newApprovalFixture() *approvalFixture {
	f := &approvalFixture{
		checkoutFixture: newCheckoutFixture(),
		notifier:        &fakeNotifier{},
		mailer:          &fakeMailer{},
		broadcaster:     &fakeBroadcaster{},
		now:             time.Date(2025, time.April, 10, 12, 0, 0, 0, time.UTC),
	}
	f.approvals = NewApprovalService(ApprovalDeps{
		Orders: f.orders, Users: f.users, Notifier: f.notifier, Mailer: f.mailer,
		Broadcaster: f.broadcaster, Cache: f.cache, Log: discardLogger(), NotifyTimeout: time.Second,
	})
	f.approvals.now = func() time.Time { return f.now }
	return f
}

func (f *approvalFixture) placeOrder(t *testing.T, qty, months int) *model.Order {
	t.Helper()
	order, err := f.svc.Checkout(context.Background(), f.user.ID, validRequest(netflixLine(qty, months)))
	require.NoError(t, err)
	return order
}

func TestApprove_EndToEnd(t *testing.T) {
	f := newApprovalFixture()
	order := f.placeOrder(t, 2, 1)

	res, err := f.approvals.Process(context.Background(), order.OrderNumber, ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCompleted, res.Status)
	assert.Equal(t, 1, res.SubscriptionsCreated)
	assert.False(t, res.AlreadyProcessed)

	subs := f.orders.subscriptions()
	require.Len(t, subs, 1)
	sub := subs[0]
	assert.Equal(t, f.user.ID, sub.UserID)
	assert.Equal(t, f.netflix.ID, sub.ProductID)
	assert.Equal(t, f.now, sub.StartDate)
	assert.Equal(t, model.AddMonths(sub.StartDate, 1), sub.EndDate)
	assert.True(t, sub.IsActive)
	require.NotNil(t, sub.OrderItemID)
	assert.Equal(t, order.Items[0].ID, *sub.OrderItemID)

	stored, _ := f.orders.GetByNumber(context.Background(), order.OrderNumber)
	assert.Equal(t, model.OrderStatusCompleted, stored.Status)
	require.NotNil(t, stored.VerifiedAt)
	assert.Equal(t, f.now, *stored.VerifiedAt)

	assert.Equal(t, []string{order.OrderNumber + ":COMPLETED"}, f.notifier.results)
	assert.Equal(t, []string{"ali@example.com:COMPLETED"}, f.mailer.statuses)
	require.Len(t, f.broadcaster.events, 1)
	assert.Equal(t, model.OrderStatusCompleted, f.broadcaster.events[0].Status)
}

func TestApprove_MonthEndClamps(t *testing.T) {
	f := newApprovalFixture()
	f.now = time.Date(2025, time.January, 31, 9, 0, 0, 0, time.UTC)
	order := f.placeOrder(t, 1, 1)

	_, err := f.approvals.Process(context.Background(), order.OrderNumber, ActionApprove)
	require.NoError(t, err)
	subs := f.orders.subscriptions()
	require.Len(t, subs, 1)
	assert.Equal(t, time.Date(2025, time.February, 28, 9, 0, 0, 0, time.UTC), subs[0].EndDate)
}

func TestApprove_OneSubscriptionPerItem(t *testing.T) {
	f := newApprovalFixture()
	req := validRequest(netflixLine(3, 1), netflixLine(1, 12))
	order, err := f.svc.Checkout(context.Background(), f.user.ID, req)
	require.NoError(t, err)

	res, err := f.approvals.Process(context.Background(), order.OrderNumber, ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, 2, res.SubscriptionsCreated)
	assert.Len(t, f.orders.subscriptions(), 2)
}

func TestApprove_RepeatIsNoop(t *testing.T) {
	f := newApprovalFixture()
	order := f.placeOrder(t, 1, 1)

	_, err := f.approvals.Process(context.Background(), order.OrderNumber, ActionApprove)
	require.NoError(t, err)

	res, err := f.approvals.Process(context.Background(), order.OrderNumber, ActionApprove)
	require.NoError(t, err)
	assert.True(t, res.AlreadyProcessed)
	assert.Equal(t, model.OrderStatusCompleted, res.Status)
	assert.Equal(t, 0, res.SubscriptionsCreated)
	assert.Len(t, f.orders.subscriptions(), 1)
	assert.Len(t, f.notifier.results, 1)
}

func TestApprove_ConcurrentDecisionsCreateOneSet(t *testing.T) {
	f := newApprovalFixture()
	order := f.placeOrder(t, 2, 3)

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan *ApprovalResult, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.approvals.Process(context.Background(), order.OrderNumber, ActionApprove)
			if assert.NoError(t, err) {
				results <- res
			}
		}()
	}
	wg.Wait()
	close(results)

	fresh := 0
	for res := range results {
		if !res.AlreadyProcessed {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
	assert.Len(t, f.orders.subscriptions(), 1)
}

func TestReject_ReleasesStockAndIsFinal(t *testing.T) {
	f := newApprovalFixture()
	order := f.placeOrder(t, 4, 1)
	assert.Equal(t, 6, f.products.stockOf(f.netflix.ID))

	res, err := f.approvals.Process(context.Background(), order.OrderNumber, ActionReject)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, res.Status)
	assert.Equal(t, 10, f.products.stockOf(f.netflix.ID))
	assert.Empty(t, f.orders.subscriptions())

	stored, _ := f.orders.GetByNumber(context.Background(), order.OrderNumber)
	assert.Nil(t, stored.VerifiedAt)

	_, err = f.approvals.Process(context.Background(), order.OrderNumber, ActionApprove)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, f.orders.subscriptions())

	again, err := f.approvals.Process(context.Background(), order.OrderNumber, ActionReject)
	require.NoError(t, err)
	assert.True(t, again.AlreadyProcessed)
	assert.Equal(t, 10, f.products.stockOf(f.netflix.ID))

	// one invalidation from checkout, one from the release
	assert.Equal(t, []string{"netflix", "netflix"}, f.cache.invalidated())
}

func TestReject_AfterApproveConflicts(t *testing.T) {
	f := newApprovalFixture()
	order := f.placeOrder(t, 1, 1)

	_, err := f.approvals.Process(context.Background(), order.OrderNumber, ActionApprove)
	require.NoError(t, err)
	_, err = f.approvals.Process(context.Background(), order.OrderNumber, ActionReject)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored, _ := f.orders.GetByNumber(context.Background(), order.OrderNumber)
	assert.Equal(t, model.OrderStatusCompleted, stored.Status)
}

func TestApprove_FailedGrantLeavesOrderPending(t *testing.T) {
	f := newApprovalFixture()
	order := f.placeOrder(t, 1, 1)
	f.orders.subsErr = errors.New("insert failed")

	_, err := f.approvals.Process(context.Background(), order.OrderNumber, ActionApprove)
	require.Error(t, err)

	stored, _ := f.orders.GetByNumber(context.Background(), order.OrderNumber)
	assert.Equal(t, model.OrderStatusPending, stored.Status)
	assert.Empty(t, f.notifier.results)
}

func TestProcess_Errors(t *testing.T) {
	f := newApprovalFixture()

	_, err := f.approvals.Process(context.Background(), "ORD-20250101-DEADBEEF", ActionApprove)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = f.approvals.Process(context.Background(), "ORD-20250101-DEADBEEF", Action("refund"))
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestDecide(t *testing.T) {
	f := newApprovalFixture()
	approved := f.placeOrder(t, 1, 3)
	rejected := f.placeOrder(t, 1, 1)

	reply, err := f.approvals.Decide(context.Background(), approved.OrderNumber, true)
	require.NoError(t, err)
	assert.Equal(t, "Order "+approved.OrderNumber+" approved, 1 subscription(s) activated", reply)

	reply, err = f.approvals.Decide(context.Background(), rejected.OrderNumber, false)
	require.NoError(t, err)
	assert.Equal(t, "Order "+rejected.OrderNumber+" rejected", reply)

	reply, err = f.approvals.Decide(context.Background(), approved.OrderNumber, true)
	require.NoError(t, err)
	assert.Equal(t, "Order "+approved.OrderNumber+" was already completed", reply)

	_, err = f.approvals.Decide(context.Background(), approved.OrderNumber, false)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction(" Approve ")
	require.NoError(t, err)
	assert.Equal(t, ActionApprove, a)

	a, err = ParseAction("reject")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, a.Target())

	_, err = ParseAction("delete")
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestApprovalResult_Message(t *testing.T) {
	tests := []struct {
		result ApprovalResult
		want   string
	}{
		{ApprovalResult{OrderNumber: "ORD-1", Status: model.OrderStatusCompleted, SubscriptionsCreated: 2}, "Order ORD-1 approved, 2 subscription(s) activated"},
		{ApprovalResult{OrderNumber: "ORD-1", Status: model.OrderStatusCancelled}, "Order ORD-1 rejected"},
		{ApprovalResult{OrderNumber: "ORD-1", Status: model.OrderStatusCompleted, AlreadyProcessed: true}, "Order ORD-1 was already completed"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.result.Message())
	}
}
