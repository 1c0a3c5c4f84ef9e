package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flicky/premium-store/internal/cart"
	"github.com/flicky/premium-store/internal/model"
	"github.com/flicky/premium-store/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- users ---

type mockUserRepo struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*model.User
	contacts int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (m *mockUserRepo) add(u *model.User) *model.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.users[u.ID] = u
	return u
}

func (m *mockUserRepo) Upsert(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			u.IsAdmin = u.IsAdmin || user.IsAdmin
			*user = *u
			return nil
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) byEmail(email string) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (m *mockUserRepo) UpdateContact(_ context.Context, id uuid.UUID, name, whatsapp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.Name, u.WhatsAppNumber = name, whatsapp
	m.contacts++
	return nil
}

func (m *mockUserRepo) ListCustomers(_ context.Context, limit, offset int) ([]model.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, u := range m.users {
		if !u.IsAdmin {
			out = append(out, *u)
		}
	}
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

// --- products ---

type mockProductRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*model.Product
	inUse    map[uuid.UUID]bool
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{products: make(map[uuid.UUID]*model.Product), inUse: make(map[uuid.UUID]bool)}
}

func (m *mockProductRepo) add(p *model.Product) *model.Product {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.products[p.ID] = p
	return p
}

func (m *mockProductRepo) stockOf(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

func (m *mockProductRepo) Create(_ context.Context, product *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	product.ID = uuid.New()
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *mockProductRepo) InsertIfMissing(ctx context.Context, product *model.Product) (bool, error) {
	if p, _ := m.GetBySlug(ctx, product.Slug); p != nil {
		return false, nil
	}
	return true, m.Create(ctx, product)
}

func (m *mockProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepo) GetBySlug(_ context.Context, slug string) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockProductRepo) List(_ context.Context, f repository.ProductFilter) ([]model.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Product
	for _, p := range m.products {
		if f.ActiveOnly && !p.IsActive {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockProductRepo) Update(_ context.Context, product *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return pgx.ErrNoRows
	}
	if m.inUse[id] {
		return repository.ErrProductInUse
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepo) adjustStock(id uuid.UUID, delta int) error {
	p, ok := m.products[id]
	if !ok {
		return errors.New("no such product")
	}
	if p.Stock+delta < 0 {
		return repository.ErrInsufficientStock
	}
	p.Stock += delta
	return nil
}

// --- orders ---

// mockOrderRepo holds one lock for the whole of WithinTx, which serializes
// callers the way the row lock does. Writes are staged and applied only when
// the callback succeeds.
type mockOrderRepo struct {
	mu       sync.Mutex
	orders   map[string]*model.Order
	subs     []model.Subscription
	products *mockProductRepo
	subsErr  error
}

func newMockOrderRepo(products *mockProductRepo) *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]*model.Order), products: products}
}

func copyOrder(o *model.Order) *model.Order {
	cp := *o
	cp.Items = append([]model.OrderItem(nil), o.Items...)
	return &cp
}

func (m *mockOrderRepo) Create(_ context.Context, order *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.products != nil {
		m.products.mu.Lock()
		defer m.products.mu.Unlock()
		for i, it := range order.Items {
			if err := m.products.adjustStock(it.ProductID, -it.Quantity); err != nil {
				for _, done := range order.Items[:i] {
					_ = m.products.adjustStock(done.ProductID, done.Quantity)
				}
				return repository.ErrInsufficientStock
			}
		}
	}
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	for i := range order.Items {
		order.Items[i].ID = uuid.New()
		order.Items[i].OrderID = order.ID
	}
	m.orders[order.OrderNumber] = copyOrder(order)
	return nil
}

func (m *mockOrderRepo) GetByNumber(_ context.Context, orderNumber string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderNumber]
	if !ok {
		return nil, nil
	}
	return copyOrder(o), nil
}

func (m *mockOrderRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *copyOrder(o))
		}
	}
	return out, nil
}

func (m *mockOrderRepo) List(_ context.Context, f repository.OrderFilter) ([]model.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Order
	for _, o := range m.orders {
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		out = append(out, *copyOrder(o))
	}
	return out, len(out), nil
}

func (m *mockOrderRepo) UpdateNotes(_ context.Context, orderNumber, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderNumber]
	if !ok {
		return pgx.ErrNoRows
	}
	o.AdminNotes = notes
	return nil
}

func (m *mockOrderRepo) Delete(_ context.Context, orderNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderNumber]
	if !ok {
		return pgx.ErrNoRows
	}
	if !o.Status.Terminal() && m.products != nil {
		m.products.mu.Lock()
		for _, it := range o.Items {
			_ = m.products.adjustStock(it.ProductID, it.Quantity)
		}
		m.products.mu.Unlock()
	}
	for i := range m.subs {
		if m.subs[i].OrderID != nil && *m.subs[i].OrderID == o.ID {
			m.subs[i].OrderID = nil
			m.subs[i].OrderItemID = nil
		}
	}
	delete(m.orders, orderNumber)
	return nil
}

func (m *mockOrderRepo) WithinTx(ctx context.Context, fn func(tx repository.OrderTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &mockOrderTx{repo: m, statuses: make(map[uuid.UUID]statusUpdate)}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (m *mockOrderRepo) subscriptions() []model.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Subscription(nil), m.subs...)
}

type statusUpdate struct {
	status     model.OrderStatus
	verifiedAt *time.Time
}

type mockOrderTx struct {
	repo     *mockOrderRepo
	statuses map[uuid.UUID]statusUpdate
	subs     []model.Subscription
	released []model.OrderItem
}

func (t *mockOrderTx) GetByNumberForUpdate(_ context.Context, orderNumber string) (*model.Order, error) {
	o, ok := t.repo.orders[orderNumber]
	if !ok {
		return nil, nil
	}
	return copyOrder(o), nil
}

func (t *mockOrderTx) UpdateStatus(_ context.Context, id uuid.UUID, status model.OrderStatus, verifiedAt *time.Time) error {
	t.statuses[id] = statusUpdate{status: status, verifiedAt: verifiedAt}
	return nil
}

func (t *mockOrderTx) CreateSubscriptions(_ context.Context, subs []model.Subscription) error {
	if t.repo.subsErr != nil {
		return t.repo.subsErr
	}
	for _, s := range subs {
		for _, existing := range t.repo.subs {
			if existing.OrderItemID != nil && s.OrderItemID != nil && *existing.OrderItemID == *s.OrderItemID {
				return errors.New("duplicate subscription for order item")
			}
		}
		s.ID = uuid.New()
		t.subs = append(t.subs, s)
	}
	return nil
}

func (t *mockOrderTx) ReleaseStock(_ context.Context, items []model.OrderItem) error {
	t.released = append(t.released, items...)
	return nil
}

func (t *mockOrderTx) commit() {
	for _, o := range t.repo.orders {
		if u, ok := t.statuses[o.ID]; ok {
			o.Status = u.status
			if u.verifiedAt != nil {
				o.VerifiedAt = u.verifiedAt
			}
		}
	}
	t.repo.subs = append(t.repo.subs, t.subs...)
	if t.repo.products != nil {
		t.repo.products.mu.Lock()
		for _, it := range t.released {
			_ = t.repo.products.adjustStock(it.ProductID, it.Quantity)
		}
		t.repo.products.mu.Unlock()
	}
}

// --- cart ---

type mockCartRepo struct {
	mu    sync.Mutex
	carts map[uuid.UUID]*cart.Cart
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{carts: make(map[uuid.UUID]*cart.Cart)}
}

func (m *mockCartRepo) Get(_ context.Context, userID uuid.UUID) (*cart.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return &cart.Cart{}, nil
	}
	return &cart.Cart{Lines: append([]cart.Item(nil), c.Lines...)}, nil
}

func (m *mockCartRepo) Save(_ context.Context, userID uuid.UUID, c *cart.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(c.Items()) == 0 {
		delete(m.carts, userID)
		return nil
	}
	m.carts[userID] = &cart.Cart{Lines: append([]cart.Item(nil), c.Lines...)}
	return nil
}

func (m *mockCartRepo) Delete(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	return nil
}

// --- subscriptions & stats ---

type mockSubscriptionRepo struct {
	subs []model.Subscription
}

func (m *mockSubscriptionRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]model.Subscription, error) {
	var out []model.Subscription
	for _, s := range m.subs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSubscriptionRepo) ListByOrderID(_ context.Context, orderID uuid.UUID) ([]model.Subscription, error) {
	var out []model.Subscription
	for _, s := range m.subs {
		if s.OrderID != nil && *s.OrderID == orderID {
			out = append(out, s)
		}
	}
	return out, nil
}

type mockStatsRepo struct {
	stats *model.DashboardStats
	topN  int
}

func (m *mockStatsRepo) Dashboard(_ context.Context, _ time.Time, topN int) (*model.DashboardStats, error) {
	m.topN = topN
	return m.stats, nil
}

// --- collaborators ---

type fakeUploader struct {
	url   string
	err   error
	calls int
}

func (f *fakeUploader) Upload(_ context.Context, _ []byte, _ string) (string, error) {
	f.calls++
	return f.url, f.err
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []model.OrderMessage
	err  error
}

func (f *fakePublisher) PublishOrderCreated(_ context.Context, msg model.OrderMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return f.err
}

type fakeNotifier struct {
	mu       sync.Mutex
	newOrder []string
	results  []string
}

func (f *fakeNotifier) NotifyNewOrder(_ context.Context, order *model.Order, _ *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newOrder = append(f.newOrder, order.OrderNumber)
	return nil
}

func (f *fakeNotifier) NotifyApprovalResult(_ context.Context, order *model.Order, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, order.OrderNumber+":"+string(order.Status))
	return nil
}

type fakeMailer struct {
	mu       sync.Mutex
	statuses []string
}

func (f *fakeMailer) SendOrderConfirmation(context.Context, *model.Order, *model.User) error {
	return nil
}

func (f *fakeMailer) SendOrderStatus(_ context.Context, order *model.Order, customer *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, customer.Email+":"+string(order.Status))
	return nil
}

type fakeProductCache struct {
	mu    sync.Mutex
	slugs []string
}

func (f *fakeProductCache) Invalidate(_ context.Context, slugs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slugs = append(f.slugs, slugs...)
}

func (f *fakeProductCache) invalidated() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.slugs...)
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []model.OrderStatusEvent
}

func (f *fakeBroadcaster) PublishOrderStatus(_ uuid.UUID, event model.OrderStatusEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}
