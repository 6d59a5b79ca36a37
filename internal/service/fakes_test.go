package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/apperrors"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/clients"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/config"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/models"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/token"
)

// memOrderRepo is an in-memory OrderRepository with the same guarded-update
// contract as the Postgres implementation.
type memOrderRepo struct {
	mu      sync.Mutex
	orders  map[string]*models.Order
	nextNum int64
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]*models.Order), nextNum: 100}
}

func (r *memOrderRepo) Create(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextNum++
	order.Number = r.nextNum
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *memOrderRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *order
	return &cp, nil
}

func (r *memOrderRepo) GetByNumber(ctx context.Context, number int64) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.Number == number {
			cp := *order
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *memOrderRepo) List(ctx context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Order
	for _, order := range r.orders {
		if filter.Status != nil && order.Status != *filter.Status {
			continue
		}
		if filter.Phone != "" && order.CustomerPhone != filter.Phone {
			continue
		}
		cp := *order
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (r *memOrderRepo) SetGatewayRef(ctx context.Context, id, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	order.GatewayRef = ref
	return nil
}

func (r *memOrderRepo) MarkPaid(ctx context.Context, id, gatewayRef string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok || order.Status != models.OrderStatusPending {
		return false, nil
	}
	order.Status = models.OrderStatusPaid
	order.PaymentStatus = models.PaymentStatusSucceeded
	if gatewayRef != "" {
		order.GatewayRef = gatewayRef
	}
	return true, nil
}

func (r *memOrderRepo) MarkPaymentFailed(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok || order.PaymentStatus != models.PaymentStatusPending {
		return false, nil
	}
	order.PaymentStatus = models.PaymentStatusFailed
	return true, nil
}

func (r *memOrderRepo) AdvanceStatus(ctx context.Context, id string, from, to models.OrderStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	return true, nil
}

func (r *memOrderRepo) Cancel(ctx context.Context, id string, paymentStatus models.PaymentStatus, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok || order.Status.IsTerminal() {
		return false, nil
	}
	order.Status = models.OrderStatusCancelled
	order.PaymentStatus = paymentStatus
	if order.Notes != "" {
		order.Notes += "; "
	}
	order.Notes += reason
	return true, nil
}

func (r *memOrderRepo) CompletePickup(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok || order.Status.IsTerminal() || order.PaymentStatus != models.PaymentStatusSucceeded {
		return false, nil
	}
	now := time.Now().UTC()
	order.Status = models.OrderStatusCompleted
	order.CompletedAt = &now
	return true, nil
}

func (r *memOrderRepo) CompletedTotalByPhone(ctx context.Context, phone string) (int64, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	var count int
	for _, order := range r.orders {
		if order.CustomerPhone == phone && order.Status == models.OrderStatusCompleted {
			total += order.Total.Amount
			count++
		}
	}
	return total, count, nil
}

type memProductRepo struct {
	products map[string]*models.Product
}

func (r *memProductRepo) ListMenu(ctx context.Context, category string) ([]*models.Product, error) {
	var out []*models.Product
	for _, p := range r.products {
		if p.Available && (category == "" || p.Category == category) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memProductRepo) GetByID(ctx context.Context, id string) (*models.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return p, nil
}

func (r *memProductRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	out := make(map[string]*models.Product)
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (r *memProductRepo) Update(ctx context.Context, id string, req *models.UpdateProductRequest) (*models.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if req.Price != nil {
		p.Price = models.NewMoney(*req.Price, p.Price.Currency)
	}
	if req.Available != nil {
		p.Available = *req.Available
	}
	return p, nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (r *memAuditRepo) Append(ctx context.Context, entry *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memAuditRepo) ListRecent(ctx context.Context, limit int) ([]*models.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries, nil
}

type memCache struct {
	mu     sync.Mutex
	orders map[string]*models.Order
}

func newMemCache() *memCache {
	return &memCache{orders: make(map[string]*models.Order)}
}

func (c *memCache) Get(ctx context.Context, id string) (*models.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orders[id], nil
}

func (c *memCache) Set(ctx context.Context, order *models.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *order
	c.orders[order.ID] = &cp
	return nil
}

func (c *memCache) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.orders, id)
	return nil
}

// fakePublisher records published event types in order.
type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *fakePublisher) record(event string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	copy(out, p.events)
	return out
}

func (p *fakePublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	return p.record("order.created")
}

func (p *fakePublisher) PublishOrderPaid(ctx context.Context, order *models.Order) error {
	return p.record("order.paid")
}

func (p *fakePublisher) PublishOrderStatusChanged(ctx context.Context, order *models.Order, previous models.OrderStatus) error {
	return p.record("order.status_changed")
}

func (p *fakePublisher) PublishOrderCancelled(ctx context.Context, order *models.Order, reason string) error {
	return p.record("order.cancelled")
}

func (p *fakePublisher) PublishOrderCompleted(ctx context.Context, order *models.Order) error {
	return p.record("order.completed")
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *fakeNotifier) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, "confirmation:"+order.ID)
	return nil
}

func (n *fakeNotifier) SendOrderReady(ctx context.Context, order *models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, "ready:"+order.ID)
	return nil
}

type fakeCheckout struct {
	fail bool
}

func (c *fakeCheckout) CreateCheckoutSession(ctx context.Context, order *models.Order) (*clients.CheckoutSession, error) {
	if c.fail {
		return nil, context.DeadlineExceeded
	}
	return &clients.CheckoutSession{
		ID:  "cs_" + order.ID,
		URL: "https://gateway.example/pay/cs_" + order.ID,
	}, nil
}

// testEnv wires the services against in-memory collaborators.
type testEnv struct {
	orderRepo   *memOrderRepo
	productRepo *memProductRepo
	auditRepo   *memAuditRepo
	cache       *memCache
	publisher   *fakePublisher
	notifier    *fakeNotifier
	checkout    *fakeCheckout
	signer      *token.Signer
	cfg         *config.Config

	orders  *OrderService
	pickup  *PickupService
	webhook *WebhookService
}

const testSigningKey = "test-signing-key"

func newTestEnv() *testEnv {
	cfg := &config.Config{
		Features: config.FeaturesConfig{
			EnableOrderCaching: true,
			EnableOrderEvents:  true,
			// Notifications run on background goroutines; keep them out of
			// deterministic assertions.
			EnableNotifications: false,
		},
	}

	signer, err := token.New(testSigningKey)
	if err != nil {
		panic(err)
	}

	logger := newNopLogger()

	env := &testEnv{
		orderRepo: newMemOrderRepo(),
		productRepo: &memProductRepo{products: map[string]*models.Product{
			"p-burger": {
				ID:        "p-burger",
				Name:      "Classic Burger",
				Category:  "mains",
				Price:     models.NewMoney(12.90, "EUR"),
				Available: true,
			},
			"p-fries": {
				ID:        "p-fries",
				Name:      "Fries",
				Category:  "sides",
				Price:     models.NewMoney(4.50, "EUR"),
				Available: true,
			},
			"p-retired": {
				ID:        "p-retired",
				Name:      "Seasonal Special",
				Category:  "mains",
				Price:     models.NewMoney(9.00, "EUR"),
				Available: false,
			},
		}},
		auditRepo: &memAuditRepo{},
		cache:     newMemCache(),
		publisher: &fakePublisher{},
		notifier:  &fakeNotifier{},
		checkout:  &fakeCheckout{},
		signer:    signer,
		cfg:       cfg,
	}

	env.orders = NewOrderService(
		env.orderRepo, env.productRepo, env.auditRepo, env.cache,
		env.checkout, env.notifier, env.publisher, signer, cfg, logger,
	)
	env.pickup = NewPickupService(env.orderRepo, env.auditRepo, env.cache, env.publisher, signer, cfg, logger)
	env.webhook = NewWebhookService(env.orderRepo, env.cache, alwaysValidVerifier{}, env.publisher, cfg, logger)

	return env
}

type alwaysValidVerifier struct{}

func (alwaysValidVerifier) VerifyWebhookSignature(payload []byte, signature string) bool {
	return true
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func newNopLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(nopWriter{})
	return logger
}

func validCreateRequest() *models.CreateOrderRequest {
	return &models.CreateOrderRequest{
		Items: []models.CreateOrderItem{
			{ProductID: "p-burger", Quantity: 2},
			{ProductID: "p-fries", Quantity: 1},
		},
		CustomerName:  "Ada Lovelace",
		CustomerPhone: "+49151000001",
		CustomerEmail: "ada@example.com",
	}
}
