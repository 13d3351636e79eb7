package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"backoffice/internal/models"
	"backoffice/internal/mpesa"
	"backoffice/internal/store"
)

// fakeStore is an in-memory OrderStore/PaymentStore with call recording
type fakeStore struct {
	mu sync.Mutex

	products map[int64]*models.Product
	orders   map[int64]*models.Order
	nextID   int64

	reserveCalls  []stockCall
	releaseCalls  []stockCall
	upsertCalls   int
	paymentCalls  []store.PaymentUpdate
	statusCalls   []statusCall
	createOrderFn func(order *models.Order) error
}

type stockCall struct {
	productID int64
	quantity  int
}

type statusCall struct {
	orderID int64
	status  string
	note    string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: map[int64]*models.Product{},
		orders:   map[int64]*models.Order{},
	}
}

func (f *fakeStore) addProduct(p models.Product) {
	f.products[p.ID] = &p
}

func (f *fakeStore) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) ReserveStock(_ context.Context, productID int64, quantity int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reserveCalls = append(f.reserveCalls, stockCall{productID, quantity})
	p, ok := f.products[productID]
	if !ok || !p.IsActive || p.Stock < quantity {
		return false, nil
	}
	p.Stock -= quantity
	p.SalesCount += quantity
	p.InStock = p.Stock > 0
	return true, nil
}

func (f *fakeStore) ReleaseStock(_ context.Context, productID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseCalls = append(f.releaseCalls, stockCall{productID, quantity})
	if p, ok := f.products[productID]; ok {
		p.Stock += quantity
		p.SalesCount -= quantity
		p.InStock = true
	}
	return nil
}

func (f *fakeStore) CreateOrder(_ context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createOrderFn != nil {
		if err := f.createOrderFn(order); err != nil {
			return err
		}
	}
	f.nextID++
	order.ID = f.nextID
	if order.OrderNumber == "" {
		order.OrderNumber = store.GenerateOrderNumber(time.Now())
	}
	order.CreatedAt = time.Now()
	cp := *order
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeStore) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) GetOrderByNumber(_ context.Context, orderNumber string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.OrderNumber == orderNumber {
			cp := *o
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) GetOrderByCheckoutRequestID(_ context.Context, checkoutRequestID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.CheckoutRequestID == checkoutRequestID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) ListOrders(_ context.Context, _ store.OrderFilter) ([]models.Order, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Order{}
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, len(out), nil
}

func (f *fakeStore) UpdateOrderStatus(_ context.Context, orderID int64, status, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return sql.ErrNoRows
	}
	f.statusCalls = append(f.statusCalls, statusCall{orderID, status, note})
	o.OrderStatus = status
	o.History = append(o.History, models.StatusHistoryEntry{OrderID: orderID, Status: status, Note: note})
	return nil
}

func (f *fakeStore) UpdateOrderFulfillment(_ context.Context, orderID int64, fulfillmentStatus, trackingNumber string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return sql.ErrNoRows
	}
	if fulfillmentStatus != "" {
		o.FulfillmentStatus = fulfillmentStatus
	}
	if trackingNumber != "" {
		o.TrackingNumber = trackingNumber
	}
	return nil
}

func (f *fakeStore) SetCheckoutRequest(_ context.Context, orderID int64, checkoutRequestID, phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return sql.ErrNoRows
	}
	o.CheckoutRequestID = checkoutRequestID
	o.MpesaPhone = phone
	return nil
}

func (f *fakeStore) ApplyPaymentUpdate(_ context.Context, orderID int64, u store.PaymentUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return sql.ErrNoRows
	}
	f.paymentCalls = append(f.paymentCalls, u)
	o.PaymentStatus = u.PaymentStatus
	if u.OrderStatus != "" {
		o.OrderStatus = u.OrderStatus
		o.History = append(o.History, models.StatusHistoryEntry{OrderID: orderID, Status: u.OrderStatus, Note: u.Note})
	}
	if u.TransactionID != "" {
		o.TransactionID = u.TransactionID
	}
	if u.MpesaReceipt != "" {
		o.MpesaReceipt = u.MpesaReceipt
	}
	if u.MpesaPhone != "" {
		o.MpesaPhone = u.MpesaPhone
	}
	if u.PaidAmount > 0 {
		o.PaidAmount = u.PaidAmount
	}
	if !u.PaymentDate.IsZero() {
		o.PaymentDate = sql.NullTime{Time: u.PaymentDate, Valid: true}
	}
	if u.Note != "" {
		o.Notes = u.Note
	}
	return nil
}

func (f *fakeStore) UpsertCustomerOrder(_ context.Context, _ *models.Customer, _ float64, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	return nil
}

func (f *fakeStore) GetOrderAnalytics(_ context.Context, _ time.Time) (*store.OrderAnalytics, error) {
	return &store.OrderAnalytics{}, nil
}

// fakeIdempotency is an in-memory IdempotencyStore
type fakeIdempotency struct {
	mu   sync.Mutex
	keys map[string]int64
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{keys: map[string]int64{}}
}

func (f *fakeIdempotency) RememberIdempotencyKey(_ context.Context, key string, orderID int64, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.keys[key]; ok {
		return false, nil
	}
	f.keys[key] = orderID
	return true, nil
}

func (f *fakeIdempotency) LookupIdempotencyKey(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keys[key], nil
}

// fakePublisher records published events
type fakePublisher struct {
	mu            sync.Mutex
	confirmations []*models.OrderConfirmationEvent
	statusUpdates []*models.OrderStatusUpdateEvent
	err           error
}

func (f *fakePublisher) PublishOrderConfirmation(_ context.Context, event *models.OrderConfirmationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.confirmations = append(f.confirmations, event)
	return nil
}

func (f *fakePublisher) PublishOrderStatusUpdate(_ context.Context, event *models.OrderStatusUpdateEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.statusUpdates = append(f.statusUpdates, event)
	return nil
}

// fakeGateway is a scripted PaymentGateway
type fakeGateway struct {
	pushResponse *mpesa.STKPushResponse
	pushErr      error
	pushCalls    int

	queryResponse *mpesa.STKQueryResponse
	queryErr      error
}

func (f *fakeGateway) InitiateSTKPush(_ context.Context, _ string, _ float64, _, _ string) (*mpesa.STKPushResponse, error) {
	f.pushCalls++
	if f.pushErr != nil {
		return nil, f.pushErr
	}
	return f.pushResponse, nil
}

func (f *fakeGateway) QuerySTKStatus(_ context.Context, _ string) (*mpesa.STKQueryResponse, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryResponse, nil
}

// fakeLocker is an in-memory CallbackLocker
type fakeLocker struct {
	mu    sync.Mutex
	held  map[string]bool
	calls int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}}
}

func (f *fakeLocker) AcquireLock(_ context.Context, lockKey string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.held[lockKey] {
		return false, nil
	}
	f.held[lockKey] = true
	return true, nil
}

func (f *fakeLocker) ReleaseLock(_ context.Context, lockKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, lockKey)
	return nil
}
