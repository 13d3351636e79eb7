package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"backoffice/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testProduct(id int64, price float64, stock int) models.Product {
	return models.Product{
		ID:       id,
		Name:     "Test Product",
		Price:    price,
		Stock:    stock,
		InStock:  stock > 0,
		IsActive: true,
	}
}

func checkoutInput(items ...OrderItemInput) *CreateOrderInput {
	return &CreateOrderInput{
		CustomerName:  "Jane Wanjiku",
		CustomerEmail: "jane@example.com",
		CustomerPhone: "0712345678",
		Street:        "Moi Avenue",
		City:          "Nairobi",
		County:        "Nairobi",
		Items:         items,
		PaymentMethod: models.PaymentMethodMpesaSTK,
		ShippingCost:  200,
	}
}

func TestCreateOrderComputesTotals(t *testing.T) {
	fs := newFakeStore()
	fs.addProduct(testProduct(1, 1499.99, 10))
	fs.addProduct(testProduct(2, 350.50, 5))
	pub := &fakePublisher{}
	svc := NewOrderService(fs, newFakeIdempotency(), pub, zap.NewNop())

	in := checkoutInput(
		OrderItemInput{ProductID: 1, Quantity: 2},
		OrderItemInput{ProductID: 2, Quantity: 1},
	)
	in.Tax = 100

	order, err := svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)

	assert.InDelta(t, 3350.48, order.Subtotal, 0.001)
	assert.InDelta(t, order.Subtotal+order.ShippingCost+order.Tax, order.Total, 0.001)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, models.OrderStatusPending, order.OrderStatus)
	assert.Equal(t, models.FulfillmentUnfulfilled, order.FulfillmentStatus)
	require.Len(t, order.Items, 2)
	assert.Equal(t, 1499.99, order.Items[0].Price)
}

func TestCreateOrderDecrementsStock(t *testing.T) {
	fs := newFakeStore()
	fs.addProduct(testProduct(1, 100, 10))
	svc := NewOrderService(fs, nil, nil, zap.NewNop())

	_, err := svc.CreateOrder(context.Background(), checkoutInput(OrderItemInput{ProductID: 1, Quantity: 3}))
	require.NoError(t, err)

	assert.Equal(t, 7, fs.products[1].Stock)
	assert.Equal(t, 3, fs.products[1].SalesCount)
	assert.Empty(t, fs.releaseCalls)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	fs := newFakeStore()
	fs.addProduct(testProduct(1, 100, 2))
	svc := NewOrderService(fs, nil, nil, zap.NewNop())

	_, err := svc.CreateOrder(context.Background(), checkoutInput(OrderItemInput{ProductID: 1, Quantity: 5}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientStock))

	// Nothing persisted, stock untouched
	assert.Empty(t, fs.orders)
	assert.Equal(t, 2, fs.products[1].Stock)
}

func TestCreateOrderCompensatesPartialReservation(t *testing.T) {
	fs := newFakeStore()
	fs.addProduct(testProduct(1, 100, 10))
	fs.addProduct(testProduct(2, 50, 1))
	svc := NewOrderService(fs, nil, nil, zap.NewNop())

	_, err := svc.CreateOrder(context.Background(), checkoutInput(
		OrderItemInput{ProductID: 1, Quantity: 4},
		OrderItemInput{ProductID: 2, Quantity: 3},
	))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientStock))

	// The first reservation was rolled back
	require.Len(t, fs.releaseCalls, 1)
	assert.Equal(t, int64(1), fs.releaseCalls[0].productID)
	assert.Equal(t, 4, fs.releaseCalls[0].quantity)
	assert.Equal(t, 10, fs.products[1].Stock)
	assert.Empty(t, fs.orders)
}

func TestCreateOrderCompensatesOnInsertFailure(t *testing.T) {
	fs := newFakeStore()
	fs.addProduct(testProduct(1, 100, 10))
	fs.createOrderFn = func(*models.Order) error { return errors.New("insert failed") }
	svc := NewOrderService(fs, nil, nil, zap.NewNop())

	_, err := svc.CreateOrder(context.Background(), checkoutInput(OrderItemInput{ProductID: 1, Quantity: 2}))
	require.Error(t, err)

	require.Len(t, fs.releaseCalls, 1)
	assert.Equal(t, 10, fs.products[1].Stock)
}

func TestCreateOrderRejectsUnknownPaymentMethod(t *testing.T) {
	svc := NewOrderService(newFakeStore(), nil, nil, zap.NewNop())

	in := checkoutInput(OrderItemInput{ProductID: 1, Quantity: 1})
	in.PaymentMethod = "bitcoin"

	_, err := svc.CreateOrder(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestCreateOrderIdempotencyReturnsExisting(t *testing.T) {
	fs := newFakeStore()
	fs.addProduct(testProduct(1, 100, 10))
	idem := newFakeIdempotency()
	svc := NewOrderService(fs, idem, nil, zap.NewNop())

	in := checkoutInput(OrderItemInput{ProductID: 1, Quantity: 1})
	in.IdempotencyKey = "client-key-1"

	first, err := svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)

	second, err := svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, fs.orders, 1)
	assert.Equal(t, 9, fs.products[1].Stock)
}

func TestCreateOrderPublishesConfirmation(t *testing.T) {
	fs := newFakeStore()
	fs.addProduct(testProduct(1, 250, 10))
	pub := &fakePublisher{}
	svc := NewOrderService(fs, nil, pub, zap.NewNop())

	order, err := svc.CreateOrder(context.Background(), checkoutInput(OrderItemInput{ProductID: 1, Quantity: 2}))
	require.NoError(t, err)

	require.Len(t, pub.confirmations, 1)
	e := pub.confirmations[0]
	assert.Equal(t, models.EventTypeOrderConfirmation, e.EventType)
	assert.Equal(t, order.ID, e.OrderID)
	assert.Equal(t, order.OrderNumber, e.OrderNumber)
	assert.Equal(t, order.Total, e.Total)
	require.Len(t, e.Items, 1)
	assert.Equal(t, 2, e.Items[0].Quantity)
	assert.NotEmpty(t, e.EventID)
}

func TestCreateOrderSurvivesPublishFailure(t *testing.T) {
	fs := newFakeStore()
	fs.addProduct(testProduct(1, 250, 10))
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewOrderService(fs, nil, pub, zap.NewNop())

	order, err := svc.CreateOrder(context.Background(), checkoutInput(OrderItemInput{ProductID: 1, Quantity: 1}))
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
	assert.Equal(t, 1, fs.upsertCalls)
}

func TestUpdateStatusPublishesEvent(t *testing.T) {
	fs := newFakeStore()
	fs.addProduct(testProduct(1, 100, 10))
	pub := &fakePublisher{}
	svc := NewOrderService(fs, nil, pub, zap.NewNop())

	order, err := svc.CreateOrder(context.Background(), checkoutInput(OrderItemInput{ProductID: 1, Quantity: 1}))
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), order.ID, models.OrderStatusShipped, "dispatched", "TRK-99")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, updated.OrderStatus)
	assert.Equal(t, "TRK-99", updated.TrackingNumber)

	require.Len(t, pub.statusUpdates, 1)
	assert.Equal(t, models.OrderStatusShipped, pub.statusUpdates[0].NewStatus)
	assert.Equal(t, "TRK-99", pub.statusUpdates[0].TrackingNumber)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc := NewOrderService(newFakeStore(), nil, nil, zap.NewNop())
	_, err := svc.UpdateStatus(context.Background(), 1, "teleported", "", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestUpdateStatusNotFound(t *testing.T) {
	svc := NewOrderService(newFakeStore(), nil, nil, zap.NewNop())
	_, err := svc.UpdateStatus(context.Background(), 42, models.OrderStatusProcessing, "", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAnalyticsSince(t *testing.T) {
	now := time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

	today := AnalyticsSince("today", now)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), today)

	week := AnalyticsSince("week", now)
	assert.Equal(t, now.AddDate(0, 0, -7), week)

	year := AnalyticsSince("year", now)
	assert.Equal(t, now.AddDate(-1, 0, 0), year)

	fallback := AnalyticsSince("fortnight", now)
	assert.Equal(t, now.AddDate(0, 0, -30), fallback)
}
