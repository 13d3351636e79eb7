package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"backoffice/internal/models"
	"backoffice/internal/store"
	"backoffice/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderStore is the persistence surface the order service depends on
type OrderStore interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	ReserveStock(ctx context.Context, productID int64, quantity int) (bool, error)
	ReleaseStock(ctx context.Context, productID int64, quantity int) error
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListOrders(ctx context.Context, f store.OrderFilter) ([]models.Order, int, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status, note string) error
	UpdateOrderFulfillment(ctx context.Context, orderID int64, fulfillmentStatus, trackingNumber string) error
	UpsertCustomerOrder(ctx context.Context, c *models.Customer, orderTotal float64, orderDate time.Time) error
	GetOrderAnalytics(ctx context.Context, since time.Time) (*store.OrderAnalytics, error)
}

// IdempotencyStore remembers which order an idempotency key produced
type IdempotencyStore interface {
	RememberIdempotencyKey(ctx context.Context, key string, orderID int64, ttl time.Duration) (bool, error)
	LookupIdempotencyKey(ctx context.Context, key string) (int64, error)
}

// OrderPublisher emits notification events after state changes commit
type OrderPublisher interface {
	PublishOrderConfirmation(ctx context.Context, event *models.OrderConfirmationEvent) error
	PublishOrderStatusUpdate(ctx context.Context, event *models.OrderStatusUpdateEvent) error
}

// OrderService owns order creation (stock reservation saga included) and
// the operator-facing order state transitions.
type OrderService struct {
	store       OrderStore
	idempotency IdempotencyStore
	publisher   OrderPublisher
	logger      *zap.Logger
}

// NewOrderService creates an order service. idempotency and publisher may be
// nil; the corresponding behavior is skipped.
func NewOrderService(st OrderStore, idem IdempotencyStore, pub OrderPublisher, logger *zap.Logger) *OrderService {
	return &OrderService{store: st, idempotency: idem, publisher: pub, logger: logger}
}

// OrderItemInput is one requested line item
type OrderItemInput struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// CreateOrderInput is the storefront checkout payload
type CreateOrderInput struct {
	CustomerName   string           `json:"customer_name" binding:"required"`
	CustomerEmail  string           `json:"customer_email" binding:"required,email"`
	CustomerPhone  string           `json:"customer_phone" binding:"required"`
	Street         string           `json:"street"`
	City           string           `json:"city"`
	County         string           `json:"county"`
	PostalCode     string           `json:"postal_code"`
	Items          []OrderItemInput `json:"items" binding:"required,min=1,dive"`
	PaymentMethod  string           `json:"payment_method" binding:"required"`
	ShippingMethod string           `json:"shipping_method"`
	ShippingCost   float64          `json:"shipping_cost"`
	Tax            float64          `json:"tax"`
	IdempotencyKey string           `json:"idempotency_key"`
}

// CreateOrder runs the checkout saga: reserve stock per item, persist the
// order with price snapshots, then kick off the post-commit side effects.
// Any reservation or insert failure releases the stock already taken.
func (s *OrderService) CreateOrder(ctx context.Context, in *CreateOrderInput) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if !models.ValidPaymentMethod(in.PaymentMethod) {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrValidation, in.PaymentMethod)
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: order has no items", ErrValidation)
	}
	for _, it := range in.Items {
		if it.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
		}
	}

	if s.idempotency != nil && in.IdempotencyKey != "" {
		if existingID, err := s.idempotency.LookupIdempotencyKey(ctx, in.IdempotencyKey); err == nil && existingID > 0 {
			return s.store.GetOrderByID(ctx, existingID)
		}
	}

	// Reserve stock item by item, snapshotting price and name as we go.
	// A failed reservation releases everything taken so far.
	reserved := []OrderItemInput{}
	release := func() {
		for _, r := range reserved {
			if err := s.store.ReleaseStock(ctx, r.ProductID, r.Quantity); err != nil {
				s.logger.Error("stock compensation failed",
					zap.Int64("product_id", r.ProductID),
					zap.Int("quantity", r.Quantity),
					zap.Error(err))
				continue
			}
			util.StockCompensationsTotal.Inc()
		}
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	var subtotal float64
	for _, it := range in.Items {
		product, err := s.store.GetProductByID(ctx, it.ProductID)
		if err != nil {
			release()
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: product %d", ErrNotFound, it.ProductID)
			}
			return nil, err
		}
		if !product.IsActive {
			release()
			return nil, fmt.Errorf("%w: product %d is unavailable", ErrValidation, it.ProductID)
		}

		ok, err := s.store.ReserveStock(ctx, it.ProductID, it.Quantity)
		if err != nil {
			release()
			return nil, err
		}
		if !ok {
			release()
			util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, fmt.Errorf("%w: product %q has fewer than %d units", ErrInsufficientStock, product.Name, it.Quantity)
		}
		reserved = append(reserved, it)

		image := ""
		if len(product.Images) > 0 {
			image = product.Images[0]
		}
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  it.Quantity,
			Image:     image,
		})
		subtotal += product.Price * float64(it.Quantity)
	}

	subtotal = util.RoundMoney(subtotal)
	total := util.RoundMoney(subtotal + in.ShippingCost + in.Tax)

	order := &models.Order{
		CustomerName:      in.CustomerName,
		CustomerEmail:     in.CustomerEmail,
		CustomerPhone:     in.CustomerPhone,
		Street:            in.Street,
		City:              in.City,
		County:            in.County,
		PostalCode:        in.PostalCode,
		Subtotal:          subtotal,
		ShippingCost:      util.RoundMoney(in.ShippingCost),
		Tax:               util.RoundMoney(in.Tax),
		Total:             total,
		PaymentMethod:     in.PaymentMethod,
		PaymentStatus:     models.PaymentStatusPending,
		OrderStatus:       models.OrderStatusPending,
		FulfillmentStatus: models.FulfillmentUnfulfilled,
		ShippingMethod:    in.ShippingMethod,
		Items:             items,
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		release()
		util.OrdersFailedTotal.WithLabelValues("insert_failed").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	util.OrdersCreatedTotal.Inc()

	if s.idempotency != nil && in.IdempotencyKey != "" {
		if _, err := s.idempotency.RememberIdempotencyKey(ctx, in.IdempotencyKey, order.ID, 24*time.Hour); err != nil {
			s.logger.Warn("failed to record idempotency key", zap.Error(err))
		}
	}

	// Side effects after the commit are best-effort: the order stands even
	// when the customer upsert or the event publish fails.
	if err := s.store.UpsertCustomerOrder(ctx, &models.Customer{
		Name:       in.CustomerName,
		Email:      in.CustomerEmail,
		Phone:      in.CustomerPhone,
		Street:     in.Street,
		City:       in.City,
		County:     in.County,
		PostalCode: in.PostalCode,
		Source:     "website",
	}, order.Total, order.CreatedAt); err != nil {
		s.logger.Error("customer upsert failed", zap.Int64("order_id", order.ID), zap.Error(err))
	}

	s.publishConfirmation(ctx, order)

	s.logger.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Float64("total", order.Total))
	return order, nil
}

func (s *OrderService) publishConfirmation(ctx context.Context, order *models.Order) {
	if s.publisher == nil {
		return
	}

	eventItems := make([]models.OrderItemData, 0, len(order.Items))
	for _, it := range order.Items {
		eventItems = append(eventItems, models.OrderItemData{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
		})
	}

	event := &models.OrderConfirmationEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderConfirmation,
			Timestamp: time.Now(),
		},
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		CustomerPhone: order.CustomerPhone,
		Street:        order.Street,
		City:          order.City,
		County:        order.County,
		PaymentMethod: order.PaymentMethod,
		PaymentStatus: order.PaymentStatus,
		Subtotal:      order.Subtotal,
		ShippingCost:  order.ShippingCost,
		Total:         order.Total,
		Items:         eventItems,
	}
	if err := s.publisher.PublishOrderConfirmation(ctx, event); err != nil {
		s.logger.Error("failed to publish order confirmation", zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

// GetOrder retrieves an order by id
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	order, err := s.store.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, id)
		}
		return nil, err
	}
	return order, nil
}

// GetOrderByNumber retrieves an order by its order number
func (s *OrderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	order, err := s.store.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderNumber)
		}
		return nil, err
	}
	return order, nil
}

// ListOrders retrieves a filtered order page
func (s *OrderService) ListOrders(ctx context.Context, f store.OrderFilter) ([]models.Order, int, error) {
	return s.store.ListOrders(ctx, f)
}

// UpdateStatus sets order status and notifies the customer
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, status, note, trackingNumber string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, fmt.Errorf("%w: unknown order status %q", ErrValidation, status)
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, status, note); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}

	if trackingNumber != "" {
		if err := s.store.UpdateOrderFulfillment(ctx, orderID, "", trackingNumber); err != nil {
			s.logger.Warn("failed to set tracking number", zap.Int64("order_id", orderID), zap.Error(err))
		}
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		event := &models.OrderStatusUpdateEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderStatusUpdate,
				Timestamp: time.Now(),
			},
			OrderID:        order.ID,
			OrderNumber:    order.OrderNumber,
			CustomerName:   order.CustomerName,
			CustomerEmail:  order.CustomerEmail,
			NewStatus:      status,
			TrackingNumber: order.TrackingNumber,
		}
		if err := s.publisher.PublishOrderStatusUpdate(ctx, event); err != nil {
			s.logger.Error("failed to publish status update", zap.Int64("order_id", orderID), zap.Error(err))
		}
	}

	return order, nil
}

// UpdateFulfillment sets fulfillment status and/or tracking number
func (s *OrderService) UpdateFulfillment(ctx context.Context, orderID int64, fulfillmentStatus, trackingNumber string) (*models.Order, error) {
	if fulfillmentStatus != "" && !models.ValidFulfillmentStatus(fulfillmentStatus) {
		return nil, fmt.Errorf("%w: unknown fulfillment status %q", ErrValidation, fulfillmentStatus)
	}
	if err := s.store.UpdateOrderFulfillment(ctx, orderID, fulfillmentStatus, trackingNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}
	return s.store.GetOrderByID(ctx, orderID)
}

// AnalyticsSince converts a period name to its window start. Unknown periods
// default to the last 30 days.
func AnalyticsSince(period string, now time.Time) time.Time {
	switch period {
	case "today":
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case "week":
		return now.AddDate(0, 0, -7)
	case "month":
		return now.AddDate(0, -1, 0)
	case "year":
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, 0, -30)
	}
}

// Analytics aggregates order activity for a named period
func (s *OrderService) Analytics(ctx context.Context, period string) (*store.OrderAnalytics, error) {
	return s.store.GetOrderAnalytics(ctx, AnalyticsSince(period, time.Now()))
}
