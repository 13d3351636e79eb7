package store

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"backoffice/internal/models"
)

// GenerateOrderNumber builds the human-readable order identifier:
// "OS" + yymmdd + 4 random digits. Collisions are possible in theory; the
// unique index on order_number turns one into an insert error.
func GenerateOrderNumber(now time.Time) string {
	return fmt.Sprintf("OS%s%04d", now.Format("060102"), rand.Intn(10000))
}

// CreateOrder persists an order, its items and the initial status-history row
// in one transaction. The order number is assigned here, at write time.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if order.OrderNumber == "" {
		order.OrderNumber = GenerateOrderNumber(time.Now())
	}

	query := `
		INSERT INTO orders (order_number, customer_name, customer_email, customer_phone,
			street, city, county, postal_code,
			subtotal, shipping_cost, tax, total,
			payment_method, payment_status, order_status, fulfillment_status, shipping_method)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at, updated_at`

	if err := tx.GetContext(ctx, order, query,
		order.OrderNumber, order.CustomerName, order.CustomerEmail, order.CustomerPhone,
		order.Street, order.City, order.County, order.PostalCode,
		order.Subtotal, order.ShippingCost, order.Tax, order.Total,
		order.PaymentMethod, order.PaymentStatus, order.OrderStatus,
		order.FulfillmentStatus, order.ShippingMethod); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if err := tx.GetContext(ctx, &item.ID, `
			INSERT INTO order_items (order_id, product_id, name, price, quantity, image)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			item.OrderID, item.ProductID, item.Name, item.Price, item.Quantity, item.Image); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_status_history (order_id, status, note)
		VALUES ($1, $2, $3)`,
		order.ID, order.OrderStatus, "Order created"); err != nil {
		return fmt.Errorf("failed to insert status history: %w", err)
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order with its items and status history
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id); err != nil {
		return nil, err
	}
	return s.attachOrderDetails(ctx, &order)
}

// GetOrderByNumber retrieves an order by its order number
func (s *Store) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	if err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE order_number = $1", orderNumber); err != nil {
		return nil, err
	}
	return s.attachOrderDetails(ctx, &order)
}

// GetOrderByCheckoutRequestID correlates a payment callback to its order
func (s *Store) GetOrderByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.Order, error) {
	var order models.Order
	if err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE checkout_request_id = $1", checkoutRequestID); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Store) attachOrderDetails(ctx context.Context, order *models.Order) (*models.Order, error) {
	items := []models.OrderItem{}
	if err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", order.ID); err != nil {
		return nil, err
	}
	order.Items = items

	history := []models.StatusHistoryEntry{}
	if err := s.db.SelectContext(ctx, &history,
		"SELECT * FROM order_status_history WHERE order_id = $1 ORDER BY id", order.ID); err != nil {
		return nil, err
	}
	order.History = history
	return order, nil
}

// OrderFilter narrows order listings
type OrderFilter struct {
	OrderStatus   string
	PaymentStatus string
	Search        string
	Page          int
	Limit         int
}

// ListOrders retrieves orders matching the filter, newest first
func (s *Store) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, int, error) {
	where := []string{"TRUE"}
	args := []interface{}{}

	if f.OrderStatus != "" {
		args = append(args, f.OrderStatus)
		where = append(where, fmt.Sprintf("order_status = $%d", len(args)))
	}
	if f.PaymentStatus != "" {
		args = append(args, f.PaymentStatus)
		where = append(where, fmt.Sprintf("payment_status = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(order_number ILIKE $%d OR customer_name ILIKE $%d OR customer_email ILIKE $%d)", n, n, n))
	}

	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM orders WHERE "+cond, args...); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf("SELECT * FROM orders WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		cond, len(args)-1, len(args))

	orders := []models.Order{}
	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateOrderStatus sets order status and appends a status-history row
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status, note string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET order_status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_status_history (order_id, status, note)
		VALUES ($1, $2, $3)`,
		orderID, status, note); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateOrderFulfillment sets fulfillment status and/or tracking number
func (s *Store) UpdateOrderFulfillment(ctx context.Context, orderID int64, fulfillmentStatus, trackingNumber string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET
			fulfillment_status = COALESCE(NULLIF($1, ''), fulfillment_status),
			tracking_number = COALESCE(NULLIF($2, ''), tracking_number),
			updated_at = NOW()
		WHERE id = $3`,
		fulfillmentStatus, trackingNumber, orderID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetCheckoutRequest stores the provider correlation id and the phone the
// push was sent to. Payment status is not touched here.
func (s *Store) SetCheckoutRequest(ctx context.Context, orderID int64, checkoutRequestID, phone string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET checkout_request_id = $1, mpesa_phone_number = $2, updated_at = NOW()
		WHERE id = $3`,
		checkoutRequestID, phone, orderID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// PaymentUpdate carries the fields a payment transition writes
type PaymentUpdate struct {
	PaymentStatus string
	OrderStatus   string // empty leaves order status unchanged
	TransactionID string
	MpesaReceipt  string
	MpesaPhone    string
	PaidAmount    float64
	PaymentDate   time.Time
	Note          string
}

// ApplyPaymentUpdate writes a payment state transition and, when the order
// status advances, appends a history row, all in one transaction.
func (s *Store) ApplyPaymentUpdate(ctx context.Context, orderID int64, u PaymentUpdate) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET
			payment_status = $1,
			order_status = COALESCE(NULLIF($2, ''), order_status),
			transaction_id = COALESCE(NULLIF($3, ''), transaction_id),
			mpesa_receipt_number = COALESCE(NULLIF($4, ''), mpesa_receipt_number),
			mpesa_phone_number = COALESCE(NULLIF($5, ''), mpesa_phone_number),
			paid_amount = CASE WHEN $6 > 0 THEN $6 ELSE paid_amount END,
			payment_date = CASE WHEN $7::timestamptz IS NULL THEN payment_date ELSE $7 END,
			notes = COALESCE(NULLIF($8, ''), notes),
			updated_at = NOW()
		WHERE id = $9`,
		u.PaymentStatus, u.OrderStatus, u.TransactionID, u.MpesaReceipt, u.MpesaPhone,
		u.PaidAmount, nullTime(u.PaymentDate), u.Note, orderID)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}

	if u.OrderStatus != "" {
		note := u.Note
		if note == "" {
			note = fmt.Sprintf("Payment %s", u.PaymentStatus)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_status_history (order_id, status, note)
			VALUES ($1, $2, $3)`,
			orderID, u.OrderStatus, note); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

// OrderAnalytics aggregates order activity over a window
type OrderAnalytics struct {
	TotalOrders       int     `db:"total_orders" json:"total_orders"`
	TotalRevenue      float64 `db:"total_revenue" json:"total_revenue"`
	AverageOrderValue float64 `db:"average_order_value" json:"average_order_value"`
	CompletedOrders   int     `db:"completed_orders" json:"completed_orders"`
	PendingOrders     int     `db:"pending_orders" json:"pending_orders"`
}

// GetOrderAnalytics aggregates orders created since the given time
func (s *Store) GetOrderAnalytics(ctx context.Context, since time.Time) (*OrderAnalytics, error) {
	var a OrderAnalytics
	err := s.db.GetContext(ctx, &a, `
		SELECT
			COUNT(*) AS total_orders,
			COALESCE(SUM(total), 0) AS total_revenue,
			COALESCE(AVG(total), 0) AS average_order_value,
			COUNT(*) FILTER (WHERE payment_status = 'completed') AS completed_orders,
			COUNT(*) FILTER (WHERE payment_status = 'pending') AS pending_orders
		FROM orders
		WHERE created_at >= $1`, since)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
