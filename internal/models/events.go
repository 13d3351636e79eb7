package models

import "time"

// Notification event types carried on the Kafka topic
const (
	EventTypeOrderConfirmation      = "ORDER_CONFIRMATION"
	EventTypeOrderStatusUpdate      = "ORDER_STATUS_UPDATE"
	EventTypeProductRequestReceived = "PRODUCT_REQUEST_RECEIVED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderConfirmationEvent is published after an order is persisted.
// It carries enough snapshot data for the worker to render the email and the
// admin WhatsApp message without re-reading the order.
type OrderConfirmationEvent struct {
	BaseEvent
	OrderID       int64           `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	CustomerPhone string          `json:"customer_phone"`
	Street        string          `json:"street,omitempty"`
	City          string          `json:"city,omitempty"`
	County        string          `json:"county,omitempty"`
	PaymentMethod string          `json:"payment_method"`
	PaymentStatus string          `json:"payment_status"`
	Subtotal      float64         `json:"subtotal"`
	ShippingCost  float64         `json:"shipping_cost"`
	Total         float64         `json:"total"`
	Items         []OrderItemData `json:"items"`
}

// OrderStatusUpdateEvent is published when an operator changes order status
type OrderStatusUpdateEvent struct {
	BaseEvent
	OrderID        int64  `json:"order_id"`
	OrderNumber    string `json:"order_number"`
	CustomerName   string `json:"customer_name"`
	CustomerEmail  string `json:"customer_email"`
	NewStatus      string `json:"new_status"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

// ProductRequestReceivedEvent is published when a product request is created
type ProductRequestReceivedEvent struct {
	BaseEvent
	RequestID    int64  `json:"request_id"`
	ProductName  string `json:"product_name"`
	Category     string `json:"category,omitempty"`
	Description  string `json:"description,omitempty"`
	Urgency      string `json:"urgency"`
	CustomerName string `json:"customer_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}
