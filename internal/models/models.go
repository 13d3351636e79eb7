package models

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// Category groups products in the catalog
type Category struct {
	ID          int64         `db:"id" json:"id"`
	Name        string        `db:"name" json:"name"`
	Slug        string        `db:"slug" json:"slug"`
	Description string        `db:"description" json:"description,omitempty"`
	Image       string        `db:"image" json:"image,omitempty"`
	ParentID    sql.NullInt64 `db:"parent_id" json:"parent_id,omitempty"`
	SortOrder   int           `db:"sort_order" json:"sort_order"`
	Visible     bool          `db:"visible" json:"visible"`
	IsActive    bool          `db:"is_active" json:"is_active"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// Product represents a product in the catalog
type Product struct {
	ID            int64          `db:"id" json:"id"`
	Name          string         `db:"name" json:"name"`
	Description   string         `db:"description" json:"description"`
	Price         float64        `db:"price" json:"price"`
	CategoryID    int64          `db:"category_id" json:"category_id"`
	Images        pq.StringArray `db:"images" json:"images"`
	Stock         int            `db:"stock" json:"stock"`
	SKU           string         `db:"sku" json:"sku"`
	Featured      bool           `db:"featured" json:"featured"`
	InStock       bool           `db:"in_stock" json:"in_stock"`
	Discount      float64        `db:"discount" json:"discount"`
	Tags          pq.StringArray `db:"tags" json:"tags"`
	RatingAverage float64        `db:"rating_average" json:"rating_average"`
	RatingCount   int            `db:"rating_count" json:"rating_count"`
	SalesCount    int            `db:"sales_count" json:"sales_count"`
	IsActive      bool           `db:"is_active" json:"is_active"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// Customer is upserted by email on each order
type Customer struct {
	ID            int64        `db:"id" json:"id"`
	Name          string       `db:"name" json:"name"`
	Email         string       `db:"email" json:"email"`
	Phone         string       `db:"phone" json:"phone"`
	Street        string       `db:"street" json:"street,omitempty"`
	City          string       `db:"city" json:"city,omitempty"`
	County        string       `db:"county" json:"county,omitempty"`
	PostalCode    string       `db:"postal_code" json:"postal_code,omitempty"`
	TotalSpent    float64      `db:"total_spent" json:"total_spent"`
	OrderCount    int          `db:"order_count" json:"order_count"`
	LastOrderDate sql.NullTime `db:"last_order_date" json:"last_order_date,omitempty"`
	Source        string       `db:"source" json:"source"`
	Newsletter    bool         `db:"newsletter" json:"newsletter"`
	Notes         string       `db:"notes" json:"notes,omitempty"`
	IsActive      bool         `db:"is_active" json:"is_active"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

// Admin is an operator identity
type Admin struct {
	ID                    int64        `db:"id" json:"id"`
	Name                  string       `db:"name" json:"name"`
	Email                 string       `db:"email" json:"email"`
	PasswordHash          string       `db:"password_hash" json:"-"`
	Role                  string       `db:"role" json:"role"`
	WhatsAppNumber        string       `db:"whatsapp_number" json:"whatsapp_number,omitempty"`
	WhatsAppNotifications bool         `db:"whatsapp_notifications" json:"whatsapp_notifications"`
	IsActive              bool         `db:"is_active" json:"is_active"`
	LastLogin             sql.NullTime `db:"last_login" json:"last_login,omitempty"`
	CreatedAt             time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time    `db:"updated_at" json:"updated_at"`
}

// Order is a purchase with customer/item snapshots and a mutable status triplet.
// Payment-details columns stay empty until a payment path fills them in.
type Order struct {
	ID                int64        `db:"id" json:"id"`
	OrderNumber       string       `db:"order_number" json:"order_number"`
	CustomerName      string       `db:"customer_name" json:"customer_name"`
	CustomerEmail     string       `db:"customer_email" json:"customer_email"`
	CustomerPhone     string       `db:"customer_phone" json:"customer_phone"`
	Street            string       `db:"street" json:"street,omitempty"`
	City              string       `db:"city" json:"city,omitempty"`
	County            string       `db:"county" json:"county,omitempty"`
	PostalCode        string       `db:"postal_code" json:"postal_code,omitempty"`
	Subtotal          float64      `db:"subtotal" json:"subtotal"`
	ShippingCost      float64      `db:"shipping_cost" json:"shipping_cost"`
	Tax               float64      `db:"tax" json:"tax"`
	Total             float64      `db:"total" json:"total"`
	PaymentMethod     string       `db:"payment_method" json:"payment_method"`
	PaymentStatus     string       `db:"payment_status" json:"payment_status"`
	OrderStatus       string       `db:"order_status" json:"order_status"`
	FulfillmentStatus string       `db:"fulfillment_status" json:"fulfillment_status"`
	ShippingMethod    string       `db:"shipping_method" json:"shipping_method"`
	TrackingNumber    string       `db:"tracking_number" json:"tracking_number,omitempty"`
	Notes             string       `db:"notes" json:"notes,omitempty"`
	CheckoutRequestID string       `db:"checkout_request_id" json:"checkout_request_id,omitempty"`
	TransactionID     string       `db:"transaction_id" json:"transaction_id,omitempty"`
	MpesaReceipt      string       `db:"mpesa_receipt_number" json:"mpesa_receipt_number,omitempty"`
	MpesaPhone        string       `db:"mpesa_phone_number" json:"mpesa_phone_number,omitempty"`
	PaidAmount        float64      `db:"paid_amount" json:"paid_amount,omitempty"`
	PaymentDate       sql.NullTime `db:"payment_date" json:"payment_date,omitempty"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at" json:"updated_at"`

	Items   []OrderItem          `db:"-" json:"items,omitempty"`
	History []StatusHistoryEntry `db:"-" json:"status_history,omitempty"`
}

// OrderItem is a product snapshot taken at order time
type OrderItem struct {
	ID        int64   `db:"id" json:"id"`
	OrderID   int64   `db:"order_id" json:"order_id"`
	ProductID int64   `db:"product_id" json:"product_id"`
	Name      string  `db:"name" json:"name"`
	Price     float64 `db:"price" json:"price"`
	Quantity  int     `db:"quantity" json:"quantity"`
	Image     string  `db:"image" json:"image,omitempty"`
}

// StatusHistoryEntry is one row of an order's append-only status log
type StatusHistoryEntry struct {
	ID        int64     `db:"id" json:"id"`
	OrderID   int64     `db:"order_id" json:"order_id"`
	Status    string    `db:"status" json:"status"`
	Note      string    `db:"note" json:"note,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ProductRequest is a customer's "source this product" submission
type ProductRequest struct {
	ID              int64         `db:"id" json:"id"`
	CustomerName    string        `db:"customer_name" json:"customer_name"`
	Email           string        `db:"email" json:"email"`
	Phone           string        `db:"phone" json:"phone"`
	ProductName     string        `db:"product_name" json:"product_name"`
	Category        string        `db:"category" json:"category,omitempty"`
	Description     string        `db:"description" json:"description,omitempty"`
	Urgency         string        `db:"urgency" json:"urgency"`
	Status          string        `db:"status" json:"status"`
	Read            bool          `db:"read" json:"read"`
	AdminNotes      string        `db:"admin_notes" json:"admin_notes,omitempty"`
	ResponseMessage string        `db:"response_message" json:"response_message,omitempty"`
	RespondedAt     sql.NullTime  `db:"responded_at" json:"responded_at,omitempty"`
	RespondedBy     sql.NullInt64 `db:"responded_by" json:"responded_by,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// Payment methods
const (
	PaymentMethodMpesaSTK     = "mpesa-stk"
	PaymentMethodMpesaPaybill = "mpesa-paybill"
	PaymentMethodCard         = "card"
	PaymentMethodCOD          = "cod"
)

// Payment statuses
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Order statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Fulfillment statuses
const (
	FulfillmentUnfulfilled = "unfulfilled"
	FulfillmentFulfilled   = "fulfilled"
	FulfillmentPartial     = "partially-fulfilled"
)

// Admin roles
const (
	RoleSuperAdmin = "super-admin"
	RoleAdmin      = "admin"
	RoleManager    = "manager"
)

// Product request statuses
const (
	RequestStatusNew       = "new"
	RequestStatusReviewing = "reviewing"
	RequestStatusSourcing  = "sourcing"
	RequestStatusAvailable = "available"
	RequestStatusDeclined  = "declined"
)

// ValidPaymentMethod reports whether m is a recognized payment method
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodMpesaSTK, PaymentMethodMpesaPaybill, PaymentMethodCard, PaymentMethodCOD:
		return true
	}
	return false
}

// ValidOrderStatus reports whether s is a recognized order status
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// ValidFulfillmentStatus reports whether s is a recognized fulfillment status
func ValidFulfillmentStatus(s string) bool {
	switch s {
	case FulfillmentUnfulfilled, FulfillmentFulfilled, FulfillmentPartial:
		return true
	}
	return false
}
