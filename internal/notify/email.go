package notify

import (
	"fmt"
	"strings"

	"backoffice/internal/models"

	"gopkg.in/gomail.v2"
)

// Mailer sends the three HTML notification templates over SMTP
type Mailer struct {
	dialer    *gomail.Dialer
	from      string
	adminAddr string
	enabled   bool
}

// NewMailer creates an SMTP mailer. With no host configured it becomes a
// no-op sender so development environments work without credentials.
func NewMailer(host string, port int, user, password, from string) *Mailer {
	m := &Mailer{
		from:      from,
		adminAddr: user,
		enabled:   host != "",
	}
	if m.enabled {
		m.dialer = gomail.NewDialer(host, port, user, password)
	}
	return m
}

func (m *Mailer) send(to, subject, htmlBody string) error {
	if !m.enabled {
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return m.dialer.DialAndSend(msg)
}

// SendOrderConfirmation emails the customer after checkout
func (m *Mailer) SendOrderConfirmation(e *models.OrderConfirmationEvent) error {
	var items strings.Builder
	for _, it := range e.Items {
		fmt.Fprintf(&items, "<li>%s x %d - KES %.2f</li>", it.Name, it.Quantity, it.Price*float64(it.Quantity))
	}

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2>Thank You for Your Order!</h2>
			<p>Dear %s,</p>
			<p>Your order has been received and is being processed.</p>
			<p><strong>Order Number:</strong> %s<br>
			<strong>Payment Method:</strong> %s<br>
			<strong>Payment Status:</strong> %s</p>
			<h3>Order Items:</h3>
			<ul>%s</ul>
			<p><strong>Subtotal:</strong> KES %.2f<br>
			<strong>Shipping:</strong> KES %.2f<br>
			<strong>Total:</strong> KES %.2f</p>
			<p>Delivery Address: %s, %s, %s<br>Phone: %s</p>
		</div>`,
		e.CustomerName, e.OrderNumber,
		strings.ToUpper(e.PaymentMethod), strings.ToUpper(e.PaymentStatus),
		items.String(), e.Subtotal, e.ShippingCost, e.Total,
		e.Street, e.City, e.County, e.CustomerPhone)

	return m.send(e.CustomerEmail, "Order Confirmation - "+e.OrderNumber, body)
}

// SendOrderStatusUpdate emails the customer when an operator changes status
func (m *Mailer) SendOrderStatusUpdate(e *models.OrderStatusUpdateEvent) error {
	var statusMessage string
	switch e.NewStatus {
	case models.OrderStatusProcessing:
		statusMessage = "Your order is being prepared for shipment."
	case models.OrderStatusShipped:
		statusMessage = "Your order has been shipped!"
		if e.TrackingNumber != "" {
			statusMessage += " Tracking Number: " + e.TrackingNumber
		}
	case models.OrderStatusDelivered:
		statusMessage = "Your order has been delivered. Thank you for shopping with us!"
	case models.OrderStatusCancelled:
		statusMessage = "Your order has been cancelled. If you have any questions, please contact us."
	default:
		statusMessage = "Your order status has been updated to: " + e.NewStatus
	}

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2>Order Status Update</h2>
			<p>Dear %s,</p>
			<h3>Order %s</h3>
			<p>%s</p>
			<p>You can track your order status by contacting us with your order number.</p>
		</div>`,
		e.CustomerName, e.OrderNumber, statusMessage)

	return m.send(e.CustomerEmail, "Order Update - "+e.OrderNumber, body)
}

// SendProductRequestNotification emails the operator inbox about a new request
func (m *Mailer) SendProductRequestNotification(e *models.ProductRequestReceivedEvent) error {
	category := e.Category
	if category == "" {
		category = "Not specified"
	}
	description := e.Description
	if description == "" {
		description = "Not provided"
	}

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2>New Product Request</h2>
			<p><strong>Product Name:</strong> %s<br>
			<strong>Category:</strong> %s<br>
			<strong>Description:</strong> %s<br>
			<strong>Urgency:</strong> %s</p>
			<h3>Customer Information</h3>
			<p><strong>Name:</strong> %s<br>
			<strong>Email:</strong> %s<br>
			<strong>Phone:</strong> %s</p>
			<p>Please review this request in the admin panel.</p>
		</div>`,
		e.ProductName, category, description, strings.ToUpper(e.Urgency),
		e.CustomerName, e.Email, e.Phone)

	return m.send(m.adminAddr, "New Product Request - "+e.ProductName, body)
}
