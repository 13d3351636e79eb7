package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"backoffice/internal/models"
	"backoffice/internal/mpesa"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// WhatsAppSender delivers admin notifications over WhatsApp. The backend is
// selected by which credentials are configured: Twilio first, then the Meta
// Business Cloud API, then a log-only stub.
type WhatsAppSender struct {
	twilioClient *twilio.RestClient
	twilioFrom   string

	businessToken   string
	businessPhoneID string
	httpClient      *http.Client

	logger *zap.Logger
}

// NewWhatsAppSender creates a sender for whichever backend has credentials
func NewWhatsAppSender(twilioSID, twilioToken, twilioFrom, businessToken, businessPhoneID string, logger *zap.Logger) *WhatsAppSender {
	s := &WhatsAppSender{
		twilioFrom:      twilioFrom,
		businessToken:   businessToken,
		businessPhoneID: businessPhoneID,
		httpClient:      &http.Client{Timeout: 15 * time.Second},
		logger:          logger,
	}
	if twilioSID != "" && twilioToken != "" {
		s.twilioClient = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: twilioSID,
			Password: twilioToken,
		})
	}
	return s
}

// Send delivers one message to one recipient
func (s *WhatsAppSender) Send(ctx context.Context, phoneNumber, message string) error {
	phone := mpesa.FormatPhone(phoneNumber)

	if s.twilioClient != nil {
		return s.sendViaTwilio(phone, message)
	}
	if s.businessToken != "" {
		return s.sendViaBusinessAPI(ctx, phone, message)
	}

	// No backend configured: log-only stub
	s.logger.Info("WhatsApp notification (development mode)",
		zap.String("to", phone),
		zap.String("message", message))
	return nil
}

func (s *WhatsAppSender) sendViaTwilio(phone, message string) error {
	params := &twilioapi.CreateMessageParams{}
	params.SetFrom(s.twilioFrom)
	params.SetTo("whatsapp:+" + phone)
	params.SetBody(message)

	if _, err := s.twilioClient.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio send failed: %w", err)
	}
	return nil
}

func (s *WhatsAppSender) sendViaBusinessAPI(ctx context.Context, phone, message string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                phone,
		"type":              "text",
		"text":              map[string]string{"body": message},
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("https://graph.facebook.com/v18.0/%s/messages", s.businessPhoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.businessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp business api send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp business api send failed with status %d", resp.StatusCode)
	}
	return nil
}

// FormatOrderMessage renders the admin notification for a new order
func FormatOrderMessage(e *models.OrderConfirmationEvent) string {
	var b strings.Builder
	b.WriteString("*NEW ORDER RECEIVED*\n\n")
	fmt.Fprintf(&b, "Order: %s\n", e.OrderNumber)
	fmt.Fprintf(&b, "Customer: %s\n", e.CustomerName)
	fmt.Fprintf(&b, "Phone: %s\n", e.CustomerPhone)
	fmt.Fprintf(&b, "Total: Ksh %.2f\n", e.Total)
	fmt.Fprintf(&b, "Items: %d\n", len(e.Items))
	fmt.Fprintf(&b, "Payment: %s\n\n", e.PaymentMethod)
	b.WriteString("View order details in admin panel.")
	return b.String()
}
