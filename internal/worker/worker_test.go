package worker

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"backoffice/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	retryBackoff = time.Millisecond
	os.Exit(m.Run())
}

type recordingMailer struct {
	mu            sync.Mutex
	confirmations int
	statusUpdates int
	requests      int
	failuresLeft  int
	attempts      int
}

func (m *recordingMailer) attempt() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.failuresLeft > 0 {
		m.failuresLeft--
		return errors.New("smtp unavailable")
	}
	return nil
}

func (m *recordingMailer) SendOrderConfirmation(*models.OrderConfirmationEvent) error {
	if err := m.attempt(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmations++
	return nil
}

func (m *recordingMailer) SendOrderStatusUpdate(*models.OrderStatusUpdateEvent) error {
	if err := m.attempt(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusUpdates++
	return nil
}

func (m *recordingMailer) SendProductRequestNotification(*models.ProductRequestReceivedEvent) error {
	if err := m.attempt(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++
	return nil
}

type recordingSender struct {
	mu   sync.Mutex
	sent map[string]string
	err  error
}

func (s *recordingSender) Send(_ context.Context, phoneNumber, message string) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent == nil {
		s.sent = map[string]string{}
	}
	s.sent[phoneNumber] = message
	return nil
}

type staticRecipients struct {
	numbers []string
	err     error
}

func (r *staticRecipients) ListWhatsAppRecipients(context.Context) ([]string, error) {
	return r.numbers, r.err
}

func confirmationEvent() *models.OrderConfirmationEvent {
	return &models.OrderConfirmationEvent{
		BaseEvent:     models.BaseEvent{EventID: "evt-1", EventType: models.EventTypeOrderConfirmation},
		OrderID:       1,
		OrderNumber:   "OS2401021234",
		CustomerName:  "Jane Wanjiku",
		CustomerEmail: "jane@example.com",
		CustomerPhone: "254712345678",
		PaymentMethod: models.PaymentMethodMpesaSTK,
		Total:         500,
	}
}

func TestOrderConfirmationDeliversBothChannels(t *testing.T) {
	mailer := &recordingMailer{}
	sender := &recordingSender{}
	w := NewNotificationWorker(nil, mailer, sender,
		&staticRecipients{numbers: []string{"254700000001", "254700000002"}}, zap.NewNop())

	err := w.handleOrderConfirmation(context.Background(), confirmationEvent())
	require.NoError(t, err)

	assert.Equal(t, 1, mailer.confirmations)
	assert.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent["254700000001"], "OS2401021234")
}

func TestEmailRetriedUntilSuccess(t *testing.T) {
	mailer := &recordingMailer{failuresLeft: 2}
	w := NewNotificationWorker(nil, mailer, nil, nil, zap.NewNop())

	err := w.handleOrderStatusUpdate(context.Background(), &models.OrderStatusUpdateEvent{
		BaseEvent: models.BaseEvent{EventID: "evt-2"},
		NewStatus: models.OrderStatusShipped,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, mailer.attempts)
	assert.Equal(t, 1, mailer.statusUpdates)
}

func TestEmailFailureIsSwallowed(t *testing.T) {
	mailer := &recordingMailer{failuresLeft: maxAttempts}
	w := NewNotificationWorker(nil, mailer, nil, nil, zap.NewNop())

	// A permanently failing channel never propagates an error upward
	err := w.handleProductRequest(context.Background(), &models.ProductRequestReceivedEvent{
		BaseEvent: models.BaseEvent{EventID: "evt-3"},
	})
	require.NoError(t, err)
	assert.Equal(t, maxAttempts, mailer.attempts)
	assert.Zero(t, mailer.requests)
}

func TestWhatsAppFailureDoesNotBlockOthers(t *testing.T) {
	mailer := &recordingMailer{}
	sender := &recordingSender{err: errors.New("gateway down")}
	w := NewNotificationWorker(nil, mailer, sender,
		&staticRecipients{numbers: []string{"254700000001"}}, zap.NewNop())

	err := w.handleOrderConfirmation(context.Background(), confirmationEvent())
	require.NoError(t, err)
	assert.Equal(t, 1, mailer.confirmations)
}

func TestRecipientLookupFailureIsSwallowed(t *testing.T) {
	mailer := &recordingMailer{}
	sender := &recordingSender{}
	w := NewNotificationWorker(nil, mailer, sender,
		&staticRecipients{err: errors.New("db down")}, zap.NewNop())

	err := w.handleOrderConfirmation(context.Background(), confirmationEvent())
	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}
