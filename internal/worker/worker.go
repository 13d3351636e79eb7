package worker

import (
	"context"
	"sync"
	"time"

	"backoffice/internal/broker"
	"backoffice/internal/models"
	"backoffice/internal/notify"
	"backoffice/internal/util"

	"go.uber.org/zap"
)

const maxAttempts = 3

// retryBackoff is the base delay between delivery attempts; attempt n waits
// n times this long
var retryBackoff = 2 * time.Second

// RecipientLister resolves which operator phone numbers get WhatsApp alerts
type RecipientLister interface {
	ListWhatsAppRecipients(ctx context.Context) ([]string, error)
}

// EmailSender renders and sends the notification emails
type EmailSender interface {
	SendOrderConfirmation(e *models.OrderConfirmationEvent) error
	SendOrderStatusUpdate(e *models.OrderStatusUpdateEvent) error
	SendProductRequestNotification(e *models.ProductRequestReceivedEvent) error
}

// MessageSender delivers one WhatsApp message
type MessageSender interface {
	Send(ctx context.Context, phoneNumber, message string) error
}

// NotificationWorker consumes notification events off the queue and delivers
// email and WhatsApp messages. Delivery is best-effort: each channel retries
// a few times, then the failure is logged and the event is dropped. A
// notification failure never affects the order it describes.
type NotificationWorker struct {
	consumer   *broker.Consumer
	mailer     EmailSender
	whatsapp   MessageSender
	recipients RecipientLister
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewNotificationWorker creates a notification worker
func NewNotificationWorker(consumer *broker.Consumer, mailer EmailSender, whatsapp MessageSender, recipients RecipientLister, logger *zap.Logger) *NotificationWorker {
	return &NotificationWorker{
		consumer:   consumer,
		mailer:     mailer,
		whatsapp:   whatsapp,
		recipients: recipients,
		logger:     logger,
	}
}

// Start begins consuming in a background goroutine
func (w *NotificationWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	handler := broker.NewEventHandler()
	handler.OnOrderConfirmation(w.handleOrderConfirmation)
	handler.OnOrderStatusUpdate(w.handleOrderStatusUpdate)
	handler.OnProductRequestReceived(w.handleProductRequest)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.consumer.StartConsuming(ctx, handler.HandleMessage); err != nil && ctx.Err() == nil {
			w.logger.Error("notification consumer stopped", zap.Error(err))
		}
	}()
}

// Stop cancels consumption and waits for in-flight deliveries
func (w *NotificationWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *NotificationWorker) handleOrderConfirmation(ctx context.Context, e *models.OrderConfirmationEvent) error {
	w.deliverEmail(e.EventID, func() error {
		return w.mailer.SendOrderConfirmation(e)
	})
	w.notifyAdmins(ctx, e.EventID, notify.FormatOrderMessage(e))
	return nil
}

func (w *NotificationWorker) handleOrderStatusUpdate(ctx context.Context, e *models.OrderStatusUpdateEvent) error {
	w.deliverEmail(e.EventID, func() error {
		return w.mailer.SendOrderStatusUpdate(e)
	})
	return nil
}

func (w *NotificationWorker) handleProductRequest(ctx context.Context, e *models.ProductRequestReceivedEvent) error {
	w.deliverEmail(e.EventID, func() error {
		return w.mailer.SendProductRequestNotification(e)
	})
	return nil
}

func (w *NotificationWorker) deliverEmail(eventID string, send func() error) {
	if w.mailer == nil {
		return
	}
	if err := w.withRetries(send); err != nil {
		util.NotificationsDispatchedTotal.WithLabelValues("email", "failed").Inc()
		w.logger.Error("email delivery failed",
			zap.String("event_id", eventID), zap.Error(err))
		return
	}
	util.NotificationsDispatchedTotal.WithLabelValues("email", "sent").Inc()
}

func (w *NotificationWorker) notifyAdmins(ctx context.Context, eventID, message string) {
	if w.whatsapp == nil || w.recipients == nil {
		return
	}

	numbers, err := w.recipients.ListWhatsAppRecipients(ctx)
	if err != nil {
		w.logger.Error("failed to list whatsapp recipients", zap.Error(err))
		return
	}

	for _, number := range numbers {
		number := number
		if err := w.withRetries(func() error {
			return w.whatsapp.Send(ctx, number, message)
		}); err != nil {
			util.NotificationsDispatchedTotal.WithLabelValues("whatsapp", "failed").Inc()
			w.logger.Error("whatsapp delivery failed",
				zap.String("event_id", eventID),
				zap.String("recipient", number),
				zap.Error(err))
			continue
		}
		util.NotificationsDispatchedTotal.WithLabelValues("whatsapp", "sent").Inc()
	}
}

func (w *NotificationWorker) withRetries(fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt < maxAttempts {
			util.NotificationRetriesTotal.Inc()
			time.Sleep(retryBackoff * time.Duration(attempt))
		}
	}
	return err
}
