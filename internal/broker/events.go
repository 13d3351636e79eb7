package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"backoffice/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing notification events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderConfirmation publishes an OrderConfirmation event
func (ep *EventPublisher) PublishOrderConfirmation(ctx context.Context, event *models.OrderConfirmationEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOrderStatusUpdate publishes an OrderStatusUpdate event
func (ep *EventPublisher) PublishOrderStatusUpdate(ctx context.Context, event *models.OrderStatusUpdateEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishProductRequestReceived publishes a ProductRequestReceived event
func (ep *EventPublisher) PublishProductRequestReceived(ctx context.Context, event *models.ProductRequestReceivedEvent) error {
	key := fmt.Sprintf("request-%d", event.RequestID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes notification events to registered handlers
type EventHandler struct {
	onOrderConfirmation func(context.Context, *models.OrderConfirmationEvent) error
	onOrderStatusUpdate func(context.Context, *models.OrderStatusUpdateEvent) error
	onProductRequest    func(context.Context, *models.ProductRequestReceivedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnOrderConfirmation registers a handler for OrderConfirmation events
func (eh *EventHandler) OnOrderConfirmation(handler func(context.Context, *models.OrderConfirmationEvent) error) {
	eh.onOrderConfirmation = handler
}

// OnOrderStatusUpdate registers a handler for OrderStatusUpdate events
func (eh *EventHandler) OnOrderStatusUpdate(handler func(context.Context, *models.OrderStatusUpdateEvent) error) {
	eh.onOrderStatusUpdate = handler
}

// OnProductRequestReceived registers a handler for ProductRequestReceived events
func (eh *EventHandler) OnProductRequestReceived(handler func(context.Context, *models.ProductRequestReceivedEvent) error) {
	eh.onProductRequest = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeOrderConfirmation:
		if eh.onOrderConfirmation != nil {
			var event models.OrderConfirmationEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderConfirmation event: %w", err)
			}
			return eh.onOrderConfirmation(ctx, &event)
		}

	case models.EventTypeOrderStatusUpdate:
		if eh.onOrderStatusUpdate != nil {
			var event models.OrderStatusUpdateEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderStatusUpdate event: %w", err)
			}
			return eh.onOrderStatusUpdate(ctx, &event)
		}

	case models.EventTypeProductRequestReceived:
		if eh.onProductRequest != nil {
			var event models.ProductRequestReceivedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ProductRequestReceived event: %w", err)
			}
			return eh.onProductRequest(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
