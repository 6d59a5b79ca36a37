package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/config"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/models"
)

// EventType represents the type of order event.
type EventType string

const (
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderPaid          EventType = "order.paid"
	EventTypeOrderStatusChanged EventType = "order.status_changed"
	EventTypeOrderCancelled     EventType = "order.cancelled"
	EventTypeOrderCompleted     EventType = "order.completed"
)

// OrderEvent is the envelope published for every order lifecycle change.
type OrderEvent struct {
	ID          string          `json:"id"`
	Type        EventType       `json:"type"`
	OrderID     string          `json:"order_id"`
	OrderNumber int64           `json:"order_number"`
	Data        json.RawMessage `json:"data,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// KafkaPublisher publishes order events to Kafka.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *logrus.Entry
}

// NewKafkaPublisher creates a new Kafka-based event publisher.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *logrus.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.OrdersTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaPublisher{
		writer: writer,
		logger: logger.WithField("component", "event-publisher"),
	}
}

// PublishOrderCreated publishes an order created event.
func (p *KafkaPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return p.publish(ctx, newEvent(EventTypeOrderCreated, order, data))
}

// PublishOrderPaid publishes the payment-confirmed transition.
func (p *KafkaPublisher) PublishOrderPaid(ctx context.Context, order *models.Order) error {
	return p.publish(ctx, newEvent(EventTypeOrderPaid, order, nil))
}

// PublishOrderStatusChanged publishes a staff-driven workflow transition.
func (p *KafkaPublisher) PublishOrderStatusChanged(ctx context.Context, order *models.Order, previous models.OrderStatus) error {
	payload := struct {
		PreviousStatus models.OrderStatus `json:"previous_status"`
		NewStatus      models.OrderStatus `json:"new_status"`
	}{previous, order.Status}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.publish(ctx, newEvent(EventTypeOrderStatusChanged, order, data))
}

// PublishOrderCancelled publishes an order cancellation.
func (p *KafkaPublisher) PublishOrderCancelled(ctx context.Context, order *models.Order, reason string) error {
	payload := struct {
		Reason string `json:"reason"`
	}{reason}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.publish(ctx, newEvent(EventTypeOrderCancelled, order, data))
}

// PublishOrderCompleted publishes the terminal pickup transition.
func (p *KafkaPublisher) PublishOrderCompleted(ctx context.Context, order *models.Order) error {
	return p.publish(ctx, newEvent(EventTypeOrderCompleted, order, nil))
}

func newEvent(eventType EventType, order *models.Order, data []byte) *OrderEvent {
	return &OrderEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		OrderID:     order.ID,
		OrderNumber: order.Number,
		Data:        data,
		Timestamp:   time.Now().UTC(),
	}
}

func (p *KafkaPublisher) publish(ctx context.Context, event *OrderEvent) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: eventData,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": event.Type,
			"order_id":   event.OrderID,
		}).Error("Failed to publish event")
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"event_type": event.Type,
		"order_id":   event.OrderID,
	}).Debug("Event published")

	return nil
}

// Close closes the Kafka writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
