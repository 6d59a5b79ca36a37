package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/config"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/service"
)

// KafkaConsumer consumes gateway payment events bridged into Kafka and feeds
// them through the same idempotent webhook path as HTTP deliveries, so
// duplicates across the two transports stay no-ops.
type KafkaConsumer struct {
	reader         *kafka.Reader
	webhookService *service.WebhookService
	logger         *logrus.Entry
	stopCh         chan struct{}
}

// NewKafkaConsumer creates a new Kafka-based payment event consumer.
func NewKafkaConsumer(cfg config.KafkaConfig, webhookService *service.WebhookService, logger *logrus.Logger) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.PaymentsTopic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})

	return &KafkaConsumer{
		reader:         reader,
		webhookService: webhookService,
		logger:         logger.WithField("component", "payment-consumer"),
		stopCh:         make(chan struct{}),
	}
}

// Start begins consuming events. It returns when the context is cancelled or
// Stop is called.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting payment event consumer")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			c.logger.Info("Payment event consumer stopped")
			return nil
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logger.WithError(err).Error("Failed to read message")
				continue
			}

			c.handleMessage(ctx, msg)
		}
	}
}

// Stop stops the consumer.
func (c *KafkaConsumer) Stop() {
	close(c.stopCh)
	c.reader.Close()
}

func (c *KafkaConsumer) handleMessage(ctx context.Context, msg kafka.Message) {
	var event service.GatewayEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}).Error("Failed to unmarshal gateway event")
		return
	}

	if err := c.webhookService.ApplyGatewayEvent(ctx, &event); err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": event.Type,
			"event_id":   event.ID,
		}).Error("Failed to apply gateway event")
	}
}
