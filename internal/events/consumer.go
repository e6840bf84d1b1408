package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/models"
)

// PaymentEventType represents the type of payment event.
type PaymentEventType string

const (
	PaymentEventCompleted PaymentEventType = "payment.completed"
	PaymentEventFailed    PaymentEventType = "payment.failed"
	PaymentEventRefunded  PaymentEventType = "payment.refunded"
)

// PaymentEvent is a payment notification for an order relayed to the platform. Either
// OrderID (ledger id) or TakeAppOrderID identifies the order.
type PaymentEvent struct {
	ID             string           `json:"id"`
	Type           PaymentEventType `json:"type"`
	OrderID        string           `json:"order_id,omitempty"`
	TakeAppOrderID string           `json:"takeapp_order_id,omitempty"`
	Reason         string           `json:"reason,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
}

// Ref returns the identifier the ledger should be looked up by.
func (e *PaymentEvent) Ref() string {
	if e.OrderID != "" {
		return e.OrderID
	}
	return e.TakeAppOrderID
}

// PaymentHandler applies payment outcomes to the order ledger.
type PaymentHandler interface {
	MarkPaid(ctx context.Context, ref string) (*models.LocalOrder, error)
	MarkCancelled(ctx context.Context, ref, reason string) (*models.LocalOrder, error)
}

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaConsumer consumes payment events from Kafka.
type KafkaConsumer struct {
	reader  messageReader
	handler PaymentHandler
	logger  *logging.LoggerV2
	stopCh  chan struct{}
}

// NewKafkaConsumer creates a new Kafka-based event consumer.
func NewKafkaConsumer(cfg config.KafkaConfig, handler PaymentHandler, logger *logging.LoggerV2) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.PaymentsTopic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})

	return newKafkaConsumer(reader, handler, logger)
}

func newKafkaConsumer(reader messageReader, handler PaymentHandler, logger *logging.LoggerV2) *KafkaConsumer {
	return &KafkaConsumer{
		reader:  reader,
		handler: handler,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Start begins consuming events. It returns when ctx is cancelled or Stop is called.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting Kafka consumer")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			c.logger.Info("Kafka consumer stopped")
			return nil
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				select {
				case <-c.stopCh:
					c.logger.Info("Kafka consumer stopped")
					return nil
				default:
				}
				c.logger.Error("Failed to read message", logging.Fields{"error": err.Error()})
				continue
			}

			if err := c.handleMessage(ctx, msg); err != nil {
				c.logger.Error("Failed to handle payment event", logging.Fields{
					"offset": msg.Offset,
					"error":  err.Error(),
				})
			}
		}
	}
}

// Stop stops the consumer.
func (c *KafkaConsumer) Stop() {
	close(c.stopCh)
	c.reader.Close()
}

func (c *KafkaConsumer) handleMessage(ctx context.Context, msg kafka.Message) error {
	c.logger.Debug("Received message", logging.Fields{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	var event PaymentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return err
	}
	if event.Ref() == "" {
		return errors.NewValidationError("order_id", "payment event carries no order reference")
	}

	var err error
	switch event.Type {
	case PaymentEventCompleted:
		c.logger.Info("Handling payment completed event", logging.Fields{"order_ref": event.Ref()})
		_, err = c.handler.MarkPaid(ctx, event.Ref())
	case PaymentEventFailed:
		reason := event.Reason
		if reason == "" {
			reason = "Payment failed"
		}
		c.logger.Info("Handling payment failed event", logging.Fields{"order_ref": event.Ref()})
		_, err = c.handler.MarkCancelled(ctx, event.Ref(), reason)
	default:
		// Refunds are settled on the platform; the ledger has no refunded state.
		c.logger.Debug("Ignoring payment event", logging.Fields{"type": event.Type})
		return nil
	}

	if errors.Is(err, errors.ErrNotFound) {
		// Orders placed through the storefront's own endpoint never reach this ledger.
		c.logger.Warn("Payment event for unknown order", logging.Fields{"order_ref": event.Ref()})
		return nil
	}
	return err
}
