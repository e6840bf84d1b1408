package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/models"
)

// EventType represents the type of checkout event.
type EventType string

const (
	EventTypePromoApplied       EventType = "checkout.promo_applied"
	EventTypeOrderSubmitted     EventType = "checkout.order_submitted"
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderStatusChanged EventType = "order.status_changed"
)

// Event is the envelope written to the checkout topic.
type Event struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	Key           string          `json:"key"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// PromoAppliedData is the payload of checkout.promo_applied.
type PromoAppliedData struct {
	SessionID      string `json:"session_id"`
	ProductID      string `json:"product_id"`
	Code           string `json:"code"`
	DiscountAmount string `json:"discount_amount"`
}

// OrderSubmittedData is the payload of checkout.order_submitted.
type OrderSubmittedData struct {
	SessionID  string              `json:"session_id"`
	ProductID  string              `json:"product_id"`
	Result     *models.OrderResult `json:"result"`
	HasPayLink bool                `json:"has_payment_link"`
}

// StatusChangedData is the payload of order.status_changed.
type StatusChangedData struct {
	Order          *models.LocalOrder `json:"order"`
	PreviousStatus models.OrderStatus `json:"previous_status"`
	NewStatus      models.OrderStatus `json:"new_status"`
}

// Publisher is what the services depend on. Publishing is best effort: callers log
// failures and carry on.
type Publisher interface {
	PublishPromoApplied(ctx context.Context, data *PromoAppliedData) error
	PublishOrderSubmitted(ctx context.Context, data *OrderSubmittedData) error
	PublishOrderCreated(ctx context.Context, order *models.LocalOrder) error
	PublishOrderStatusChanged(ctx context.Context, order *models.LocalOrder, previous models.OrderStatus) error
}

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = (*NopPublisher)(nil)
	_ Publisher = (*MockEventPublisher)(nil)
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes checkout events to Kafka.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *logging.LoggerV2
	now    func() time.Time
}

// NewKafkaPublisher creates a new Kafka-based event publisher.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *logging.LoggerV2) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.CheckoutTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	return newKafkaPublisher(writer, cfg.CheckoutTopic, logger)
}

func newKafkaPublisher(writer messageWriter, topic string, logger *logging.LoggerV2) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		topic:  topic,
		logger: logger,
		now:    time.Now,
	}
}

// PublishPromoApplied is keyed by session so a session's events stay ordered.
func (p *KafkaPublisher) PublishPromoApplied(ctx context.Context, data *PromoAppliedData) error {
	return p.publish(ctx, EventTypePromoApplied, data.SessionID, data)
}

func (p *KafkaPublisher) PublishOrderSubmitted(ctx context.Context, data *OrderSubmittedData) error {
	return p.publish(ctx, EventTypeOrderSubmitted, data.SessionID, data)
}

func (p *KafkaPublisher) PublishOrderCreated(ctx context.Context, order *models.LocalOrder) error {
	return p.publish(ctx, EventTypeOrderCreated, order.ID, order)
}

func (p *KafkaPublisher) PublishOrderStatusChanged(ctx context.Context, order *models.LocalOrder, previous models.OrderStatus) error {
	p.logger.Debug("Publishing order status changed event", logging.Fields{
		"order_id":        order.ID,
		"previous_status": previous,
		"new_status":      order.Status,
	})

	return p.publish(ctx, EventTypeOrderStatusChanged, order.ID, &StatusChangedData{
		Order:          order,
		PreviousStatus: previous,
		NewStatus:      order.Status,
	})
}

func (p *KafkaPublisher) createEvent(ctx context.Context, eventType EventType, key string, data []byte) *Event {
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Key:           key,
		Data:          data,
		Timestamp:     p.now().UTC(),
		CorrelationID: middleware.RequestIDFromContext(ctx),
	}
}

func (p *KafkaPublisher) publish(ctx context.Context, eventType EventType, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := p.createEvent(ctx, eventType, key, data)
	eventData, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.Key),
		Value: eventData,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish event", logging.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
			"key":        event.Key,
			"error":      err.Error(),
		})
		return err
	}

	p.logger.Info("Event published", logging.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"key":        event.Key,
	})
	return nil
}

// Close closes the Kafka writer.
func (p *KafkaPublisher) Close() error {
	p.logger.Info("Closing Kafka publisher")
	return p.writer.Close()
}

// NopPublisher drops every event. Used when FEATURE_ORDER_EVENTS is off.
type NopPublisher struct{}

func (NopPublisher) PublishPromoApplied(context.Context, *PromoAppliedData) error     { return nil }
func (NopPublisher) PublishOrderSubmitted(context.Context, *OrderSubmittedData) error { return nil }
func (NopPublisher) PublishOrderCreated(context.Context, *models.LocalOrder) error    { return nil }
func (NopPublisher) PublishOrderStatusChanged(context.Context, *models.LocalOrder, models.OrderStatus) error {
	return nil
}

// MockEventPublisher is a mock implementation for testing.
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []*Event
	Err    error
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{
		Events: make([]*Event, 0),
	}
}

func (m *MockEventPublisher) PublishPromoApplied(ctx context.Context, data *PromoAppliedData) error {
	return m.record(EventTypePromoApplied, data.SessionID, data)
}

func (m *MockEventPublisher) PublishOrderSubmitted(ctx context.Context, data *OrderSubmittedData) error {
	return m.record(EventTypeOrderSubmitted, data.SessionID, data)
}

func (m *MockEventPublisher) PublishOrderCreated(ctx context.Context, order *models.LocalOrder) error {
	return m.record(EventTypeOrderCreated, order.ID, order)
}

func (m *MockEventPublisher) PublishOrderStatusChanged(ctx context.Context, order *models.LocalOrder, previous models.OrderStatus) error {
	return m.record(EventTypeOrderStatusChanged, order.ID, &StatusChangedData{
		Order:          order,
		PreviousStatus: previous,
		NewStatus:      order.Status,
	})
}

// Types returns the recorded event types in publish order.
func (m *MockEventPublisher) Types() []EventType {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]EventType, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.Type
	}
	return out
}

func (m *MockEventPublisher) record(eventType EventType, key string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	data, _ := json.Marshal(payload)
	m.Events = append(m.Events, &Event{Type: eventType, Key: key, Data: data})
	return nil
}
