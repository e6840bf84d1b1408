package events

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/models"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Envelope(t *testing.T) {
	writer := &fakeWriter{}
	publisher := newKafkaPublisher(writer, "checkout-events", logging.NewNop())
	publisher.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	err := publisher.PublishOrderCreated(ctx, &models.LocalOrder{ID: "ord_1", Status: models.OrderStatusPending})
	require.NoError(t, err)

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, "ord_1", string(msg.Key))

	var event Event
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, EventTypeOrderCreated, event.Type)
	assert.Equal(t, "req-42", event.CorrelationID)
	assert.NotEmpty(t, event.ID)
	assert.True(t, event.Timestamp.Equal(publisher.now()))

	var order models.LocalOrder
	require.NoError(t, json.Unmarshal(event.Data, &order))
	assert.Equal(t, "ord_1", order.ID)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, string(EventTypeOrderCreated), headers["event_type"])
	assert.Equal(t, event.ID, headers["event_id"])
}

func TestKafkaPublisher_KeyedBySession(t *testing.T) {
	writer := &fakeWriter{}
	publisher := newKafkaPublisher(writer, "checkout-events", logging.NewNop())

	require.NoError(t, publisher.PublishPromoApplied(context.Background(), &PromoAppliedData{
		SessionID: "sess-1", Code: "SAVE50", DiscountAmount: "50",
	}))
	require.NoError(t, publisher.PublishOrderSubmitted(context.Background(), &OrderSubmittedData{
		SessionID: "sess-1", Result: &models.OrderResult{Success: true, OrderID: "ord_1"},
	}))

	require.Len(t, writer.messages, 2)
	for _, msg := range writer.messages {
		assert.Equal(t, "sess-1", string(msg.Key))
	}
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	writer := &fakeWriter{err: io.ErrClosedPipe}
	publisher := newKafkaPublisher(writer, "checkout-events", logging.NewNop())

	err := publisher.PublishOrderStatusChanged(context.Background(),
		&models.LocalOrder{ID: "ord_1", Status: models.OrderStatusPaid}, models.OrderStatusPending)
	assert.ErrorIs(t, err, io.ErrClosedPipe)

	require.NoError(t, publisher.Close())
	assert.True(t, writer.closed)
}

type fakePaymentHandler struct {
	paid      []string
	cancelled map[string]string
	err       error
}

func (h *fakePaymentHandler) MarkPaid(ctx context.Context, ref string) (*models.LocalOrder, error) {
	h.paid = append(h.paid, ref)
	return &models.LocalOrder{ID: ref, Status: models.OrderStatusPaid}, h.err
}

func (h *fakePaymentHandler) MarkCancelled(ctx context.Context, ref, reason string) (*models.LocalOrder, error) {
	if h.cancelled == nil {
		h.cancelled = map[string]string{}
	}
	h.cancelled[ref] = reason
	return &models.LocalOrder{ID: ref, Status: models.OrderStatusCancelled}, h.err
}

func paymentMessage(t *testing.T, event PaymentEvent) kafka.Message {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: data}
}

func TestKafkaConsumer_HandleMessage(t *testing.T) {
	tests := []struct {
		name          string
		event         PaymentEvent
		wantPaid      []string
		wantCancelled map[string]string
	}{
		{
			name:     "completed by ledger id",
			event:    PaymentEvent{Type: PaymentEventCompleted, OrderID: "ord_1"},
			wantPaid: []string{"ord_1"},
		},
		{
			name:     "completed by platform id",
			event:    PaymentEvent{Type: PaymentEventCompleted, TakeAppOrderID: "ta_9"},
			wantPaid: []string{"ta_9"},
		},
		{
			name:          "failed uses default reason",
			event:         PaymentEvent{Type: PaymentEventFailed, OrderID: "ord_2"},
			wantCancelled: map[string]string{"ord_2": "Payment failed"},
		},
		{
			name:  "refund ignored",
			event: PaymentEvent{Type: PaymentEventRefunded, OrderID: "ord_3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &fakePaymentHandler{}
			consumer := newKafkaConsumer(nil, handler, logging.NewNop())

			err := consumer.handleMessage(context.Background(), paymentMessage(t, tt.event))
			require.NoError(t, err)
			assert.Equal(t, tt.wantPaid, handler.paid)
			assert.Equal(t, tt.wantCancelled, handler.cancelled)
		})
	}
}

func TestKafkaConsumer_HandleMessageErrors(t *testing.T) {
	consumer := newKafkaConsumer(nil, &fakePaymentHandler{}, logging.NewNop())

	err := consumer.handleMessage(context.Background(), kafka.Message{Value: []byte("{not json")})
	assert.Error(t, err)

	err = consumer.handleMessage(context.Background(), paymentMessage(t, PaymentEvent{Type: PaymentEventCompleted}))
	var verr *errors.ValidationError
	assert.True(t, errors.As(err, &verr))

	unknown := newKafkaConsumer(nil, &fakePaymentHandler{err: errors.ErrNotFound}, logging.NewNop())
	err = unknown.handleMessage(context.Background(), paymentMessage(t, PaymentEvent{Type: PaymentEventCompleted, OrderID: "gone"}))
	assert.NoError(t, err)
}

type fakeReader struct {
	messages chan kafka.Message
	closed   chan struct{}
	once     sync.Once
}

func newFakeReader() *fakeReader {
	return &fakeReader{messages: make(chan kafka.Message, 4), closed: make(chan struct{})}
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case msg := <-r.messages:
		return msg, nil
	case <-r.closed:
		return kafka.Message{}, io.EOF
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) Close() error {
	r.once.Do(func() { close(r.closed) })
	return nil
}

func TestKafkaConsumer_StartStop(t *testing.T) {
	reader := newFakeReader()
	handler := &fakePaymentHandler{}
	consumer := newKafkaConsumer(reader, handler, logging.NewNop())

	reader.messages <- paymentMessage(t, PaymentEvent{Type: PaymentEventCompleted, OrderID: "ord_1"})

	done := make(chan error, 1)
	go func() { done <- consumer.Start(context.Background()) }()

	require.Eventually(t, func() bool { return len(reader.messages) == 0 }, time.Second, 5*time.Millisecond)
	consumer.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.Equal(t, []string{"ord_1"}, handler.paid)
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher()
	require.NoError(t, mock.PublishOrderCreated(context.Background(), &models.LocalOrder{ID: "ord_1"}))
	require.NoError(t, mock.PublishPromoApplied(context.Background(), &PromoAppliedData{SessionID: "s"}))
	assert.Equal(t, []EventType{EventTypeOrderCreated, EventTypePromoApplied}, mock.Types())

	mock.Err = io.ErrUnexpectedEOF
	assert.Error(t, mock.PublishOrderSubmitted(context.Background(), &OrderSubmittedData{SessionID: "s"}))
}
