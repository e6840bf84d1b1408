package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/clients"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/events"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/repository"
)

// OrderCreatedMessage is returned to the storefront on a successful relay.
const OrderCreatedMessage = "Order created successfully on Take.app"

// OrderRelay forwards checkout orders to the order platform and keeps a local ledger
// of what was relayed. It implements checkout.OrderSubmitter.
type OrderRelay struct {
	takeApp     clients.TakeAppClient
	orders      repository.OrderRepository
	idempotency repository.IdempotencyStore
	publisher   events.Publisher
	validate    *validatorv10.Validate
	sanitizer   *Sanitizer
	config      *config.Config
	logger      *logging.LoggerV2
	now         func() time.Time
	newID       func() string
}

// NewOrderRelay creates a new order relay. idempotency may be nil, in which case
// Idempotency-Key headers are ignored.
func NewOrderRelay(
	takeApp clients.TakeAppClient,
	orders repository.OrderRepository,
	idempotency repository.IdempotencyStore,
	publisher events.Publisher,
	cfg *config.Config,
) *OrderRelay {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &OrderRelay{
		takeApp:     takeApp,
		orders:      orders,
		idempotency: idempotency,
		publisher:   publisher,
		validate:    NewValidator(),
		sanitizer:   NewSanitizer(cfg.Checkout.MaxRemarkChars),
		config:      cfg,
		logger:      logging.NewLoggerV2("order-relay"),
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// CreateOrder validates the payload, creates the order on the platform, records it in
// the ledger and returns the customer's payment link. Platform failures are reported as
// SubmissionFailedError; a ledger write failure is logged and does not fail the order.
func (r *OrderRelay) CreateOrder(ctx context.Context, payload *models.OrderPayload) (*models.OrderResult, error) {
	if err := ValidateStruct(r.validate, payload); err != nil {
		metrics.RelayedOrders.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	itemsText := ItemsText(payload.Items)
	remark := r.relayRemark(itemsText, payload.Remark)

	req := &clients.TakeAppOrderRequest{
		CustomerName:  strings.TrimSpace(payload.CustomerName),
		CustomerPhone: FormatPhone(payload.CustomerPhone, r.config.Checkout.PhoneCountry),
		CustomerEmail: stringValue(payload.CustomerEmail),
		// Whole rupees; paisa are dropped.
		TotalAmount: payload.TotalAmount.Truncate(0).String(),
		Remark:      remark,
	}

	r.logger.Info("Relaying order", logging.Fields{
		"customer_name": req.CustomerName,
		"item_count":    len(payload.Items),
		"total_amount":  req.TotalAmount,
	})

	created, err := r.takeApp.CreateOrder(ctx, req)
	if err != nil {
		metrics.RelayedOrders.WithLabelValues(metrics.OutcomeFailed).Inc()
		r.logger.Error("Order relay failed", logging.Fields{"error": err.Error()})
		return nil, errors.NewSubmissionFailedError(err)
	}

	now := r.now().UTC()
	order := &models.LocalOrder{
		ID:                 r.newID(),
		TakeAppOrderID:     created.ID,
		TakeAppOrderNumber: created.Number.String(),
		CustomerName:       payload.CustomerName,
		CustomerPhone:      payload.CustomerPhone,
		CustomerEmail:      stringValue(payload.CustomerEmail),
		Items:              payload.Items,
		TotalAmount:        payload.TotalAmount,
		Remark:             stringValue(payload.Remark),
		ItemsText:          itemsText,
		Status:             models.OrderStatusPending,
		PaymentURL:         r.takeApp.PaymentURL(created.ID),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := r.orders.Create(ctx, order); err != nil {
		r.logger.Error("Failed to record relayed order", logging.Fields{
			"order_id":         order.ID,
			"takeapp_order_id": order.TakeAppOrderID,
			"error":            err.Error(),
		})
	} else if err := r.publisher.PublishOrderCreated(ctx, order); err != nil {
		r.logger.Warn("Failed to publish order created event", logging.Fields{
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}

	outcome := metrics.OutcomeSuccess
	if order.PaymentURL == "" {
		outcome = metrics.OutcomeNoPayLink
	}
	metrics.RelayedOrders.WithLabelValues(outcome).Inc()

	r.logger.Info("Order relayed", logging.Fields{
		"order_id":         order.ID,
		"takeapp_order_id": order.TakeAppOrderID,
	})

	return &models.OrderResult{
		Success:            true,
		OrderID:            order.ID,
		TakeAppOrderID:     order.TakeAppOrderID,
		TakeAppOrderNumber: order.TakeAppOrderNumber,
		PaymentURL:         order.PaymentURL,
		Message:            OrderCreatedMessage,
	}, nil
}

// CreateOrderIdempotent is CreateOrder guarded by an Idempotency-Key. A completed key
// replays the stored result (replayed is true); a key still in progress is a conflict;
// a failed key may be retried.
func (r *OrderRelay) CreateOrderIdempotent(ctx context.Context, key string, payload *models.OrderPayload) (result *models.OrderResult, replayed bool, err error) {
	key = strings.TrimSpace(key)
	if key == "" || r.idempotency == nil {
		result, err = r.CreateOrder(ctx, payload)
		return result, false, err
	}

	// Reject bad payloads before claiming the key.
	if err := ValidateStruct(r.validate, payload); err != nil {
		metrics.RelayedOrders.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, false, err
	}

	rec, started, err := r.idempotency.Begin(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("claim idempotency key: %w", err)
	}
	if !started {
		if rec.Status == repository.StatusDone && rec.Result != nil {
			metrics.RelayedOrders.WithLabelValues(metrics.OutcomeReplayed).Inc()
			r.logger.Info("Replaying relayed order", logging.Fields{
				"idempotency_key": key,
				"order_id":        rec.Result.OrderID,
			})
			return rec.Result, true, nil
		}
		metrics.RelayedOrders.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		return nil, false, errors.ErrIdempotencyConflict
	}

	result, err = r.CreateOrder(ctx, payload)
	if err != nil {
		if ferr := r.idempotency.Fail(ctx, key, err.Error()); ferr != nil {
			r.logger.Error("Failed to mark idempotency key failed", logging.Fields{
				"idempotency_key": key,
				"error":           ferr.Error(),
			})
		}
		return nil, false, err
	}

	if cerr := r.idempotency.Complete(ctx, key, result); cerr != nil {
		r.logger.Error("Failed to store idempotent result", logging.Fields{
			"idempotency_key": key,
			"error":           cerr.Error(),
		})
	}
	return result, false, nil
}

// ListOrders returns ledger rows, newest first.
func (r *OrderRelay) ListOrders(ctx context.Context, limit, offset int) ([]*models.LocalOrder, error) {
	limit, offset, err := ValidateListParams(limit, offset)
	if err != nil {
		return nil, err
	}
	return r.orders.List(ctx, limit, offset)
}

func (r *OrderRelay) GetOrder(ctx context.Context, id string) (*models.LocalOrder, error) {
	return r.orders.GetByID(ctx, id)
}

// TakeAppStore returns the platform's store profile.
func (r *OrderRelay) TakeAppStore(ctx context.Context) (json.RawMessage, error) {
	return r.platformView(r.takeApp.GetStore(ctx))
}

// TakeAppOrders returns the orders the platform holds for the store, including ones
// not relayed through this service.
func (r *OrderRelay) TakeAppOrders(ctx context.Context) (json.RawMessage, error) {
	return r.platformView(r.takeApp.ListOrders(ctx))
}

func (r *OrderRelay) TakeAppInventory(ctx context.Context) (json.RawMessage, error) {
	return r.platformView(r.takeApp.GetInventory(ctx))
}

func (r *OrderRelay) platformView(doc json.RawMessage, err error) (json.RawMessage, error) {
	if errors.Is(err, clients.ErrTakeAppNotConfigured) {
		return nil, errors.NewValidationError("api_key", "Take.app API key not configured")
	}
	return doc, err
}

// AttachPaymentScreenshot stores the customer's proof of payment on a ledger order.
func (r *OrderRelay) AttachPaymentScreenshot(ctx context.Context, id string, req *models.PaymentScreenshotRequest) (*models.LocalOrder, error) {
	if err := ValidateStruct(r.validate, req); err != nil {
		return nil, err
	}

	order, err := r.orders.SetPaymentScreenshot(ctx, id, strings.TrimSpace(req.ScreenshotURL))
	if err != nil {
		return nil, err
	}

	r.logger.Info("Payment screenshot attached", logging.Fields{"order_id": id})
	return order, nil
}

// MarkPaid moves a pending order to paid. ref is the ledger id or the platform id.
func (r *OrderRelay) MarkPaid(ctx context.Context, ref string) (*models.LocalOrder, error) {
	return r.transition(ctx, ref, models.OrderStatusPaid, "")
}

// MarkCancelled moves a pending order to cancelled.
func (r *OrderRelay) MarkCancelled(ctx context.Context, ref, reason string) (*models.LocalOrder, error) {
	if err := ValidateCancellationReason(reason); err != nil {
		return nil, err
	}
	return r.transition(ctx, ref, models.OrderStatusCancelled, reason)
}

func (r *OrderRelay) transition(ctx context.Context, ref string, status models.OrderStatus, reason string) (*models.LocalOrder, error) {
	order, err := r.orders.GetByID(ctx, ref)
	if errors.Is(err, errors.ErrNotFound) {
		order, err = r.orders.GetByTakeAppID(ctx, ref)
	}
	if err != nil {
		return nil, err
	}

	previous := order.Status
	updated, err := r.orders.UpdateStatus(ctx, order.ID, status)
	if err != nil {
		return nil, err
	}

	r.logger.Info("Order status updated", logging.Fields{
		"order_id":        updated.ID,
		"previous_status": previous,
		"new_status":      updated.Status,
		"reason":          reason,
	})

	if err := r.publisher.PublishOrderStatusChanged(ctx, updated, previous); err != nil {
		r.logger.Warn("Failed to publish order status changed event", logging.Fields{
			"order_id": updated.ID,
			"error":    err.Error(),
		})
	}
	return updated, nil
}

// relayRemark prefixes the item summary to the customer's remark. The remark is
// sanitized first since the platform renders it.
func (r *OrderRelay) relayRemark(itemsText string, remark *string) string {
	full := "Items: " + itemsText
	if remark == nil {
		return full
	}

	note, truncated := r.sanitizer.TextTruncated(*remark)
	if truncated {
		r.logger.Warn("Order remark truncated", logging.Fields{
			"max_chars":      r.sanitizer.maxChars,
			"original_chars": utf8.RuneCountInString(*remark),
		})
	}
	if note != "" {
		full += "\nNote: " + note
	}
	return full
}

// FormatPhone normalizes a customer phone for the platform: digits only, one leading
// zero dropped, and the country code prefixed to bare 10-digit numbers.
func FormatPhone(raw, countryCode string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	phone := strings.TrimPrefix(b.String(), "0")
	if countryCode != "" && !strings.HasPrefix(phone, countryCode) && len(phone) == 10 {
		phone = countryCode + phone
	}
	return phone
}

// ItemsText renders items as "1x Name (Variation), 2x Other".
func ItemsText(items []models.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		part := fmt.Sprintf("%dx %s", item.Quantity, item.Name)
		if item.Variation != "" {
			part += " (" + item.Variation + ")"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
