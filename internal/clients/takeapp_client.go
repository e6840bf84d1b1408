package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/middleware"
)

const takeAppService = "takeapp"

// ErrTakeAppNotConfigured is returned when no API key is set.
var ErrTakeAppNotConfigured = errors.New("take.app API key not configured")

// TakeAppOrderRequest is the order body the platform accepts. Amounts are whole rupees
// sent as a string.
type TakeAppOrderRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	CustomerEmail string `json:"customer_email"`
	TotalAmount   string `json:"total_amount"`
	Remark        string `json:"remark"`
}

// TakeAppOrder is the subset of the platform's order response we keep.
type TakeAppOrder struct {
	ID     string      `json:"id"`
	Number json.Number `json:"number"`
}

// TakeAppClient talks to the external order/payment platform. The read calls return
// the platform's JSON unchanged for the back-office views.
type TakeAppClient interface {
	CreateOrder(ctx context.Context, req *TakeAppOrderRequest) (*TakeAppOrder, error)
	PaymentURL(orderID string) string
	GetStore(ctx context.Context) (json.RawMessage, error)
	ListOrders(ctx context.Context) (json.RawMessage, error)
	GetInventory(ctx context.Context) (json.RawMessage, error)
}

const maxTakeAppBody = 4 << 20

var _ TakeAppClient = (*HTTPTakeAppClient)(nil)

// HTTPTakeAppClient implements TakeAppClient over HTTP.
type HTTPTakeAppClient struct {
	baseURL    string
	payBaseURL string
	storeAlias string
	apiKey     string
	httpClient *http.Client
	logger     *logging.LoggerV2
}

func NewHTTPTakeAppClient(cfg config.TakeAppConfig, logger *logging.LoggerV2) *HTTPTakeAppClient {
	return &HTTPTakeAppClient{
		baseURL:    cfg.BaseURL,
		payBaseURL: cfg.PayBaseURL,
		storeAlias: cfg.StoreAlias,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// CreateOrder creates an order on the platform. Any non-2xx answer is an error.
func (c *HTTPTakeAppClient) CreateOrder(ctx context.Context, req *TakeAppOrderRequest) (*TakeAppOrder, error) {
	if c.apiKey == "" {
		return nil, ErrTakeAppNotConfigured
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	// The platform only accepts the key as a query parameter.
	endpoint := fmt.Sprintf("%s/orders?api_key=%s", c.baseURL, url.QueryEscape(c.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if requestID := middleware.RequestIDFromContext(ctx); requestID != "" {
		httpReq.Header.Set(middleware.HeaderRequestID, requestID)
	}

	c.logger.Info("Creating Take.app order", logging.Fields{
		"customer_name": req.CustomerName,
		"total_amount":  req.TotalAmount,
	})

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	metrics.ObserveUpstream(takeAppService, "create_order", start, resp, err)
	if err != nil {
		c.logger.Error("Take.app request failed", logging.Fields{"error": err.Error()})
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		detail := readDetail(resp.Body)
		c.logger.Error("Take.app order creation failed", logging.Fields{
			"status_code": resp.StatusCode,
			"detail":      detail,
		})
		return nil, &errors.UpstreamError{Service: takeAppService, StatusCode: resp.StatusCode, Detail: detail}
	}

	var order TakeAppOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decode take.app order: %w", err)
	}

	c.logger.Info("Take.app order created", logging.Fields{
		"takeapp_order_id": order.ID,
		"number":           order.Number.String(),
	})
	return &order, nil
}

// PaymentURL is the customer-facing pay page for an order, or "" without an id.
func (c *HTTPTakeAppClient) PaymentURL(orderID string) string {
	if orderID == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/orders/%s/pay", c.payBaseURL, c.storeAlias, url.PathEscape(orderID))
}

func (c *HTTPTakeAppClient) GetStore(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "get_store", "/me")
}

func (c *HTTPTakeAppClient) ListOrders(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "list_orders", "/orders")
}

func (c *HTTPTakeAppClient) GetInventory(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "get_inventory", "/inventory")
}

func (c *HTTPTakeAppClient) get(ctx context.Context, operation, path string) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, ErrTakeAppNotConfigured
	}

	endpoint := fmt.Sprintf("%s%s?api_key=%s", c.baseURL, path, url.QueryEscape(c.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if requestID := middleware.RequestIDFromContext(ctx); requestID != "" {
		httpReq.Header.Set(middleware.HeaderRequestID, requestID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	metrics.ObserveUpstream(takeAppService, operation, start, resp, err)
	if err != nil {
		c.logger.Error("Take.app request failed", logging.Fields{"operation": operation, "error": err.Error()})
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail := readDetail(resp.Body)
		c.logger.Warn("Take.app returned an error", logging.Fields{
			"operation":   operation,
			"status_code": resp.StatusCode,
			"detail":      detail,
		})
		return nil, &errors.UpstreamError{Service: takeAppService, StatusCode: resp.StatusCode, Detail: detail}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTakeAppBody))
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("decode take.app %s: invalid JSON", operation)
	}
	return json.RawMessage(body), nil
}
