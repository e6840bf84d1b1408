package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/logging"
)

func stringsReader(s string) io.Reader { return strings.NewReader(s) }

func newTestTakeApp(t *testing.T, apiKey string, handler http.HandlerFunc) *HTTPTakeAppClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewHTTPTakeAppClient(config.TakeAppConfig{
		BaseURL:    srv.URL + "/api/platform",
		PayBaseURL: "https://take.app",
		APIKey:     apiKey,
		StoreAlias: "gsn",
		Timeout:    2 * time.Second,
	}, logging.NewNop())
}

func TestTakeApp_CreateOrder(t *testing.T) {
	var got TakeAppOrderRequest
	client := newTestTakeApp(t, "k3y", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/platform/orders", r.URL.Path)
		assert.Equal(t, "k3y", r.URL.Query().Get("api_key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id": "abc123", "number": 42}`)
	})

	order, err := client.CreateOrder(context.Background(), &TakeAppOrderRequest{
		CustomerName:  "Asha",
		CustomerPhone: "9779812345678",
		TotalAmount:   "1067",
		Remark:        "Items: 1x Credits (1000)",
	})

	require.NoError(t, err)
	assert.Equal(t, "abc123", order.ID)
	assert.Equal(t, "42", order.Number.String())
	assert.Equal(t, "1067", got.TotalAmount)
	assert.Equal(t, "", got.CustomerEmail)
	assert.Equal(t, "https://take.app/gsn/orders/abc123/pay", client.PaymentURL(order.ID))
}

func TestTakeApp_CreateOrderFailure(t *testing.T) {
	client := newTestTakeApp(t, "k3y", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"message": "invalid phone"}`)
	})

	_, err := client.CreateOrder(context.Background(), &TakeAppOrderRequest{})

	var upstream *errors.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, "invalid phone", upstream.Detail)
}

func TestTakeApp_NotConfigured(t *testing.T) {
	called := false
	client := newTestTakeApp(t, "", func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := client.CreateOrder(context.Background(), &TakeAppOrderRequest{})

	assert.ErrorIs(t, err, ErrTakeAppNotConfigured)
	assert.False(t, called)
}

func TestTakeApp_PaymentURLWithoutID(t *testing.T) {
	client := NewHTTPTakeAppClient(config.TakeAppConfig{PayBaseURL: "https://take.app", StoreAlias: "gsn"}, logging.NewNop())

	assert.Equal(t, "", client.PaymentURL(""))
}

func TestTakeApp_ReadViews(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		fetch func(c *HTTPTakeAppClient) (json.RawMessage, error)
		body  string
	}{
		{"store", "/api/platform/me", func(c *HTTPTakeAppClient) (json.RawMessage, error) {
			return c.GetStore(context.Background())
		}, `{"alias":"gsn"}`},
		{"orders", "/api/platform/orders", func(c *HTTPTakeAppClient) (json.RawMessage, error) {
			return c.ListOrders(context.Background())
		}, `[{"id":"ta_1"}]`},
		{"inventory", "/api/platform/inventory", func(c *HTTPTakeAppClient) (json.RawMessage, error) {
			return c.GetInventory(context.Background())
		}, `[{"sku":"credits-1000","quantity":5}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestTakeApp(t, "k3y", func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, tt.path, r.URL.Path)
				assert.Equal(t, "k3y", r.URL.Query().Get("api_key"))
				_, _ = io.WriteString(w, tt.body)
			})

			doc, err := tt.fetch(client)

			require.NoError(t, err)
			assert.JSONEq(t, tt.body, string(doc))
		})
	}
}

func TestTakeApp_ReadViewErrors(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		called := false
		client := newTestTakeApp(t, "", func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		_, err := client.ListOrders(context.Background())

		assert.ErrorIs(t, err, ErrTakeAppNotConfigured)
		assert.False(t, called)
	})

	t.Run("platform error", func(t *testing.T) {
		client := newTestTakeApp(t, "k3y", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message": "invalid api key"}`)
		})

		_, err := client.GetStore(context.Background())

		var upstream *errors.UpstreamError
		require.True(t, errors.As(err, &upstream))
		assert.Equal(t, http.StatusUnauthorized, upstream.StatusCode)
		assert.Equal(t, "invalid api key", upstream.Detail)
	})

	t.Run("invalid body", func(t *testing.T) {
		client := newTestTakeApp(t, "k3y", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "<html>maintenance</html>")
		})

		_, err := client.GetInventory(context.Background())

		assert.Error(t, err)
	})
}
