package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/models"
)

const storefrontService = "storefront"

// StorefrontClient is the storefront REST backend as seen by checkout.
type StorefrontClient interface {
	GetProduct(ctx context.Context, idOrSlug string) (*models.Product, error)
	GetSettings(ctx context.Context) (*models.PricingSettings, error)
	ValidatePromo(ctx context.Context, code string, subtotal decimal.Decimal) (*models.PromoDiscount, error)
	CreateOrder(ctx context.Context, payload *models.OrderPayload) (*models.OrderResult, error)
}

var _ StorefrontClient = (*HTTPStorefrontClient)(nil)

// HTTPStorefrontClient implements StorefrontClient over HTTP.
type HTTPStorefrontClient struct {
	rest   *restClient
	logger *logging.LoggerV2
}

// NewHTTPStorefrontClient creates a storefront client. A nil creds falls back to the
// configured service token.
func NewHTTPStorefrontClient(cfg config.ServiceConfig, creds CredentialProvider, logger *logging.LoggerV2) *HTTPStorefrontClient {
	return &HTTPStorefrontClient{
		rest:   newRESTClient(storefrontService, cfg, creds),
		logger: logger,
	}
}

// GetProduct fetches a product with its variations and custom fields.
func (c *HTTPStorefrontClient) GetProduct(ctx context.Context, idOrSlug string) (*models.Product, error) {
	c.logger.Debug("Fetching product", logging.Fields{"product": idOrSlug})

	var product models.Product
	if err := c.rest.do(ctx, "get_product", http.MethodGet, "/products/"+url.PathEscape(idOrSlug), nil, &product); err != nil {
		var upstream *errors.UpstreamError
		if errors.As(err, &upstream) && upstream.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("product %s: %w", idOrSlug, errors.ErrNotFound)
		}
		return nil, err
	}
	return &product, nil
}

// GetSettings fetches pricing settings. Callers fall back to defaults on error.
func (c *HTTPStorefrontClient) GetSettings(ctx context.Context) (*models.PricingSettings, error) {
	var settings models.PricingSettings
	if err := c.rest.do(ctx, "get_settings", http.MethodGet, "/settings", nil, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// ValidatePromo asks the backend to validate code against subtotal. A 4xx response
// becomes a PromoRejectedError carrying the backend's detail message.
func (c *HTTPStorefrontClient) ValidatePromo(ctx context.Context, code string, subtotal decimal.Decimal) (*models.PromoDiscount, error) {
	q := url.Values{}
	q.Set("code", code)
	q.Set("subtotal", subtotal.String())

	var promo models.PromoDiscount
	err := c.rest.do(ctx, "validate_promo", http.MethodPost, "/promo-codes/validate?"+q.Encode(), nil, &promo)
	if err != nil {
		var upstream *errors.UpstreamError
		if errors.As(err, &upstream) && upstream.StatusCode >= 400 && upstream.StatusCode < 500 {
			return nil, &errors.PromoRejectedError{Code: code, Detail: upstream.Detail, Cause: err}
		}
		return nil, err
	}

	c.logger.Debug("Promo code validated", logging.Fields{
		"code":     promo.Code,
		"discount": promo.DiscountAmount.String(),
	})
	return &promo, nil
}

// CreateOrder submits an order payload to the backend's order relay.
func (c *HTTPStorefrontClient) CreateOrder(ctx context.Context, payload *models.OrderPayload) (*models.OrderResult, error) {
	var result models.OrderResult
	if err := c.rest.do(ctx, "create_order", http.MethodPost, "/orders/create", payload, &result); err != nil {
		c.logger.Error("Order creation failed", logging.Fields{
			"customer_name": payload.CustomerName,
			"error":         err.Error(),
		})
		return nil, err
	}

	c.logger.Info("Order created", logging.Fields{
		"order_id":         result.OrderID,
		"takeapp_order_id": result.TakeAppOrderID,
		"has_payment_url":  result.HasPaymentLink(),
	})
	return &result, nil
}
