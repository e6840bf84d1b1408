package clients

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/models"
)

// Admin resources on the storefront backend.
const (
	ResourceFAQs           = "faqs"
	ResourceReviews        = "reviews"
	ResourcePaymentMethods = "payment-methods"
	ResourcePromoCodes     = "promo-codes"
)

// AdminClient forwards back-office CRUD to the storefront backend. The backend owns
// authentication; the caller's bearer token is passed through.
type AdminClient interface {
	List(ctx context.Context, resource string, out interface{}) error
	Create(ctx context.Context, resource string, in, out interface{}) error
	Update(ctx context.Context, resource, id string, in, out interface{}) error
	Delete(ctx context.Context, resource, id string) error
	Reorder(ctx context.Context, resource string, ids []string) error
	UpdateSettings(ctx context.Context, settings *models.PricingSettings) (*models.PricingSettings, error)
	Authorize(ctx context.Context) error
}

var _ AdminClient = (*HTTPAdminClient)(nil)

type HTTPAdminClient struct {
	rest   *restClient
	logger *logging.LoggerV2
}

func NewHTTPAdminClient(cfg config.ServiceConfig, creds CredentialProvider, logger *logging.LoggerV2) *HTTPAdminClient {
	return &HTTPAdminClient{
		rest:   newRESTClient(storefrontService, cfg, creds),
		logger: logger,
	}
}

func (c *HTTPAdminClient) List(ctx context.Context, resource string, out interface{}) error {
	return c.rest.do(ctx, "list_"+resource, http.MethodGet, "/"+resource, nil, out)
}

func (c *HTTPAdminClient) Create(ctx context.Context, resource string, in, out interface{}) error {
	if err := c.rest.do(ctx, "create_"+resource, http.MethodPost, "/"+resource, in, out); err != nil {
		c.logger.Error("Admin create failed", logging.Fields{"resource": resource, "error": err.Error()})
		return err
	}
	c.logger.Info("Admin resource created", logging.Fields{"resource": resource})
	return nil
}

func (c *HTTPAdminClient) Update(ctx context.Context, resource, id string, in, out interface{}) error {
	err := c.rest.do(ctx, "update_"+resource, http.MethodPut, "/"+resource+"/"+url.PathEscape(id), in, out)
	if err != nil {
		return notFound(err)
	}
	c.logger.Info("Admin resource updated", logging.Fields{"resource": resource, "id": id})
	return nil
}

func (c *HTTPAdminClient) Delete(ctx context.Context, resource, id string) error {
	err := c.rest.do(ctx, "delete_"+resource, http.MethodDelete, "/"+resource+"/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return notFound(err)
	}
	c.logger.Info("Admin resource deleted", logging.Fields{"resource": resource, "id": id})
	return nil
}

// Reorder sends the ids in display order; the backend expects a bare JSON array.
func (c *HTTPAdminClient) Reorder(ctx context.Context, resource string, ids []string) error {
	return c.rest.do(ctx, "reorder_"+resource, http.MethodPut, "/"+resource+"/reorder", ids, nil)
}

func (c *HTTPAdminClient) UpdateSettings(ctx context.Context, settings *models.PricingSettings) (*models.PricingSettings, error) {
	var updated models.PricingSettings
	if err := c.rest.do(ctx, "update_settings", http.MethodPut, "/settings", settings, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Authorize asks the backend whether the forwarded token belongs to an admin.
func (c *HTTPAdminClient) Authorize(ctx context.Context) error {
	err := c.rest.do(ctx, "authorize", http.MethodGet, "/auth/me", nil, nil)
	var upstream *errors.UpstreamError
	if errors.As(err, &upstream) &&
		(upstream.StatusCode == http.StatusUnauthorized || upstream.StatusCode == http.StatusForbidden) {
		return errors.ErrUnauthorized
	}
	return err
}

func notFound(err error) error {
	var upstream *errors.UpstreamError
	if errors.As(err, &upstream) && upstream.StatusCode == http.StatusNotFound {
		return errors.ErrNotFound
	}
	return err
}
