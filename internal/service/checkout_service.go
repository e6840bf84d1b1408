package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/checkout"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/clients"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/events"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/pricing"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/repository"
)

// CheckoutService opens checkout sessions and drives them on behalf of the API.
type CheckoutService struct {
	storefront clients.StorefrontClient
	cache      repository.CatalogCache
	submitter  checkout.OrderSubmitter
	publisher  events.Publisher
	store      *checkout.Store
	config     *config.Config
	logger     *logging.LoggerV2
	newID      func() string
}

// NewCheckoutService creates a new checkout service. cache may be nil. Orders go to
// submitter, which is either the in-process relay or the storefront client.
func NewCheckoutService(
	storefront clients.StorefrontClient,
	cache repository.CatalogCache,
	submitter checkout.OrderSubmitter,
	publisher events.Publisher,
	store *checkout.Store,
	cfg *config.Config,
) *CheckoutService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &CheckoutService{
		storefront: storefront,
		cache:      cache,
		submitter:  submitter,
		publisher:  publisher,
		store:      store,
		config:     cfg,
		logger:     logging.NewLoggerV2("checkout-service"),
		newID:      uuid.NewString,
	}
}

// OpenSession starts checkout for a product (id or slug) with its first variation
// selected.
func (s *CheckoutService) OpenSession(ctx context.Context, productRef string) (checkout.View, error) {
	productRef = strings.TrimSpace(productRef)
	if productRef == "" {
		return checkout.View{}, errors.NewValidationError("product", "product id or slug is required")
	}

	product, err := s.loadProduct(ctx, productRef)
	if err != nil {
		return checkout.View{}, err
	}
	if product.IsSoldOut {
		return checkout.View{}, errors.NewValidationError("product", "product is sold out")
	}
	if len(product.Variations) == 0 {
		return checkout.View{}, errors.NewValidationError("product", "product has no purchasable variations")
	}

	settings := s.loadSettings(ctx)

	session, err := checkout.NewSession(s.newID(), product, settings, checkout.Deps{
		Promos:        s.storefront,
		Orders:        s.submitter,
		CurrencyLabel: s.config.Checkout.CurrencyLabel,
	})
	if err != nil {
		return checkout.View{}, err
	}
	s.store.Put(session)
	metrics.SessionsOpened.Inc()

	s.logger.Info("Checkout session opened", logging.Fields{
		"session_id": session.ID(),
		"product_id": product.ID,
	})
	return session.View(), nil
}

// View returns the current snapshot of a session.
func (s *CheckoutService) View(id string) (checkout.View, error) {
	session, err := s.store.Get(id)
	if err != nil {
		return checkout.View{}, err
	}
	return session.View(), nil
}

// Quote returns the session's current price breakdown.
func (s *CheckoutService) Quote(id string) (pricing.OrderTotal, error) {
	session, err := s.store.Get(id)
	if err != nil {
		return pricing.OrderTotal{}, err
	}
	return session.Quote(), nil
}

func (s *CheckoutService) SelectVariation(id, variationID string) (checkout.View, error) {
	session, err := s.store.Get(id)
	if err != nil {
		return checkout.View{}, err
	}
	if err := session.SelectVariation(variationID); err != nil {
		return checkout.View{}, err
	}
	return session.View(), nil
}

// ApplyPromo validates a promo code for the session. The returned view is valid for
// both outcomes; on rejection it still shows any previously applied promo.
func (s *CheckoutService) ApplyPromo(ctx context.Context, id, code string) (checkout.View, error) {
	session, err := s.store.Get(id)
	if err != nil {
		return checkout.View{}, err
	}

	promo, err := session.ApplyPromo(ctx, code)
	metrics.PromoApplications.WithLabelValues(promoOutcome(err)).Inc()
	if err != nil {
		s.logger.Debug("Promo code not applied", logging.Fields{
			"session_id": id,
			"error":      err.Error(),
		})
		return session.View(), err
	}

	if err := s.publisher.PublishPromoApplied(ctx, &events.PromoAppliedData{
		SessionID:      id,
		ProductID:      session.Product().ID,
		Code:           promo.Code,
		DiscountAmount: promo.DiscountAmount.String(),
	}); err != nil {
		s.logger.Warn("Failed to publish promo applied event", logging.Fields{
			"session_id": id,
			"error":      err.Error(),
		})
	}
	return session.View(), nil
}

func (s *CheckoutService) RemovePromo(id string) (checkout.View, error) {
	session, err := s.store.Get(id)
	if err != nil {
		return checkout.View{}, err
	}
	session.RemovePromo()
	return session.View(), nil
}

func (s *CheckoutService) UpdateForm(id string, in checkout.FormInput) (checkout.View, error) {
	session, err := s.store.Get(id)
	if err != nil {
		return checkout.View{}, err
	}
	if err := session.UpdateForm(in); err != nil {
		return checkout.View{}, err
	}
	return session.View(), nil
}

// Submit places the order for a session. On success the view is in PAYMENT and warning
// is ErrPaymentLinkUnavailable when the customer has to contact support.
func (s *CheckoutService) Submit(ctx context.Context, id string) (view checkout.View, warning error, err error) {
	session, err := s.store.Get(id)
	if err != nil {
		return checkout.View{}, nil, err
	}

	outcome, err := session.Submit(ctx)
	metrics.Submissions.WithLabelValues(submitOutcome(outcome, err)).Inc()
	if err != nil {
		s.logger.Warn("Order submission failed", logging.Fields{
			"session_id": id,
			"error":      err.Error(),
		})
		return session.View(), nil, err
	}

	s.logger.Info("Order submitted", logging.Fields{
		"session_id":  id,
		"order_id":    outcome.Result.OrderID,
		"payment_url": outcome.Result.PaymentURL,
	})

	if err := s.publisher.PublishOrderSubmitted(ctx, &events.OrderSubmittedData{
		SessionID:  id,
		ProductID:  session.Product().ID,
		Result:     outcome.Result,
		HasPayLink: outcome.Result.HasPaymentLink(),
	}); err != nil {
		s.logger.Warn("Failed to publish order submitted event", logging.Fields{
			"session_id": id,
			"error":      err.Error(),
		})
	}
	return session.View(), outcome.Warning, nil
}

// PaymentRedirect returns the payment URL of a submitted session.
func (s *CheckoutService) PaymentRedirect(id string) (string, error) {
	session, err := s.store.Get(id)
	if err != nil {
		return "", err
	}
	return session.PaymentRedirect()
}

// Reopen starts a fresh dialog on the same product.
func (s *CheckoutService) Reopen(id string) (checkout.View, error) {
	session, err := s.store.Get(id)
	if err != nil {
		return checkout.View{}, err
	}
	session.Reopen()
	return session.View(), nil
}

// Close discards a session. In-flight promo checks and submissions are dropped.
func (s *CheckoutService) Close(id string) error {
	if !s.store.Delete(id) {
		return errors.ErrNotFound
	}
	s.logger.Debug("Checkout session closed", logging.Fields{"session_id": id})
	return nil
}

func (s *CheckoutService) loadProduct(ctx context.Context, ref string) (*models.Product, error) {
	if s.cacheEnabled() {
		product, err := s.cache.GetProduct(ctx, ref)
		if err != nil {
			s.logger.Warn("Product cache read failed", logging.Fields{"product": ref, "error": err.Error()})
		} else if product != nil {
			return product, nil
		}
	}

	product, err := s.storefront.GetProduct(ctx, ref)
	if err != nil {
		return nil, err
	}

	if s.cacheEnabled() {
		if err := s.cache.SetProduct(ctx, ref, product); err != nil {
			s.logger.Warn("Failed to cache product", logging.Fields{"product": ref, "error": err.Error()})
		}
	}
	return product, nil
}

// loadSettings never fails: without settings pricing uses no service charge and no tax.
func (s *CheckoutService) loadSettings(ctx context.Context) models.PricingSettings {
	if s.cacheEnabled() {
		cached, err := s.cache.GetSettings(ctx)
		if err != nil {
			s.logger.Warn("Settings cache read failed", logging.Fields{"error": err.Error()})
		} else if cached != nil {
			return *cached
		}
	}

	settings, err := s.storefront.GetSettings(ctx)
	if err != nil || settings == nil {
		fields := logging.Fields{}
		if err != nil {
			fields["error"] = err.Error()
		}
		s.logger.Warn("Using default pricing settings", fields)
		return models.DefaultPricingSettings()
	}

	if s.cacheEnabled() {
		if err := s.cache.SetSettings(ctx, settings); err != nil {
			s.logger.Warn("Failed to cache settings", logging.Fields{"error": err.Error()})
		}
	}
	return *settings
}

func (s *CheckoutService) cacheEnabled() bool {
	return s.cache != nil && s.config.Features.EnableCatalogCache
}

func promoOutcome(err error) string {
	var rejected *errors.PromoRejectedError
	var invalid *errors.ValidationError
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.As(err, &rejected):
		return metrics.OutcomeRejected
	case errors.Is(err, errors.ErrEmptyPromoCode), errors.As(err, &invalid):
		return metrics.OutcomeInvalid
	case errors.Is(err, errors.ErrSessionClosed):
		return metrics.OutcomeDiscarded
	case errors.Is(err, errors.ErrPromoCheckInProgress):
		return metrics.OutcomeDuplicate
	default:
		return metrics.OutcomeFailed
	}
}

func submitOutcome(outcome *checkout.SubmitOutcome, err error) string {
	var invalid *errors.ValidationError
	switch {
	case err == nil && outcome.Warning != nil:
		return metrics.OutcomeNoPayLink
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.As(err, &invalid):
		return metrics.OutcomeInvalid
	case errors.Is(err, errors.ErrSubmissionInProgress), errors.Is(err, errors.ErrAlreadySubmitted):
		return metrics.OutcomeDuplicate
	case errors.Is(err, errors.ErrSessionClosed):
		return metrics.OutcomeDiscarded
	default:
		return metrics.OutcomeFailed
	}
}
