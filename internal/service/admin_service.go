package service

import (
	"context"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/clients"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/repository"
)

// adminResource describes one back-office collection.
type adminResource struct {
	newItem func() interface{}
	newList func() interface{}
	prepare func(s *AdminService, item interface{})
	reorder bool
}

var adminResources = map[string]adminResource{
	clients.ResourceFAQs: {
		newItem: func() interface{} { return &models.FAQ{} },
		newList: func() interface{} { return &[]models.FAQ{} },
		prepare: func(s *AdminService, item interface{}) {
			faq := item.(*models.FAQ)
			faq.Question = strings.TrimSpace(faq.Question)
			faq.Answer = strings.TrimSpace(faq.Answer)
		},
		reorder: true,
	},
	clients.ResourceReviews: {
		newItem: func() interface{} { return &models.Review{} },
		newList: func() interface{} { return &[]models.Review{} },
		prepare: func(s *AdminService, item interface{}) {
			review := item.(*models.Review)
			review.ReviewerName = s.sanitizer.Text(review.ReviewerName)
			review.Comment = s.sanitizer.Text(review.Comment)
		},
	},
	clients.ResourcePaymentMethods: {
		newItem: func() interface{} { return &models.PaymentMethod{} },
		newList: func() interface{} { return &[]models.PaymentMethod{} },
		prepare: func(s *AdminService, item interface{}) {
			method := item.(*models.PaymentMethod)
			method.Name = strings.TrimSpace(method.Name)
		},
	},
	clients.ResourcePromoCodes: {
		newItem: func() interface{} { return &models.PromoCode{} },
		newList: func() interface{} { return &[]models.PromoCode{} },
		prepare: func(s *AdminService, item interface{}) {
			promo := item.(*models.PromoCode)
			promo.Code = strings.ToUpper(strings.TrimSpace(promo.Code))
		},
	},
}

// AdminService validates back-office edits and forwards them to the storefront backend.
type AdminService struct {
	client    clients.AdminClient
	cache     repository.CatalogCache
	validate  *validatorv10.Validate
	sanitizer *Sanitizer
	logger    *logging.LoggerV2
}

// NewAdminService creates a new admin service. cache may be nil.
func NewAdminService(client clients.AdminClient, cache repository.CatalogCache) *AdminService {
	return &AdminService{
		client:    client,
		cache:     cache,
		validate:  NewValidator(),
		sanitizer: NewSanitizer(0),
		logger:    logging.NewLoggerV2("admin-service"),
	}
}

// NewItem returns an empty body for resource, for request binding.
func (s *AdminService) NewItem(resource string) (interface{}, error) {
	res, err := lookupResource(resource)
	if err != nil {
		return nil, err
	}
	return res.newItem(), nil
}

func (s *AdminService) List(ctx context.Context, resource string) (interface{}, error) {
	res, err := lookupResource(resource)
	if err != nil {
		return nil, err
	}

	out := res.newList()
	if err := s.client.List(ctx, resource, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *AdminService) Create(ctx context.Context, resource string, item interface{}) (interface{}, error) {
	res, err := s.prepare(resource, item)
	if err != nil {
		return nil, err
	}

	out := res.newItem()
	if err := s.client.Create(ctx, resource, item, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *AdminService) Update(ctx context.Context, resource, id string, item interface{}) (interface{}, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.NewValidationError("id", "id is required")
	}
	res, err := s.prepare(resource, item)
	if err != nil {
		return nil, err
	}

	out := res.newItem()
	if err := s.client.Update(ctx, resource, id, item, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *AdminService) Delete(ctx context.Context, resource, id string) error {
	if _, err := lookupResource(resource); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return errors.NewValidationError("id", "id is required")
	}
	return s.client.Delete(ctx, resource, id)
}

// Reorder sets display order from the position of each id in req.
func (s *AdminService) Reorder(ctx context.Context, resource string, req *models.ReorderRequest) error {
	res, err := lookupResource(resource)
	if err != nil {
		return err
	}
	if !res.reorder {
		return errors.NewValidationError("resource", resource+" cannot be reordered")
	}
	if err := ValidateStruct(s.validate, req); err != nil {
		return err
	}

	seen := make(map[string]bool, len(req.IDs))
	for _, id := range req.IDs {
		if seen[id] {
			return errors.NewValidationError("ids", "duplicate id: "+id)
		}
		seen[id] = true
	}

	if err := s.client.Reorder(ctx, resource, req.IDs); err != nil {
		return err
	}
	s.logger.Info("Resource reordered", logging.Fields{"resource": resource, "count": len(req.IDs)})
	return nil
}

// Authorize checks the caller is an admin. Views served from this service rather than
// the backend need it.
func (s *AdminService) Authorize(ctx context.Context) error {
	return s.client.Authorize(ctx)
}

// UpdateSettings stores new pricing settings and drops the cached copy so new checkout
// sessions price with them.
func (s *AdminService) UpdateSettings(ctx context.Context, settings *models.PricingSettings) (*models.PricingSettings, error) {
	if settings.ServiceCharge.IsNegative() {
		return nil, errors.NewValidationError("service_charge", "service charge cannot be negative")
	}
	if settings.TaxPercentage.IsNegative() || settings.TaxPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return nil, errors.NewValidationError("tax_percentage", "tax percentage must be between 0 and 100")
	}
	settings.TaxLabel = strings.TrimSpace(settings.TaxLabel)
	if settings.TaxLabel == "" {
		settings.TaxLabel = models.DefaultTaxLabel
	}

	updated, err := s.client.UpdateSettings(ctx, settings)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateSettings(ctx); err != nil {
			s.logger.Warn("Failed to invalidate cached settings", logging.Fields{"error": err.Error()})
		}
	}

	s.logger.Info("Pricing settings updated", logging.Fields{
		"service_charge": updated.ServiceCharge.String(),
		"tax_percentage": updated.TaxPercentage.String(),
	})
	return updated, nil
}

func (s *AdminService) prepare(resource string, item interface{}) (adminResource, error) {
	res, err := lookupResource(resource)
	if err != nil {
		return adminResource{}, err
	}
	res.prepare(s, item)
	if err := ValidateStruct(s.validate, item); err != nil {
		return adminResource{}, err
	}
	return res, nil
}

func lookupResource(resource string) (adminResource, error) {
	res, ok := adminResources[resource]
	if !ok {
		return adminResource{}, errors.ErrNotFound
	}
	return res, nil
}
