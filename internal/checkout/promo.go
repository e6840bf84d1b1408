package checkout

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/models"
)

// PromoValidator is the authoritative promo check (existence, expiry, usage limits,
// minimum subtotal, discount computation). The backend implements it.
type PromoValidator interface {
	ValidatePromo(ctx context.Context, code string, subtotal decimal.Decimal) (*models.PromoDiscount, error)
}

// NormalizePromoCode trims and upper-cases user input.
func NormalizePromoCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", errors.ErrEmptyPromoCode
	}
	return code, nil
}

// asPromoRejection turns any validator failure into a PromoRejectedError, keeping the
// collaborator's detail when it gave one.
func asPromoRejection(code string, err error) *errors.PromoRejectedError {
	var rejected *errors.PromoRejectedError
	if errors.As(err, &rejected) {
		return rejected
	}

	var upstream *errors.UpstreamError
	if errors.As(err, &upstream) && upstream.Detail != "" {
		return &errors.PromoRejectedError{Code: code, Detail: upstream.Detail, Cause: err}
	}

	return &errors.PromoRejectedError{Code: code, Detail: errors.DefaultPromoRejection, Cause: err}
}

// checkDiscount enforces 0 <= discount <= subtotal on what the collaborator returned.
func checkDiscount(code string, promo *models.PromoDiscount, subtotal decimal.Decimal) error {
	if promo == nil {
		return &errors.PromoRejectedError{Code: code, Detail: errors.DefaultPromoRejection}
	}
	if promo.DiscountAmount.IsNegative() || promo.DiscountAmount.GreaterThan(subtotal) {
		return &errors.PromoRejectedError{Code: code, Detail: "Promo code discount exceeds order subtotal"}
	}
	return nil
}
