package service

import (
	"html"
	"reflect"
	"strings"
	"unicode/utf8"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// NewValidator returns the request validator shared by the relay and admin services.
// Field names in errors are the JSON names, and decimals validate as numbers.
func NewValidator() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	v.RegisterStructValidation(promoCodeStructValidation, models.PromoCode{})

	return v
}

// promoCodeStructValidation caps percentage discounts at 100.
func promoCodeStructValidation(sl validatorv10.StructLevel) {
	promo := sl.Current().Interface().(models.PromoCode)
	if promo.DiscountType == models.DiscountTypePercentage && promo.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		sl.ReportError(promo.DiscountValue, "discount_value", "DiscountValue", "max_percentage", "100")
	}
}

// ValidateStruct runs v over in and converts failures to a ValidationError naming the
// first offending field. Details carries every failure.
func ValidateStruct(v *validatorv10.Validate, in interface{}) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validatorv10.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.NewValidationError("request", err.Error())
	}

	verr := errors.NewValidationError(fieldPath(fieldErrs[0]), describe(fieldErrs[0]))
	verr.Details = make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		verr.Details[fieldPath(fe)] = describe(fe)
	}
	return verr
}

// fieldPath drops the root struct name: "OrderPayload.items[0].name" -> "items[0].name".
func fieldPath(fe validatorv10.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validatorv10.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max_percentage":
		return "percentage discount cannot exceed " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// ValidateListParams normalizes paging for ledger listings.
func ValidateListParams(limit, offset int) (int, int, error) {
	if limit < 0 {
		return 0, 0, errors.NewValidationError("limit", "limit cannot be negative")
	}
	if offset < 0 {
		return 0, 0, errors.NewValidationError("offset", "offset cannot be negative")
	}

	if limit == 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, offset, nil
}

// ValidateCancellationReason validates an order cancellation reason.
func ValidateCancellationReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return errors.NewValidationError("reason", "cancellation reason is required")
	}
	if utf8.RuneCountInString(reason) > 500 {
		return errors.NewValidationError("reason", "cancellation reason too long (max 500 characters)")
	}
	return nil
}

// Sanitizer strips markup from customer-entered text before it is relayed.
type Sanitizer struct {
	policy   *bluemonday.Policy
	maxChars int
}

func NewSanitizer(maxChars int) *Sanitizer {
	return &Sanitizer{
		policy:   bluemonday.StrictPolicy(),
		maxChars: maxChars,
	}
}

// Text removes every HTML tag, keeps the plain text (entities decoded) and caps the
// length in runes. Line breaks survive.
func (s *Sanitizer) Text(in string) string {
	out, _ := s.TextTruncated(in)
	return out
}

// TextTruncated is Text that also reports whether the cap cut the text short.
func (s *Sanitizer) TextTruncated(in string) (string, bool) {
	out := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(in)))
	if s.maxChars > 0 && utf8.RuneCountInString(out) > s.maxChars {
		return string([]rune(out)[:s.maxChars]), true
	}
	return out, false
}
