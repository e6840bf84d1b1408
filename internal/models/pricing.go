package models

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

const DefaultTaxLabel = "Tax"

// PricingSettings is the process-wide pricing configuration served by GET /settings.
type PricingSettings struct {
	ServiceCharge decimal.Decimal `json:"service_charge"`
	TaxPercentage decimal.Decimal `json:"tax_percentage"`
	TaxLabel      string          `json:"tax_label"`
}

// DefaultPricingSettings is used whenever settings cannot be loaded.
func DefaultPricingSettings() PricingSettings {
	return PricingSettings{
		ServiceCharge: decimal.Zero,
		TaxPercentage: decimal.Zero,
		TaxLabel:      DefaultTaxLabel,
	}
}

// UnmarshalJSON tolerates the loose shapes the admin settings form stores: numbers,
// numeric strings, empty strings and nulls. Anything unparseable counts as zero.
func (s *PricingSettings) UnmarshalJSON(data []byte) error {
	var raw struct {
		ServiceCharge json.RawMessage `json:"service_charge"`
		TaxPercentage json.RawMessage `json:"tax_percentage"`
		TaxLabel      *string         `json:"tax_label"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.ServiceCharge = lenientDecimal(raw.ServiceCharge)
	s.TaxPercentage = lenientDecimal(raw.TaxPercentage)
	s.TaxLabel = DefaultTaxLabel
	if raw.TaxLabel != nil && *raw.TaxLabel != "" {
		s.TaxLabel = *raw.TaxLabel
	}
	return nil
}

func lenientDecimal(raw json.RawMessage) decimal.Decimal {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Zero
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return decimal.Zero
	}
	return d
}

// PromoDiscount is the result of a successful promo validation.
type PromoDiscount struct {
	Code           string          `json:"code"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}
