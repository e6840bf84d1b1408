// Package pricing derives checkout totals. It is pure: no I/O, no rounding. Rounding
// happens only when amounts are formatted for display.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/models"
)

// OrderTotal is the full price breakdown for one checkout.
type OrderTotal struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	AfterDiscount decimal.Decimal `json:"after_discount"`
	ServiceCharge decimal.Decimal `json:"service_charge"`
	TaxPercentage decimal.Decimal `json:"tax_percentage"`
	TaxLabel      string          `json:"tax_label"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Total         decimal.Decimal `json:"total"`
}

// LineItem is one row of an itemized price display.
type LineItem struct {
	Kind   string          `json:"kind"`
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

const (
	LineSubtotal      = "subtotal"
	LineDiscount      = "discount"
	LineServiceCharge = "service_charge"
	LineTax           = "tax"
	LineTotal         = "total"
)

// CalculateTax applies a percentage to the discounted amount. Shift keeps it exact.
func CalculateTax(afterDiscount, taxPercentage decimal.Decimal) decimal.Decimal {
	return afterDiscount.Mul(taxPercentage).Shift(-2)
}

// CalculateOrderTotal computes:
//
//	after_discount = subtotal - discount
//	tax            = after_discount * tax_percentage / 100
//	total          = after_discount + service_charge + tax
//
// after_discount is not clamped at zero; promo validation keeps discount <= subtotal.
func CalculateOrderTotal(subtotal, discount decimal.Decimal, settings models.PricingSettings) OrderTotal {
	afterDiscount := subtotal.Sub(discount)
	tax := CalculateTax(afterDiscount, settings.TaxPercentage)

	label := settings.TaxLabel
	if label == "" {
		label = models.DefaultTaxLabel
	}

	return OrderTotal{
		Subtotal:      subtotal,
		Discount:      discount,
		AfterDiscount: afterDiscount,
		ServiceCharge: settings.ServiceCharge,
		TaxPercentage: settings.TaxPercentage,
		TaxLabel:      label,
		TaxAmount:     tax,
		Total:         afterDiscount.Add(settings.ServiceCharge).Add(tax),
	}
}

// LineItems itemizes the total. Zero-valued discount, service charge and tax rows are
// omitted; they still take part in the total as zero terms.
func (t OrderTotal) LineItems() []LineItem {
	items := []LineItem{{Kind: LineSubtotal, Label: "Subtotal", Amount: t.Subtotal}}

	if !t.Discount.IsZero() {
		items = append(items, LineItem{Kind: LineDiscount, Label: "Promo Discount", Amount: t.Discount.Neg()})
	}
	if t.ServiceCharge.IsPositive() {
		items = append(items, LineItem{Kind: LineServiceCharge, Label: "Service Charge", Amount: t.ServiceCharge})
	}
	if t.TaxPercentage.IsPositive() {
		items = append(items, LineItem{
			Kind:   LineTax,
			Label:  t.TaxLabel + " (" + t.TaxPercentage.String() + "%)",
			Amount: t.TaxAmount,
		})
	}

	return append(items, LineItem{Kind: LineTotal, Label: "Total", Amount: t.Total})
}

// FormatAmount renders an amount with two decimals for display.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
