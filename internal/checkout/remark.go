package checkout

import (
	"strings"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/models"
)

// BuildRemark assembles the free-text remark the order platform receives. Downstream
// processing parses it, so the layout is fixed:
//
//	<Label>: <value>                      one line per filled custom field, product order
//	Promo Code: <CODE> (-<cur> <amount>)  when a promo is applied
//	Notes: <remark>                       when the customer left notes
//
// The result is trimmed; an empty remark is nil.
func BuildRemark(product *models.Product, form OrderForm, promo *models.PromoDiscount, currency string) *string {
	var b strings.Builder

	for _, field := range product.CustomFields {
		if value := form.CustomFields[FieldID(field.ID)]; value != "" {
			b.WriteString(field.Label)
			b.WriteString(": ")
			b.WriteString(value)
			b.WriteString("\n")
		}
	}

	if promo != nil {
		b.WriteString("Promo Code: ")
		b.WriteString(promo.Code)
		b.WriteString(" (-")
		b.WriteString(currency)
		b.WriteString(" ")
		b.WriteString(promo.DiscountAmount.String())
		b.WriteString(")\n")
	}

	if form.Remark != "" {
		b.WriteString("Notes: ")
		b.WriteString(form.Remark)
	}

	remark := strings.TrimSpace(b.String())
	if remark == "" {
		return nil
	}
	return &remark
}
