// Package models holds the wire types exchanged with the storefront backend, the
// external order platform and the checkout API.
package models

import "github.com/shopspring/decimal"

func init() {
	// Upstream and frontend both speak plain JSON numbers for money.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product is a catalog entry as returned by GET /products/{idOrSlug}.
type Product struct {
	ID           string        `json:"id"`
	Slug         string        `json:"slug,omitempty"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	ImageURL     string        `json:"image_url"`
	CategoryID   string        `json:"category_id,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	Variations   []Variation   `json:"variations"`
	CustomFields []CustomField `json:"custom_fields,omitempty"`
	IsActive     bool          `json:"is_active"`
	IsSoldOut    bool          `json:"is_sold_out"`
}

// Variation is one purchasable price tier of a product.
type Variation struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	Description   string           `json:"description,omitempty"`
}

// CustomField is an extra input the customer fills in for a product (player id, etc).
type CustomField struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder,omitempty"`
	Required    bool   `json:"required"`
}

// FindVariation returns the variation with the given id.
func (p *Product) FindVariation(id string) (*Variation, bool) {
	for i := range p.Variations {
		if p.Variations[i].ID == id {
			return &p.Variations[i], true
		}
	}
	return nil, false
}

// FindCustomField returns the custom field with the given id.
func (p *Product) FindCustomField(id string) (*CustomField, bool) {
	for i := range p.CustomFields {
		if p.CustomFields[i].ID == id {
			return &p.CustomFields[i], true
		}
	}
	return nil, false
}

// Discounted reports whether the variation shows a struck-through original price.
func (v Variation) Discounted() bool {
	return v.OriginalPrice != nil && v.OriginalPrice.GreaterThan(v.Price)
}
