package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type FAQ struct {
	ID        string `json:"id,omitempty"`
	Question  string `json:"question" validate:"required"`
	Answer    string `json:"answer" validate:"required"`
	SortOrder int    `json:"sort_order"`
}

type Review struct {
	ID           string `json:"id,omitempty"`
	ReviewerName string `json:"reviewer_name" validate:"required"`
	Rating       int    `json:"rating" validate:"min=1,max=5"`
	Comment      string `json:"comment" validate:"required"`
	ReviewDate   string `json:"review_date,omitempty"`
	Source       string `json:"source,omitempty"`
}

type PaymentMethod struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name" validate:"required"`
	ImageURL  string `json:"image_url" validate:"required"`
	IsActive  bool   `json:"is_active"`
	SortOrder int    `json:"sort_order"`
}

type DiscountType string

const (
	DiscountTypeFixed      DiscountType = "fixed"
	DiscountTypePercentage DiscountType = "percentage"
)

// PromoCode is the admin-side definition of a redeemable code. Validation of a code
// against a subtotal stays with the backend.
type PromoCode struct {
	ID            string           `json:"id,omitempty"`
	Code          string           `json:"code" validate:"required,max=32"`
	DiscountType  DiscountType     `json:"discount_type" validate:"required,oneof=fixed percentage"`
	DiscountValue decimal.Decimal  `json:"discount_value" validate:"gt=0"`
	MinSubtotal   *decimal.Decimal `json:"min_subtotal,omitempty"`
	MaxUses       *int             `json:"max_uses,omitempty" validate:"omitempty,min=1"`
	ExpiresAt     *time.Time       `json:"expires_at,omitempty"`
	IsActive      bool             `json:"is_active"`
}

// ReorderRequest sets sort_order from list position.
type ReorderRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}
