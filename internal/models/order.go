package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem is a single line of an order payload. Checkout always sends quantity 1.
type OrderItem struct {
	Name      string          `json:"name" validate:"required"`
	Price     decimal.Decimal `json:"price" validate:"gte=0"`
	Quantity  int             `json:"quantity" validate:"min=1"`
	Variation string          `json:"variation,omitempty"`
}

// OrderPayload is the immutable snapshot submitted to POST /orders/create.
type OrderPayload struct {
	CustomerName  string          `json:"customer_name" validate:"required"`
	CustomerPhone string          `json:"customer_phone" validate:"required"`
	CustomerEmail *string         `json:"customer_email"`
	Items         []OrderItem     `json:"items" validate:"required,min=1,dive"`
	TotalAmount   decimal.Decimal `json:"total_amount" validate:"gte=0"`
	Remark        *string         `json:"remark"`
}

// OrderResult is returned by order creation.
type OrderResult struct {
	Success            bool   `json:"success"`
	OrderID            string `json:"order_id"`
	TakeAppOrderID     string `json:"takeapp_order_id,omitempty"`
	TakeAppOrderNumber string `json:"takeapp_order_number,omitempty"`
	PaymentURL         string `json:"payment_url,omitempty"`
	Message            string `json:"message,omitempty"`
}

// HasPaymentLink reports whether the customer can be redirected to pay.
func (r *OrderResult) HasPaymentLink() bool {
	return r != nil && r.PaymentURL != ""
}

// OrderStatus is the lifecycle state of a locally recorded order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// LocalOrder is the ledger row written for every order relayed to the platform.
type LocalOrder struct {
	ID                 string          `json:"id"`
	TakeAppOrderID     string          `json:"takeapp_order_id,omitempty"`
	TakeAppOrderNumber string          `json:"takeapp_order_number,omitempty"`
	CustomerName       string          `json:"customer_name"`
	CustomerPhone      string          `json:"customer_phone"`
	CustomerEmail      string          `json:"customer_email,omitempty"`
	Items              []OrderItem     `json:"items"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	Remark             string          `json:"remark,omitempty"`
	ItemsText          string          `json:"items_text"`
	Status             OrderStatus     `json:"status"`
	PaymentURL         string          `json:"payment_url,omitempty"`
	PaymentScreenshot  string          `json:"payment_screenshot,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// CanTransitionTo guards the pending -> paid|cancelled lifecycle.
func (o *LocalOrder) CanTransitionTo(next OrderStatus) bool {
	if o.Status != OrderStatusPending {
		return false
	}
	return next == OrderStatusPaid || next == OrderStatusCancelled
}

// PaymentScreenshotRequest attaches proof of payment to a ledger order.
type PaymentScreenshotRequest struct {
	ScreenshotURL string `json:"screenshot_url" validate:"required,max=2048"`
}
