package checkout

import (
	"strings"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/models"
)

// FieldID identifies a custom field that is known to belong to the session's product.
// Values are only produced by NewFieldID.
type FieldID string

// NewFieldID validates raw against the product's declared custom fields.
func NewFieldID(product *models.Product, raw string) (FieldID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.NewValidationError("custom_fields", "custom field id is required")
	}
	if _, ok := product.FindCustomField(raw); !ok {
		return "", errors.NewValidationError("custom_fields", "unknown custom field: "+raw)
	}
	return FieldID(raw), nil
}

// CustomFieldValues holds the customer's answers keyed by validated field id.
type CustomFieldValues map[FieldID]string

// FormInput is the untyped form as posted by the frontend.
type FormInput struct {
	CustomerName  string            `json:"customer_name"`
	CustomerPhone string            `json:"customer_phone"`
	CustomerEmail string            `json:"customer_email"`
	CustomFields  map[string]string `json:"custom_fields"`
	Remark        string            `json:"remark"`
}

// OrderForm is the typed customer form of one checkout session.
type OrderForm struct {
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	CustomFields  CustomFieldValues
	Remark        string
}

// BindForm converts frontend input into an OrderForm, rejecting custom field ids the
// product does not declare.
func BindForm(product *models.Product, in FormInput) (OrderForm, error) {
	form := OrderForm{
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		CustomerEmail: in.CustomerEmail,
		Remark:        in.Remark,
		CustomFields:  make(CustomFieldValues, len(in.CustomFields)),
	}

	for raw, value := range in.CustomFields {
		id, err := NewFieldID(product, raw)
		if err != nil {
			return OrderForm{}, err
		}
		form.CustomFields[id] = value
	}

	return form, nil
}

// Validate enforces the local submission rules: name and phone present, and every
// required custom field filled in. Required fields are checked in product order.
func (f OrderForm) Validate(product *models.Product) error {
	if strings.TrimSpace(f.CustomerName) == "" {
		return errors.NewValidationError("customer_name", "Please fill in your name and phone number")
	}
	if strings.TrimSpace(f.CustomerPhone) == "" {
		return errors.NewValidationError("customer_phone", "Please fill in your name and phone number")
	}

	if field, missing := f.MissingRequired(product); missing {
		return errors.NewValidationError("custom_fields", "Please fill in "+field.Label)
	}
	return nil
}

// MissingRequired returns the first required custom field without a value.
func (f OrderForm) MissingRequired(product *models.Product) (models.CustomField, bool) {
	for _, field := range product.CustomFields {
		if !field.Required {
			continue
		}
		if strings.TrimSpace(f.CustomFields[FieldID(field.ID)]) == "" {
			return field, true
		}
	}
	return models.CustomField{}, false
}

// Input renders the form back into its wire shape.
func (f OrderForm) Input() FormInput {
	in := FormInput{
		CustomerName:  f.CustomerName,
		CustomerPhone: f.CustomerPhone,
		CustomerEmail: f.CustomerEmail,
		Remark:        f.Remark,
		CustomFields:  make(map[string]string, len(f.CustomFields)),
	}
	for id, v := range f.CustomFields {
		in.CustomFields[string(id)] = v
	}
	return in
}

// IsEmpty reports whether nothing has been entered.
func (f OrderForm) IsEmpty() bool {
	if f.CustomerName != "" || f.CustomerPhone != "" || f.CustomerEmail != "" || f.Remark != "" {
		return false
	}
	return len(f.CustomFields) == 0
}
