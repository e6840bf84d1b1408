// Package checkout implements the per-dialog checkout session: variation selection,
// promo application, the customer form, and the FORM -> PAYMENT submission flow.
package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/pricing"
)

// State is the position of a session in the submission flow.
type State string

const (
	StateForm    State = "FORM"
	StatePayment State = "PAYMENT"
	StateClosed  State = "CLOSED"
)

// OrderSubmitter creates the order on the collaborator side.
type OrderSubmitter interface {
	CreateOrder(ctx context.Context, payload *models.OrderPayload) (*models.OrderResult, error)
}

// Deps are the collaborators a session talks to.
type Deps struct {
	Promos        PromoValidator
	Orders        OrderSubmitter
	CurrencyLabel string
	Now           func() time.Time
}

// Session is one checkout dialog. All state is guarded by mu; network calls run
// without holding it. generation changes on Close/Reopen so that responses for a
// discarded dialog are dropped.
type Session struct {
	id       string
	product  *models.Product
	settings models.PricingSettings
	deps     Deps

	mu                  sync.Mutex
	state               State
	generation          uint64
	selectedVariationID string
	form                OrderForm
	promo               *models.PromoDiscount
	promoSubtotal       decimal.Decimal
	pendingPromo        string
	promoInFlight       bool
	submitting          bool
	result              *models.OrderResult
	lastActive          time.Time
}

// SubmitOutcome is the result of a successful submission. Warning is set when the
// order was created but no payment link came back.
type SubmitOutcome struct {
	Result  *models.OrderResult
	Warning error
}

// NewSession opens a session in FORM with the product's first variation selected.
func NewSession(id string, product *models.Product, settings models.PricingSettings, deps Deps) (*Session, error) {
	if product == nil {
		return nil, errors.ErrNotFound
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.CurrencyLabel == "" {
		deps.CurrencyLabel = "Rs"
	}

	s := &Session{
		id:       id,
		product:  product,
		settings: settings,
		deps:     deps,
		state:    StateForm,
	}
	if len(product.Variations) > 0 {
		s.selectedVariationID = product.Variations[0].ID
	}
	s.resetLocked()
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Product() *models.Product { return s.product }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastActive is used by the store to expire idle sessions.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// SelectVariation switches the purchased tier. An applied promo is kept as-is and is
// not re-validated against the new price.
func (s *Session) SelectVariation(variationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireFormLocked(); err != nil {
		return err
	}
	if _, ok := s.product.FindVariation(variationID); !ok {
		return errors.NewValidationError("variation_id", "unknown variation: "+variationID)
	}

	s.selectedVariationID = variationID
	s.touchLocked()
	return nil
}

// Quote recomputes the total from the current inputs.
func (s *Session) Quote() pricing.OrderTotal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quoteLocked()
}

// ApplyPromo validates code against the current subtotal and makes it the single
// active promo. A rejection leaves an already-applied promo in place.
func (s *Session) ApplyPromo(ctx context.Context, code string) (*models.PromoDiscount, error) {
	s.mu.Lock()
	if err := s.requireFormLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	normalized, err := NormalizePromoCode(code)
	if err != nil {
		s.pendingPromo = ""
		s.mu.Unlock()
		return nil, err
	}
	if s.promoInFlight {
		s.mu.Unlock()
		return nil, errors.ErrPromoCheckInProgress
	}

	gen := s.generation
	subtotal := s.subtotalLocked()
	s.pendingPromo = normalized
	s.promoInFlight = true
	s.touchLocked()
	s.mu.Unlock()

	promo, err := s.deps.Promos.ValidatePromo(ctx, normalized, subtotal)
	if err == nil {
		err = checkDiscount(normalized, promo, subtotal)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return nil, errors.ErrSessionClosed
	}
	s.promoInFlight = false
	s.pendingPromo = ""

	if err != nil {
		return nil, asPromoRejection(normalized, err)
	}

	applied := *promo
	s.promo = &applied
	s.promoSubtotal = subtotal
	return &applied, nil
}

// RemovePromo clears the code text and any applied discount.
func (s *Session) RemovePromo() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.promo = nil
	s.promoSubtotal = decimal.Zero
	s.pendingPromo = ""
	s.touchLocked()
}

// UpdateForm replaces the customer form.
func (s *Session) UpdateForm(in FormInput) error {
	form, err := BindForm(s.product, in)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireFormLocked(); err != nil {
		return err
	}
	s.form = form
	s.touchLocked()
	return nil
}

// Submit validates the form locally, creates the order and moves to PAYMENT. A
// failure keeps the session in FORM with everything the customer entered.
func (s *Session) Submit(ctx context.Context) (*SubmitOutcome, error) {
	s.mu.Lock()
	if err := s.requireFormLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.submitting {
		s.mu.Unlock()
		return nil, errors.ErrSubmissionInProgress
	}

	payload, err := s.buildPayloadLocked()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	gen := s.generation
	s.submitting = true
	s.touchLocked()
	s.mu.Unlock()

	result, err := s.deps.Orders.CreateOrder(ctx, payload)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Only the call that set the flag clears it, even across Close and Reopen.
	s.submitting = false
	if gen != s.generation {
		return nil, errors.ErrSessionClosed
	}

	if err != nil {
		var failed *errors.SubmissionFailedError
		if !errors.As(err, &failed) {
			failed = errors.NewSubmissionFailedError(err)
		}
		return nil, failed
	}
	if result == nil {
		return nil, errors.NewSubmissionFailedError(errors.New("empty order response"))
	}

	s.result = result
	s.state = StatePayment

	outcome := &SubmitOutcome{Result: result}
	if !result.HasPaymentLink() {
		outcome.Warning = errors.ErrPaymentLinkUnavailable
	}
	return outcome, nil
}

// PaymentRedirect returns where the customer completes payment.
func (s *Session) PaymentRedirect() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePayment {
		return "", errors.NewValidationError("state", "order has not been placed yet")
	}
	if !s.result.HasPaymentLink() {
		return "", errors.ErrPaymentLinkUnavailable
	}
	return s.result.PaymentURL, nil
}

// Close discards promo, form and order result. In-flight responses are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateClosed
	s.generation++
	s.resetLocked()
}

// Reopen starts a fresh FORM on the same product.
func (s *Session) Reopen() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateForm
	s.generation++
	s.resetLocked()
}

// View is a point-in-time snapshot of the session for the API.
type View struct {
	ID                  string                `json:"id"`
	ProductID           string                `json:"product_id"`
	State               State                 `json:"state"`
	SelectedVariationID string                `json:"selected_variation_id,omitempty"`
	Form                FormInput             `json:"form"`
	Promo               *models.PromoDiscount `json:"promo,omitempty"`
	PromoSubtotal       *decimal.Decimal      `json:"promo_subtotal,omitempty"`
	PendingPromo        string                `json:"pending_promo,omitempty"`
	Quote               pricing.OrderTotal    `json:"quote"`
	LineItems           []pricing.LineItem    `json:"line_items"`
	Submitting          bool                  `json:"submitting"`
	Result              *models.OrderResult   `json:"result,omitempty"`
	SupportRequired     bool                  `json:"support_required"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	quote := s.quoteLocked()
	v := View{
		ID:                  s.id,
		ProductID:           s.product.ID,
		State:               s.state,
		SelectedVariationID: s.selectedVariationID,
		Form:                s.form.Input(),
		PendingPromo:        s.pendingPromo,
		Quote:               quote,
		LineItems:           quote.LineItems(),
		Submitting:          s.submitting,
		Result:              s.result,
		SupportRequired:     s.state == StatePayment && !s.result.HasPaymentLink(),
	}
	if s.promo != nil {
		promo := *s.promo
		promoSubtotal := s.promoSubtotal
		v.Promo = &promo
		v.PromoSubtotal = &promoSubtotal
	}
	return v
}

func (s *Session) buildPayloadLocked() (*models.OrderPayload, error) {
	if err := s.form.Validate(s.product); err != nil {
		return nil, err
	}

	variation, ok := s.product.FindVariation(s.selectedVariationID)
	if !ok {
		return nil, errors.NewValidationError("variation_id", errors.ErrNoVariationSelected.Error())
	}

	payload := &models.OrderPayload{
		CustomerName:  s.form.CustomerName,
		CustomerPhone: s.form.CustomerPhone,
		Items: []models.OrderItem{{
			Name:      s.product.Name,
			Price:     variation.Price,
			Quantity:  1,
			Variation: variation.Name,
		}},
		TotalAmount: s.quoteLocked().Total,
		Remark:      BuildRemark(s.product, s.form, s.promo, s.deps.CurrencyLabel),
	}
	if s.form.CustomerEmail != "" {
		email := s.form.CustomerEmail
		payload.CustomerEmail = &email
	}
	return payload, nil
}

func (s *Session) quoteLocked() pricing.OrderTotal {
	discount := decimal.Zero
	if s.promo != nil {
		discount = s.promo.DiscountAmount
	}
	return pricing.CalculateOrderTotal(s.subtotalLocked(), discount, s.settings)
}

func (s *Session) subtotalLocked() decimal.Decimal {
	if v, ok := s.product.FindVariation(s.selectedVariationID); ok {
		return v.Price
	}
	return decimal.Zero
}

func (s *Session) requireFormLocked() error {
	switch s.state {
	case StateClosed:
		return errors.ErrSessionClosed
	case StatePayment:
		return errors.ErrAlreadySubmitted
	}
	return nil
}

// resetLocked discards everything scoped to one dialog. The selected variation is
// page state and survives. An order request already sent keeps submitting set until
// it returns.
func (s *Session) resetLocked() {
	s.form = OrderForm{CustomFields: CustomFieldValues{}}
	s.promo = nil
	s.promoSubtotal = decimal.Zero
	s.pendingPromo = ""
	s.promoInFlight = false
	s.result = nil
	s.touchLocked()
}

func (s *Session) touchLocked() {
	s.lastActive = s.deps.Now()
}
