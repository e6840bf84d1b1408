package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/models"
)

type fakePromos struct {
	mu       sync.Mutex
	discount map[string]decimal.Decimal
	calls    []decimal.Decimal
	err      error
	release  chan struct{}
}

func (f *fakePromos) ValidatePromo(ctx context.Context, code string, subtotal decimal.Decimal) (*models.PromoDiscount, error) {
	f.mu.Lock()
	f.calls = append(f.calls, subtotal)
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	if f.err != nil {
		return nil, f.err
	}
	amount, ok := f.discount[code]
	if !ok {
		return nil, &errors.UpstreamError{Service: "storefront", StatusCode: 404, Detail: "Promo code not found"}
	}
	return &models.PromoDiscount{Code: code, DiscountAmount: amount}, nil
}

func (f *fakePromos) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeOrders struct {
	mu       sync.Mutex
	payloads []*models.OrderPayload
	result   *models.OrderResult
	err      error
	started  chan struct{}
	release  chan struct{}
}

func (f *fakeOrders) CreateOrder(ctx context.Context, payload *models.OrderPayload) (*models.OrderResult, error) {
	f.mu.Lock()
	f.payloads = append(f.payloads, payload)
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeOrders) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func newTestSession(t *testing.T, promos *fakePromos, orders *fakeOrders, settings models.PricingSettings) *Session {
	t.Helper()
	s, err := NewSession("sess_1", testProduct(), settings, Deps{Promos: promos, Orders: orders})
	require.NoError(t, err)
	return s
}

func validForm() FormInput {
	return FormInput{
		CustomerName:  "Asha",
		CustomerPhone: "9812345678",
		CustomFields:  map[string]string{"player_id": "5123", "server": "Asia"},
	}
}

func paidResult() *models.OrderResult {
	return &models.OrderResult{
		Success:        true,
		OrderID:        "ord_1",
		TakeAppOrderID: "ta_1",
		PaymentURL:     "https://take.app/gsn/orders/ta_1/pay",
	}
}

func TestSession_EndToEndTotal(t *testing.T) {
	promos := &fakePromos{discount: map[string]decimal.Decimal{"SAVE100": d("100")}}
	orders := &fakeOrders{result: paidResult()}
	s := newTestSession(t, promos, orders, models.PricingSettings{
		ServiceCharge: d("50"),
		TaxPercentage: d("13"),
		TaxLabel:      "VAT",
	})

	_, err := s.ApplyPromo(context.Background(), " save100 ")
	require.NoError(t, err)
	require.NoError(t, s.UpdateForm(validForm()))

	quote := s.Quote()
	assert.True(t, quote.AfterDiscount.Equal(d("900")))
	assert.True(t, quote.TaxAmount.Equal(d("117")))
	assert.True(t, quote.Total.Equal(d("1067")))

	outcome, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Nil(t, outcome.Warning)
	assert.Equal(t, StatePayment, s.State())

	require.Len(t, orders.payloads, 1)
	payload := orders.payloads[0]
	assert.True(t, payload.TotalAmount.Equal(d("1067")))
	assert.Nil(t, payload.CustomerEmail)
	require.Len(t, payload.Items, 1)
	assert.Equal(t, "Game Credits", payload.Items[0].Name)
	assert.Equal(t, "1000 Credits", payload.Items[0].Variation)
	assert.Equal(t, 1, payload.Items[0].Quantity)
	require.NotNil(t, payload.Remark)
	assert.Equal(t, "Player ID: 5123\nServer: Asia\nPromo Code: SAVE100 (-Rs 100)", *payload.Remark)

	url, err := s.PaymentRedirect()
	require.NoError(t, err)
	assert.Equal(t, "https://take.app/gsn/orders/ta_1/pay", url)
}

func TestSession_PlainTotal(t *testing.T) {
	s := newTestSession(t, &fakePromos{}, &fakeOrders{}, models.DefaultPricingSettings())
	require.NoError(t, s.SelectVariation("v_500"))

	assert.Equal(t, "500.00", s.Quote().Total.StringFixed(2))
}

func TestSession_ApplyThenRemoveRestoresTotal(t *testing.T) {
	promos := &fakePromos{discount: map[string]decimal.Decimal{"SAVE100": d("100")}}
	s := newTestSession(t, promos, &fakeOrders{}, models.PricingSettings{ServiceCharge: d("50"), TaxPercentage: d("13")})

	before := s.Quote().Total

	_, err := s.ApplyPromo(context.Background(), "SAVE100")
	require.NoError(t, err)
	assert.False(t, s.Quote().Total.Equal(before))

	s.RemovePromo()
	assert.True(t, s.Quote().Total.Equal(before))
	assert.Nil(t, s.View().Promo)
}

func TestSession_ApplyPromoPassesCurrentSubtotal(t *testing.T) {
	promos := &fakePromos{discount: map[string]decimal.Decimal{"SAVE": d("10")}}
	s := newTestSession(t, promos, &fakeOrders{}, models.DefaultPricingSettings())

	require.NoError(t, s.SelectVariation("v_500"))
	_, err := s.ApplyPromo(context.Background(), "SAVE")
	require.NoError(t, err)

	require.Len(t, promos.calls, 1)
	assert.True(t, promos.calls[0].Equal(d("500")))
}

func TestSession_EmptyPromoNeverCallsValidator(t *testing.T) {
	promos := &fakePromos{}
	s := newTestSession(t, promos, &fakeOrders{}, models.DefaultPricingSettings())

	_, err := s.ApplyPromo(context.Background(), "   ")

	assert.ErrorIs(t, err, errors.ErrEmptyPromoCode)
	assert.Equal(t, 0, promos.callCount())
}

func TestSession_RejectedPromoKeepsAppliedOne(t *testing.T) {
	promos := &fakePromos{discount: map[string]decimal.Decimal{"GOOD": d("100")}}
	s := newTestSession(t, promos, &fakeOrders{}, models.DefaultPricingSettings())

	_, err := s.ApplyPromo(context.Background(), "GOOD")
	require.NoError(t, err)

	_, err = s.ApplyPromo(context.Background(), "BAD")

	var rejected *errors.PromoRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "Promo code not found", rejected.Error())

	view := s.View()
	require.NotNil(t, view.Promo)
	assert.Equal(t, "GOOD", view.Promo.Code)
	assert.Empty(t, view.PendingPromo)
}

func TestSession_SecondPromoReplacesFirst(t *testing.T) {
	promos := &fakePromos{discount: map[string]decimal.Decimal{"A": d("100"), "B": d("200")}}
	s := newTestSession(t, promos, &fakeOrders{}, models.DefaultPricingSettings())

	_, err := s.ApplyPromo(context.Background(), "A")
	require.NoError(t, err)
	_, err = s.ApplyPromo(context.Background(), "B")
	require.NoError(t, err)

	assert.True(t, s.Quote().Discount.Equal(d("200")))
}

func TestSession_OversizedDiscountRejected(t *testing.T) {
	promos := &fakePromos{discount: map[string]decimal.Decimal{"HUGE": d("5000")}}
	s := newTestSession(t, promos, &fakeOrders{}, models.DefaultPricingSettings())

	_, err := s.ApplyPromo(context.Background(), "HUGE")

	var rejected *errors.PromoRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Nil(t, s.View().Promo)
}

func TestSession_PromoNotRevalidatedOnVariationChange(t *testing.T) {
	promos := &fakePromos{discount: map[string]decimal.Decimal{"SAVE": d("100")}}
	s := newTestSession(t, promos, &fakeOrders{}, models.DefaultPricingSettings())

	_, err := s.ApplyPromo(context.Background(), "SAVE")
	require.NoError(t, err)
	require.NoError(t, s.SelectVariation("v_500"))

	view := s.View()
	assert.True(t, view.Quote.Total.Equal(d("400")))
	require.NotNil(t, view.PromoSubtotal)
	assert.True(t, view.PromoSubtotal.Equal(d("1000")))
	assert.Equal(t, 1, promos.callCount())
}

func TestSession_SubmitMissingNameOrPhoneNoNetwork(t *testing.T) {
	for _, in := range []FormInput{
		{CustomerPhone: "9812345678", CustomFields: map[string]string{"player_id": "1", "server": "A"}},
		{CustomerName: "Asha", CustomFields: map[string]string{"player_id": "1", "server": "A"}},
	} {
		orders := &fakeOrders{result: paidResult()}
		s := newTestSession(t, &fakePromos{}, orders, models.DefaultPricingSettings())
		require.NoError(t, s.UpdateForm(in))

		_, err := s.Submit(context.Background())

		var verr *errors.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "Please fill in your name and phone number", verr.Message)
		assert.Equal(t, 0, orders.callCount())
		assert.Equal(t, StateForm, s.State())
	}
}

func TestSession_TwoRequiredFieldsBlockSubmission(t *testing.T) {
	orders := &fakeOrders{result: paidResult()}
	s := newTestSession(t, &fakePromos{}, orders, models.DefaultPricingSettings())

	steps := []map[string]string{
		{"nickname": "ash"},
		{"nickname": "ash", "player_id": "5123"},
		{"server": "Asia"},
	}
	for _, fields := range steps {
		require.NoError(t, s.UpdateForm(FormInput{CustomerName: "Asha", CustomerPhone: "98", CustomFields: fields}))
		_, err := s.Submit(context.Background())
		require.Error(t, err)
		assert.Equal(t, 0, orders.callCount())
	}

	require.NoError(t, s.UpdateForm(FormInput{
		CustomerName:  "Asha",
		CustomerPhone: "98",
		CustomFields:  map[string]string{"player_id": "5123", "server": "Asia"},
	}))
	_, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, orders.callCount())
}

func TestSession_NoPaymentURLStillReachesPayment(t *testing.T) {
	orders := &fakeOrders{result: &models.OrderResult{Success: true, OrderID: "ord_1"}}
	s := newTestSession(t, &fakePromos{}, orders, models.DefaultPricingSettings())
	require.NoError(t, s.UpdateForm(validForm()))

	outcome, err := s.Submit(context.Background())

	require.NoError(t, err)
	assert.ErrorIs(t, outcome.Warning, errors.ErrPaymentLinkUnavailable)
	assert.Equal(t, StatePayment, s.State())
	assert.True(t, s.View().SupportRequired)

	_, err = s.PaymentRedirect()
	assert.ErrorIs(t, err, errors.ErrPaymentLinkUnavailable)
}

func TestSession_FailedSubmissionKeepsForm(t *testing.T) {
	promos := &fakePromos{discount: map[string]decimal.Decimal{"SAVE": d("10")}}
	orders := &fakeOrders{err: errors.New("connection reset")}
	s := newTestSession(t, promos, orders, models.DefaultPricingSettings())
	_, err := s.ApplyPromo(context.Background(), "SAVE")
	require.NoError(t, err)
	require.NoError(t, s.UpdateForm(validForm()))

	_, err = s.Submit(context.Background())

	var failed *errors.SubmissionFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, StateForm, s.State())

	view := s.View()
	assert.Equal(t, validForm(), view.Form)
	require.NotNil(t, view.Promo)
	assert.False(t, view.Submitting)

	orders.mu.Lock()
	orders.err = nil
	orders.result = paidResult()
	orders.mu.Unlock()

	_, err = s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, orders.callCount())
}

func TestSession_SubmitWhileInFlight(t *testing.T) {
	orders := &fakeOrders{
		result:  paidResult(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := newTestSession(t, &fakePromos{}, orders, models.DefaultPricingSettings())
	require.NoError(t, s.UpdateForm(validForm()))

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		done <- err
	}()
	<-orders.started

	_, err := s.Submit(context.Background())
	assert.ErrorIs(t, err, errors.ErrSubmissionInProgress)
	assert.True(t, s.View().Submitting)

	close(orders.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, orders.callCount())

	_, err = s.Submit(context.Background())
	assert.ErrorIs(t, err, errors.ErrAlreadySubmitted)
}

func TestSession_CloseDiscardsInFlightResponse(t *testing.T) {
	orders := &fakeOrders{
		result:  paidResult(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := newTestSession(t, &fakePromos{}, orders, models.DefaultPricingSettings())
	require.NoError(t, s.UpdateForm(validForm()))

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		done <- err
	}()
	<-orders.started

	s.Close()
	close(orders.release)

	assert.ErrorIs(t, <-done, errors.ErrSessionClosed)
	assert.Equal(t, StateClosed, s.State())
	assert.Nil(t, s.View().Result)
}

func TestSession_ReopenDuringSubmitBlocksSecondOrder(t *testing.T) {
	orders := &fakeOrders{
		result:  paidResult(),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	s := newTestSession(t, &fakePromos{}, orders, models.DefaultPricingSettings())
	require.NoError(t, s.UpdateForm(validForm()))

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		done <- err
	}()
	<-orders.started

	s.Reopen()
	require.NoError(t, s.UpdateForm(validForm()))

	_, err := s.Submit(context.Background())
	assert.ErrorIs(t, err, errors.ErrSubmissionInProgress)
	assert.True(t, s.View().Submitting)
	assert.Equal(t, 1, orders.callCount())

	close(orders.release)
	assert.ErrorIs(t, <-done, errors.ErrSessionClosed)
	assert.False(t, s.View().Submitting)
	assert.Equal(t, StateForm, s.State())

	outcome, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ord_1", outcome.Result.OrderID)
	assert.Equal(t, 2, orders.callCount())
}

func TestSession_CloseDiscardsInFlightPromo(t *testing.T) {
	promos := &fakePromos{
		discount: map[string]decimal.Decimal{"SAVE": d("100")},
		release:  make(chan struct{}),
	}
	s := newTestSession(t, promos, &fakeOrders{}, models.DefaultPricingSettings())

	done := make(chan error, 1)
	go func() {
		_, err := s.ApplyPromo(context.Background(), "SAVE")
		done <- err
	}()

	require.Eventually(t, func() bool { return promos.callCount() == 1 }, time.Second, time.Millisecond)
	_, err := s.ApplyPromo(context.Background(), "SAVE")
	assert.ErrorIs(t, err, errors.ErrPromoCheckInProgress)

	s.Close()
	s.Reopen()
	close(promos.release)

	assert.ErrorIs(t, <-done, errors.ErrSessionClosed)
	assert.Nil(t, s.View().Promo)
}

func TestSession_CloseReopenResetsForm(t *testing.T) {
	promos := &fakePromos{discount: map[string]decimal.Decimal{"SAVE": d("100")}}
	s := newTestSession(t, promos, &fakeOrders{}, models.DefaultPricingSettings())
	initial := s.View()

	require.NoError(t, s.UpdateForm(validForm()))
	_, err := s.ApplyPromo(context.Background(), "SAVE")
	require.NoError(t, err)

	s.Close()
	_, err = s.ApplyPromo(context.Background(), "SAVE")
	assert.ErrorIs(t, err, errors.ErrSessionClosed)

	s.Reopen()
	reopened := s.View()

	assert.Equal(t, StateForm, reopened.State)
	assert.Equal(t, initial.Form, reopened.Form)
	assert.Nil(t, reopened.Promo)
	assert.Nil(t, reopened.Result)
	assert.True(t, reopened.Quote.Total.Equal(initial.Quote.Total))
}

func TestSession_SelectUnknownVariation(t *testing.T) {
	s := newTestSession(t, &fakePromos{}, &fakeOrders{}, models.DefaultPricingSettings())

	err := s.SelectVariation("v_missing")

	var verr *errors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "variation_id", verr.Field)
}

func TestSession_NoVariationsSubmitBlocked(t *testing.T) {
	product := testProduct()
	product.Variations = nil
	orders := &fakeOrders{result: paidResult()}
	s, err := NewSession("sess_2", product, models.PricingSettings{ServiceCharge: d("50")}, Deps{Promos: &fakePromos{}, Orders: orders})
	require.NoError(t, err)
	require.NoError(t, s.UpdateForm(validForm()))

	assert.True(t, s.Quote().Total.Equal(d("50")))

	_, err = s.Submit(context.Background())
	var verr *errors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "variation_id", verr.Field)
	assert.Equal(t, 0, orders.callCount())
}

func TestSession_EmailForwardedWhenPresent(t *testing.T) {
	orders := &fakeOrders{result: paidResult()}
	s := newTestSession(t, &fakePromos{}, orders, models.DefaultPricingSettings())
	in := validForm()
	in.CustomerEmail = "asha@example.com"
	in.Remark = "thanks"
	require.NoError(t, s.UpdateForm(in))

	_, err := s.Submit(context.Background())
	require.NoError(t, err)

	payload := orders.payloads[0]
	require.NotNil(t, payload.CustomerEmail)
	assert.Equal(t, "asha@example.com", *payload.CustomerEmail)
	assert.Equal(t, "Player ID: 5123\nServer: Asia\nNotes: thanks", *payload.Remark)
}
