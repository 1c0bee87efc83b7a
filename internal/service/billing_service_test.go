package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

type fakeCheckoutCreator struct {
	lastParams *stripe.CheckoutSessionParams
	session    *stripe.CheckoutSession
	err        error
}

func (f *fakeCheckoutCreator) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.lastParams = params
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func TestBillingService_UnknownPlan(t *testing.T) {
	creator := &fakeCheckoutCreator{}
	svc := NewBillingServiceWithCreator(creator, "http://localhost:3000", zerolog.Nop())

	_, err := svc.CreateCheckoutSession(context.Background(), "enterprise", "")
	assert.ErrorIs(t, err, ErrUnknownPlan)
	assert.Nil(t, creator.lastParams, "provider must not be called for an unknown plan")
}

func TestBillingService_NotConfigured(t *testing.T) {
	svc := NewBillingServiceWithCreator(nil, "http://localhost:3000", zerolog.Nop())

	_, err := svc.CreateCheckoutSession(context.Background(), "pro", "")
	assert.ErrorIs(t, err, ErrBillingNotConfigured)
}

func TestBillingService_CreateCheckoutSession(t *testing.T) {
	creator := &fakeCheckoutCreator{
		session: &stripe.CheckoutSession{ID: "cs_test_123", URL: "https://checkout.example/cs_test_123"},
	}
	svc := NewBillingServiceWithCreator(creator, "https://integen.example", zerolog.Nop())

	result, err := svc.CreateCheckoutSession(context.Background(), "pro", "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_123", result.ID)
	assert.Equal(t, "https://checkout.example/cs_test_123", result.URL)

	params := creator.lastParams
	require.NotNil(t, params)
	assert.Equal(t, "subscription", *params.Mode)
	assert.Equal(t, "pro", params.Metadata["plan"])
	assert.Equal(t, "a@x.com", *params.CustomerEmail)
	assert.Equal(t, "https://integen.example/success.html?session_id={CHECKOUT_SESSION_ID}", *params.SuccessURL)
	assert.Equal(t, "https://integen.example/cancel.html", *params.CancelURL)

	require.Len(t, params.LineItems, 1)
	item := params.LineItems[0]
	assert.Equal(t, int64(2500), *item.PriceData.UnitAmount)
	assert.Equal(t, "usd", *item.PriceData.Currency)
	assert.Equal(t, "month", *item.PriceData.Recurring.Interval)
}

func TestBillingService_ProviderError(t *testing.T) {
	creator := &fakeCheckoutCreator{err: assert.AnError}
	svc := NewBillingServiceWithCreator(creator, "http://localhost:3000", zerolog.Nop())

	_, err := svc.CreateCheckoutSession(context.Background(), "basic", "")
	assert.ErrorIs(t, err, ErrProvider)
}
