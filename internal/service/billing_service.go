package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"

	"integen/api/internal/billing"
	"integen/api/internal/config"
)

var (
	ErrUnknownPlan          = errors.New("unknown plan")
	ErrBillingNotConfigured = errors.New("billing provider not configured")
	// ErrProvider wraps downstream billing failures; the underlying
	// message is kept for diagnostics.
	ErrProvider = errors.New("billing provider error")
)

// CheckoutCreator is the slice of the billing SDK the service needs.
type CheckoutCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type BillingService struct {
	sessions CheckoutCreator // nil when no provider key is configured
	baseURL  string
	timeout  time.Duration
	log      zerolog.Logger
}

func NewBillingService(cfg *config.AppConfig, log zerolog.Logger) *BillingService {
	var sessions CheckoutCreator
	if cfg.Stripe.SecretKey != "" {
		sessions = &session.Client{
			B:   stripe.GetBackend(stripe.APIBackend),
			Key: cfg.Stripe.SecretKey,
		}
	}
	return &BillingService{
		sessions: sessions,
		baseURL:  cfg.BaseURL,
		timeout:  20 * time.Second,
		log:      log,
	}
}

// NewBillingServiceWithCreator wires an explicit checkout backend.
// Used by tests and by any future provider swap.
func NewBillingServiceWithCreator(creator CheckoutCreator, baseURL string, log zerolog.Logger) *BillingService {
	return &BillingService{
		sessions: creator,
		baseURL:  baseURL,
		timeout:  20 * time.Second,
		log:      log,
	}
}

type CheckoutSession struct {
	URL string
	ID  string
}

// CreateCheckoutSession opens a hosted subscription checkout for the
// named plan. The plan identifier is resolved server-side; the session
// carries it back in metadata for the webhook reconciler.
func (s *BillingService) CreateCheckoutSession(ctx context.Context, planID string, customerEmail string) (CheckoutSession, error) {
	_, info, ok := billing.Lookup(planID)
	if !ok {
		return CheckoutSession{}, ErrUnknownPlan
	}
	if s.sessions == nil {
		return CheckoutSession{}, ErrBillingNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
		Mode:   stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(info.Currency),
					UnitAmount: stripe.Int64(info.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(info.ProductName()),
					},
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String(info.Interval),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(fmt.Sprintf("%s/success.html?session_id={CHECKOUT_SESSION_ID}", s.baseURL)),
		CancelURL:  stripe.String(fmt.Sprintf("%s/cancel.html", s.baseURL)),
	}
	params.AddMetadata("plan", planID)
	if customerEmail != "" {
		params.CustomerEmail = stripe.String(customerEmail)
	}

	sess, err := s.sessions.New(params)
	if err != nil {
		s.log.Error().Err(err).Str("plan", planID).Msg("checkout session create failed")
		return CheckoutSession{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	return CheckoutSession{URL: sess.URL, ID: sess.ID}, nil
}
