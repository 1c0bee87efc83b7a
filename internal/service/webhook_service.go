package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"integen/api/internal/billing"
	"integen/api/internal/ids"
	"integen/api/internal/models"
	"integen/api/internal/store"
)

var (
	ErrWebhookNotConfigured = errors.New("webhook not configured")
	ErrBadSignature         = errors.New("webhook signature verification failed")
)

type WebhookService struct {
	store  store.Store
	secret string
	log    zerolog.Logger
}

func NewWebhookService(st store.Store, signingSecret string, log zerolog.Logger) *WebhookService {
	return &WebhookService{
		store:  st,
		secret: signingSecret,
		log:    log,
	}
}

// HandleEvent verifies and applies one billing-provider event. payload
// must be the exact request bytes: the signature is computed over them,
// so a re-serialized body would never verify.
//
// The provider delivers at least once, so anything after a successful
// signature check is acknowledged: duplicate event ids, unknown payers
// and ignored event types all return nil.
func (s *WebhookService) HandleEvent(ctx context.Context, payload []byte, signatureHeader string) error {
	if s.secret == "" {
		return ErrWebhookNotConfigured
	}

	// Accounts pin their own API version; only the signature decides
	// whether the event is trusted.
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, s.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		s.log.Debug().Str("event_type", string(event.Type)).Msg("webhook event ignored")
		return nil
	}

	seen, err := s.store.EventProcessed(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("check event ledger: %w", err)
	}
	if seen {
		s.log.Info().Str("event_id", event.ID).Msg("duplicate webhook event, already applied")
		return nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("decode checkout session: %w", err)
	}

	planID := sess.Metadata["plan"]
	payment := models.PaymentRecord{
		ID:                ids.New(),
		ProviderSessionID: sess.ID,
		CustomerRef:       customerRef(&sess),
		Plan:              planID,
		Status:            models.PaymentStatusCompleted,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.store.AppendPayment(ctx, payment); err != nil {
		return fmt.Errorf("append payment: %w", err)
	}

	s.log.Info().
		Str("event_id", event.ID).
		Str("session_id", sess.ID).
		Str("plan", planID).
		Msg("checkout session completed")

	if err := s.applyPlan(ctx, &sess, planID); err != nil {
		return err
	}

	// The ledger entry is written last. A failure anywhere above leaves
	// the event unrecorded, so the provider's retry gets to reapply it
	// instead of being dropped as a duplicate.
	if _, err := s.store.MarkEventProcessed(ctx, event.ID); err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// applyPlan moves the paying user onto the confirmed plan. A payer with
// no matching account is acknowledged without mutation; the payment
// record above still captures the money trail.
func (s *WebhookService) applyPlan(ctx context.Context, sess *stripe.CheckoutSession, planID string) error {
	if !billing.Known(planID) {
		s.log.Warn().Str("plan", planID).Msg("completed checkout carries unknown plan metadata, user not updated")
		return nil
	}

	// Accounts are keyed by normalized email; the provider may echo the
	// address back in any casing.
	email := strings.ToLower(strings.TrimSpace(payerEmail(sess)))
	if email == "" {
		s.log.Warn().Str("session_id", sess.ID).Msg("completed checkout has no payer email, user not updated")
		return nil
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.log.Warn().Str("session_id", sess.ID).Msg("no user matches payer email, user not updated")
			return nil
		}
		return err
	}

	if err := s.store.UpdateUserPlan(ctx, user.ID, models.Plan(planID)); err != nil {
		return fmt.Errorf("update user plan: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("plan", planID).Msg("user plan updated")
	return nil
}

func customerRef(sess *stripe.CheckoutSession) string {
	if sess.Customer != nil {
		return sess.Customer.ID
	}
	return ""
}

func payerEmail(sess *stripe.CheckoutSession) string {
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		return sess.CustomerDetails.Email
	}
	return sess.CustomerEmail
}
