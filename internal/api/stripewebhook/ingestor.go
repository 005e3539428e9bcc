package stripewebhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v75"

	"saas-starter/internal/domain/billing"
	"saas-starter/internal/domain/plans"
	"saas-starter/internal/infra/email"
)

// EventVerifier authenticates a raw payload against its signature header.
type EventVerifier interface {
	Verify(payload []byte, signature string) (stripe.Event, error)
}

// Mailer sends templated transactional email.
type Mailer interface {
	Send(ctx context.Context, req email.Request) (string, error)
}

type Config struct {
	AppName string
	AppURL  string
	// EffectTimeout bounds post-commit work such as confirmation emails.
	EffectTimeout time.Duration
}

// Outcome is the result of one delivery. Message is safe to return to Stripe.
type Outcome struct {
	Status    int
	Duplicate bool
	Ignored   bool
	Message   string
}

var errAlreadyClaimed = errors.New("event already claimed")

// Ingestor verifies, deduplicates and applies Stripe webhook events.
type Ingestor struct {
	repo     billing.Repository
	registry *plans.Registry
	verifier EventVerifier
	mailer   Mailer
	cfg      Config
	log      logrus.FieldLogger
	now      func() time.Time

	effects sync.WaitGroup
}

func NewIngestor(repo billing.Repository, registry *plans.Registry, verifier EventVerifier, mailer Mailer, cfg Config, log logrus.FieldLogger) *Ingestor {
	if cfg.EffectTimeout <= 0 {
		cfg.EffectTimeout = 30 * time.Second
	}
	return &Ingestor{
		repo:     repo,
		registry: registry,
		verifier: verifier,
		mailer:   mailer,
		cfg:      cfg,
		log:      log.WithField("component", "stripe_webhook"),
		now:      time.Now,
	}
}

// Handle processes one delivery. The claim on the event id and every state
// change it causes commit together, so a failed delivery leaves no trace and
// Stripe's retry is processed from scratch.
func (in *Ingestor) Handle(ctx context.Context, payload []byte, signature string) Outcome {
	if strings.TrimSpace(signature) == "" {
		return Outcome{Status: http.StatusBadRequest, Message: "Missing stripe-signature header"}
	}

	event, err := in.verifier.Verify(payload, signature)
	if err != nil {
		in.log.WithError(err).Warn("stripe signature verification failed")
		return Outcome{Status: http.StatusBadRequest, Message: "Invalid signature"}
	}

	log := in.log.WithFields(logrus.Fields{"event_id": event.ID, "event_type": string(event.Type)})

	done, err := in.repo.IsEventProcessed(ctx, event.ID)
	if err != nil {
		log.WithError(err).Error("idempotency check failed")
		return Outcome{Status: http.StatusInternalServerError, Message: "Webhook handler failed"}
	}
	if done {
		log.Info("duplicate event skipped")
		return Outcome{Status: http.StatusOK, Duplicate: true}
	}

	var (
		fx      effects
		handled bool
	)
	err = in.repo.Transaction(ctx, func(tx billing.Repository) error {
		claimed, err := tx.ClaimEvent(ctx, &billing.StripeEvent{
			EventID:     event.ID,
			Type:        string(event.Type),
			CreatedAt:   time.Unix(event.Created, 0).UTC(),
			ProcessedAt: in.now().UTC(),
		})
		if err != nil {
			return err
		}
		if !claimed {
			return errAlreadyClaimed
		}
		handled, err = in.dispatch(ctx, tx, &event, &fx, log)
		return err
	})

	switch {
	case errors.Is(err, errAlreadyClaimed):
		log.Info("event claimed by a concurrent delivery")
		return Outcome{Status: http.StatusOK, Duplicate: true}
	case err != nil:
		log.WithError(err).Error("webhook processing failed, rolled back")
		return Outcome{Status: http.StatusInternalServerError, Message: "Webhook handler failed"}
	}

	in.runEffects(ctx, fx)

	if !handled {
		log.Debug("unhandled event type acknowledged")
	}
	return Outcome{Status: http.StatusOK, Ignored: !handled}
}

// Wait blocks until in-flight post-commit effects finish.
func (in *Ingestor) Wait() {
	in.effects.Wait()
}

func (in *Ingestor) dispatch(ctx context.Context, tx billing.Repository, event *stripe.Event, fx *effects, log logrus.FieldLogger) (bool, error) {
	eventAt := time.Unix(event.Created, 0).UTC()

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := decode(event, &session); err != nil {
			return true, err
		}
		return true, in.handleCheckoutCompleted(ctx, tx, &session, eventAt, log)

	case "customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted":
		var sub stripe.Subscription
		if err := decode(event, &sub); err != nil {
			return true, err
		}
		return true, in.reconcileSubscription(ctx, tx, &sub, eventAt, log)

	case "invoice.payment_succeeded", "invoice.payment_failed":
		var inv stripe.Invoice
		if err := decode(event, &inv); err != nil {
			return true, err
		}
		return true, in.recordInvoice(ctx, tx, &inv, event.Type == "invoice.payment_succeeded", fx, log)

	default:
		return false, nil
	}
}

func decode(event *stripe.Event, v interface{}) error {
	if event.Data == nil {
		return fmt.Errorf("event %s has no data", event.ID)
	}
	if err := json.Unmarshal(event.Data.Raw, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.Type, err)
	}
	return nil
}

type effects []func(ctx context.Context)

func (fx *effects) add(f func(ctx context.Context)) {
	*fx = append(*fx, f)
}

// runEffects starts committed side effects in the background. Wait joins them.
func (in *Ingestor) runEffects(ctx context.Context, fx effects) {
	for _, f := range fx {
		in.effects.Add(1)
		go func(f func(ctx context.Context)) {
			defer in.effects.Done()
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), in.cfg.EffectTimeout)
			defer cancel()
			f(ctx)
		}(f)
	}
}
