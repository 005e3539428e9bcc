package stripewebhooks

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v75"

	"saas-starter/internal/domain/billing"
	"saas-starter/internal/domain/plans"
)

func (in *Ingestor) handleCheckoutCompleted(ctx context.Context, tx billing.Repository, session *stripe.CheckoutSession, eventAt time.Time, log logrus.FieldLogger) error {
	userID := session.Metadata["userId"]
	if userID == "" {
		userID = session.ClientReferenceID
	}
	if userID == "" {
		log.WithField("session_id", session.ID).Warn("checkout session without user reference, event dropped")
		return nil
	}
	log = log.WithFields(logrus.Fields{"user_id": userID, "session_id": session.ID})

	row, err := tx.FindSubscription(ctx, userID)
	if errors.Is(err, billing.ErrNotFound) {
		log.Info("no local subscription for checkout user, event dropped")
		return nil
	}
	if err != nil {
		return err
	}

	customerID := row.CustomerID()
	if session.Customer != nil && session.Customer.ID != "" {
		customerID = session.Customer.ID
	}
	if customerID == "" {
		log.Warn("checkout session without customer, event dropped")
		return nil
	}

	status := row.Status
	switch session.PaymentStatus {
	case stripe.CheckoutSessionPaymentStatusPaid, stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		status = billing.StatusActive
	}

	plan := row.Plan
	if k, ok := plans.Lookup(session.Metadata["plan"]); ok {
		plan = k
	}

	subscriptionID := ""
	if session.Subscription != nil {
		subscriptionID = session.Subscription.ID
	}

	return in.applySnapshot(ctx, tx, billing.Snapshot{
		UserID:         userID,
		Plan:           plan,
		Status:         status,
		CustomerID:     customerID,
		SubscriptionID: subscriptionID,
		EventAt:        eventAt,
	}, log)
}
