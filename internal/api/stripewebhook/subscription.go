package stripewebhooks

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v75"

	"saas-starter/internal/domain/billing"
	"saas-starter/internal/domain/plans"
	stripeinfra "saas-starter/internal/infra/stripe"
)

// reconcileSubscription applies a full subscription snapshot to the owner's row.
func (in *Ingestor) reconcileSubscription(ctx context.Context, tx billing.Repository, sub *stripe.Subscription, eventAt time.Time, log logrus.FieldLogger) error {
	customerID := ""
	if sub.Customer != nil {
		customerID = sub.Customer.ID
	}
	log = log.WithFields(logrus.Fields{"customer_id": customerID, "subscription_id": sub.ID})

	owner, err := tx.FindSubscriptionByCustomer(ctx, customerID)
	if errors.Is(err, billing.ErrNotFound) {
		log.Info("no local subscription for customer, event dropped")
		return nil
	}
	if err != nil {
		return err
	}

	priceID := ""
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		priceID = sub.Items.Data[0].Price.ID
	}
	plan, ok := in.registry.KeyForPrice(priceID)
	if !ok {
		log.WithField("price_id", priceID).Warn("unknown price, falling back to free plan")
		plan = plans.Free
	}

	status, known := stripeinfra.SubscriptionStatus(sub.Status)
	if !known {
		log.WithField("stripe_status", string(sub.Status)).Warn("unknown subscription status, stored as incomplete")
	}

	return in.applySnapshot(ctx, tx, billing.Snapshot{
		UserID:         owner.UserID,
		Plan:           plan,
		Status:         status,
		CustomerID:     customerID,
		SubscriptionID: sub.ID,
		SetPeriod:      true,
		PeriodStart:    unixTime(sub.CurrentPeriodStart),
		PeriodEnd:      unixTime(sub.CurrentPeriodEnd),
		EventAt:        eventAt,
	}, log)
}

// applySnapshot writes the snapshot and mirrors the entitled plan onto the profile.
func (in *Ingestor) applySnapshot(ctx context.Context, tx billing.Repository, snap billing.Snapshot, log logrus.FieldLogger) error {
	applied, err := tx.ApplySnapshot(ctx, snap)
	if err != nil {
		return err
	}
	if !applied {
		log.WithField("user_id", snap.UserID).Info("stale event, newer subscription state already stored")
		return nil
	}

	mirror := plans.Free
	if snap.Status.Entitling() {
		mirror = snap.Plan
	}
	if err := tx.SetProfilePlan(ctx, snap.UserID, mirror); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"user_id": snap.UserID,
		"plan":    snap.Plan,
		"status":  snap.Status,
	}).Info("subscription reconciled")
	return nil
}

func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
