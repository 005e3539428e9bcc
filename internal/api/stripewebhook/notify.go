package stripewebhooks

import (
	"context"

	"github.com/sirupsen/logrus"

	"saas-starter/internal/domain/billing"
	"saas-starter/internal/domain/plans"
	"saas-starter/internal/infra/email"
)

// sendPaymentConfirmation runs after commit. Failures are logged only.
func (in *Ingestor) sendPaymentConfirmation(ctx context.Context, userID string, amountCents int64, currency string) {
	log := in.log.WithField("user_id", userID)

	profile, err := in.repo.FindProfile(ctx, userID)
	if err != nil {
		log.WithError(err).Warn("payment confirmation skipped, profile unavailable")
		return
	}
	if profile.Email == "" {
		log.Warn("payment confirmation skipped, profile has no email")
		return
	}

	prefs, err := in.repo.NotificationPreferences(ctx, userID)
	if err != nil {
		log.WithError(err).Warn("notification preferences unavailable, sending anyway")
	} else if !prefs.PaymentAlerts {
		log.Info("payment confirmation skipped, user opted out of payment alerts")
		return
	}

	plan := plans.Free
	if sub, err := in.repo.FindSubscription(ctx, userID); err == nil {
		plan = sub.Plan
	}

	messageID, err := in.mailer.Send(ctx, email.Request{
		UserID:   userID,
		To:       profile.Email,
		Template: email.TemplatePaymentConfirmation,
		Data: email.PaymentConfirmation{
			AppName:    in.cfg.AppName,
			PlanName:   billing.PlanDisplayName(plan),
			Amount:     billing.FormatAmount(amountCents, currency),
			BillingURL: in.cfg.AppURL + "/dashboard/billing",
		},
	})
	if err != nil {
		log.WithError(err).Error("payment confirmation email failed")
		return
	}
	log.WithFields(logrus.Fields{"message_id": messageID}).Info("payment confirmation sent")
}
