package stripewebhooks

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v75"

	"saas-starter/internal/domain/billing"
	stripeinfra "saas-starter/internal/infra/stripe"
)

func (in *Ingestor) recordInvoice(ctx context.Context, tx billing.Repository, inv *stripe.Invoice, succeeded bool, fx *effects, log logrus.FieldLogger) error {
	customerID := ""
	if inv.Customer != nil {
		customerID = inv.Customer.ID
	}
	log = log.WithFields(logrus.Fields{"invoice_id": inv.ID, "customer_id": customerID})

	if inv.ID == "" {
		log.Warn("invoice without id, event dropped")
		return nil
	}

	owner, err := tx.FindSubscriptionByCustomer(ctx, customerID)
	if errors.Is(err, billing.ErrNotFound) {
		log.Info("no local subscription for customer, invoice dropped")
		return nil
	}
	if err != nil {
		return err
	}

	amount := inv.AmountPaid
	if amount <= 0 {
		amount = inv.AmountDue
	}
	if amount < 0 {
		amount = 0
	}

	record := &billing.Invoice{
		UserID:          owner.UserID,
		StripeInvoiceID: inv.ID,
		AmountCents:     amount,
		Currency:        strings.ToLower(string(inv.Currency)),
		Status:          stripeinfra.InvoiceStatus(inv.Status),
	}
	if record.Currency == "" {
		log.Warn("invoice without currency, defaulting to usd")
		record.Currency = "usd"
	}
	if inv.HostedInvoiceURL != "" {
		u := inv.HostedInvoiceURL
		record.HostedInvoiceURL = &u
	}
	if inv.InvoicePDF != "" {
		u := inv.InvoicePDF
		record.PDFURL = &u
	}

	if err := tx.UpsertInvoice(ctx, record); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"status": record.Status, "amount_cents": record.AmountCents}).Info("invoice recorded")

	if succeeded {
		userID, cents, currency := owner.UserID, record.AmountCents, record.Currency
		fx.add(func(ctx context.Context) {
			in.sendPaymentConfirmation(ctx, userID, cents, currency)
		})
	}
	return nil
}
