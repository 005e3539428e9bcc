package stripe

import (
	"strings"

	"github.com/stripe/stripe-go/v75"

	"saas-starter/internal/domain/billing"
)

// SubscriptionStatus maps Stripe's vocabulary onto the local one. Unknown
// values map to incomplete and report false so callers can log them.
func SubscriptionStatus(s stripe.SubscriptionStatus) (billing.SubscriptionStatus, bool) {
	switch strings.TrimSpace(string(s)) {
	case "active":
		return billing.StatusActive, true
	case "canceled":
		return billing.StatusCanceled, true
	case "past_due":
		return billing.StatusPastDue, true
	case "paused":
		return billing.StatusPastDue, true
	case "trialing":
		return billing.StatusTrialing, true
	case "incomplete":
		return billing.StatusIncomplete, true
	case "incomplete_expired":
		return billing.StatusIncompleteExpired, true
	case "unpaid":
		return billing.StatusUnpaid, true
	default:
		return billing.StatusIncomplete, false
	}
}

func InvoiceStatus(s stripe.InvoiceStatus) billing.InvoiceStatus {
	switch strings.TrimSpace(string(s)) {
	case "paid":
		return billing.InvoicePaid
	case "void", "uncollectible":
		return billing.InvoiceFailed
	default:
		return billing.InvoicePending
	}
}
