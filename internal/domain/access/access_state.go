package access

import (
	"time"

	"saas-starter/internal/domain/billing"
	"saas-starter/internal/domain/plans"
)

// Effective access for UI/product: free|full|grace|locked
func ComputeEffectiveAccessState(now time.Time, sub *billing.Subscription) AccessState {
	// No paid subscription at all
	if sub == nil || sub.Plan == plans.Free {
		return AccessFree
	}

	switch sub.Status {
	case billing.StatusActive, billing.StatusTrialing:
		return AccessFull

	case billing.StatusPastDue:
		return AccessGrace

	case billing.StatusCanceled:
		// Paid-through access until the period ends
		if sub.CurrentPeriodEnd != nil && now.Before(*sub.CurrentPeriodEnd) {
			return AccessFull
		}
		return AccessLocked

	case billing.StatusIncomplete:
		// Checkout started but never paid
		return AccessFree

	default:
		return AccessLocked
	}
}

// EffectivePlan is the plan whose features the user may use right now.
func EffectivePlan(state AccessState, sub *billing.Subscription) plans.Key {
	if sub == nil {
		return plans.Free
	}
	switch state {
	case AccessFull, AccessGrace:
		return sub.Plan
	default:
		return plans.Free
	}
}
