package access

import (
	"time"

	"saas-starter/internal/domain/billing"
	"saas-starter/internal/domain/plans"
)

type Policy struct {
	State    AccessState `json:"state"`
	Plan     plans.Key   `json:"effective_plan"`
	Features []string    `json:"features"`
}

func ComputePolicy(now time.Time, sub *billing.Subscription, reg *plans.Registry) Policy {
	state := ComputeEffectiveAccessState(now, sub)
	plan := EffectivePlan(state, sub)

	return Policy{
		State:    state,
		Plan:     plan,
		Features: FeaturesFor(state, plan, reg),
	}
}
