package access

import "saas-starter/internal/domain/plans"

func FeaturesFor(state AccessState, plan plans.Key, reg *plans.Registry) []string {
	if state == AccessLocked {
		plan = plans.Free
	}
	p, ok := reg.For(plan)
	if !ok {
		return []string{}
	}
	return p.Features
}
