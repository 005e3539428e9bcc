package plans

import "strings"

// Prices maps purchasable plans to their Stripe price ids.
type Prices struct {
	Pro        string
	Enterprise string
}

// Registry is the immutable plan catalogue built at startup.
type Registry struct {
	plans   map[Key]Plan
	byPrice map[string]Key
}

func NewRegistry(prices Prices) *Registry {
	catalogue := []Plan{
		{
			Key:        Free,
			Name:       "Free",
			PriceCents: 0,
			Interval:   "month",
			Features:   []string{"Full boilerplate access", "Community support", "MIT License"},
		},
		{
			Key:         Pro,
			Name:        "Pro",
			PriceCents:  2900,
			Interval:    "month",
			StripePrice: strings.TrimSpace(prices.Pro),
			Features: []string{
				"Everything in Free",
				"Lifetime updates",
				"Priority support",
				"Premium components",
				"Email templates",
			},
		},
		{
			Key:         Enterprise,
			Name:        "Enterprise",
			PriceCents:  9900,
			Interval:    "month",
			StripePrice: strings.TrimSpace(prices.Enterprise),
			Features: []string{
				"Everything in Pro",
				"Multi-tenant support",
				"Custom integrations",
				"Dedicated support",
				"White-label license",
			},
		},
	}

	r := &Registry{
		plans:   make(map[Key]Plan, len(catalogue)),
		byPrice: make(map[string]Key, len(catalogue)),
	}
	for _, p := range catalogue {
		p.Purchasable = p.StripePrice != ""
		r.plans[p.Key] = p
		if p.StripePrice != "" {
			r.byPrice[p.StripePrice] = p.Key
		}
	}
	return r
}

// For returns the plan for key.
func (r *Registry) For(k Key) (Plan, bool) {
	p, ok := r.plans[k]
	if !ok {
		return Plan{}, false
	}
	p.Features = append([]string(nil), p.Features...)
	return p, true
}

// KeyForPrice resolves a Stripe price id back to a plan key.
func (r *Registry) KeyForPrice(priceID string) (Key, bool) {
	if priceID == "" {
		return "", false
	}
	k, ok := r.byPrice[priceID]
	return k, ok
}

// Purchasable reports whether k can be bought through checkout.
func (r *Registry) Purchasable(k Key) bool {
	p, ok := r.plans[k]
	return ok && p.Purchasable
}

// All lists plans in display order.
func (r *Registry) All() []Plan {
	out := make([]Plan, 0, len(r.plans))
	for _, k := range []Key{Free, Pro, Enterprise} {
		p, _ := r.For(k)
		out = append(out, p)
	}
	return out
}
