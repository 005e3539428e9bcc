package users

import (
	"time"

	"saas-starter/internal/domain/access"
)

type MeResponse struct {
	User    UserDTO       `json:"user"`
	Billing BillingDTO    `json:"billing"`
	Access  access.Policy `json:"access"`
}

/* ---------- USER ---------- */

type UserDTO struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url"`
	Role      string  `json:"role"`
	HasGoogle bool    `json:"has_google"`
}

/* ---------- BILLING ---------- */

type BillingDTO struct {
	Plan         PlanDTO          `json:"plan"`
	Subscription *SubscriptionDTO `json:"subscription"`
}

type PlanDTO struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Interval   string `json:"interval"`
	PriceCents int64  `json:"price_cents"`
	Price      string `json:"price"`
}

type SubscriptionDTO struct {
	Status             string     `json:"status"`
	CurrentPeriodStart *time.Time `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end"`
	DaysLeft           *int       `json:"days_left"`
	HasBillingCustomer bool       `json:"has_billing_customer"`
}
