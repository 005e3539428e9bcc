package billing

import (
	"time"

	"saas-starter/internal/domain/plans"
)

type SubscriptionStatus string

const (
	StatusActive            SubscriptionStatus = "active"
	StatusCanceled          SubscriptionStatus = "canceled"
	StatusPastDue           SubscriptionStatus = "past_due"
	StatusTrialing          SubscriptionStatus = "trialing"
	StatusIncomplete        SubscriptionStatus = "incomplete"
	StatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	StatusUnpaid            SubscriptionStatus = "unpaid"
)

// Entitling reports whether a subscription in this status grants its plan.
func (s SubscriptionStatus) Entitling() bool {
	switch s {
	case StatusActive, StatusTrialing, StatusPastDue:
		return true
	default:
		return false
	}
}

type Subscription struct {
	UserID               string             `gorm:"column:user_id;primaryKey;type:uuid" json:"user_id"`
	Plan                 plans.Key          `gorm:"column:plan;not null" json:"plan"`
	Status               SubscriptionStatus `gorm:"column:status;not null" json:"status"`
	StripeCustomerID     *string            `gorm:"column:stripe_customer_id;uniqueIndex" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string            `gorm:"column:stripe_subscription_id" json:"stripe_subscription_id,omitempty"`
	CurrentPeriodStart   *time.Time         `gorm:"column:current_period_start" json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time         `gorm:"column:current_period_end" json:"current_period_end,omitempty"`
	LastEventAt          *time.Time         `gorm:"column:last_event_at" json:"-"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

func (s *Subscription) CustomerID() string {
	if s == nil || s.StripeCustomerID == nil {
		return ""
	}
	return *s.StripeCustomerID
}

// Snapshot is a provider-side view of a subscription applied to the local row.
// Empty Plan and SubscriptionID leave the stored values untouched; period
// bounds are only written when SetPeriod is true.
type Snapshot struct {
	UserID         string
	Plan           plans.Key
	Status         SubscriptionStatus
	CustomerID     string
	SubscriptionID string
	SetPeriod      bool
	PeriodStart    *time.Time
	PeriodEnd      *time.Time
	EventAt        time.Time
}

// Apply merges the snapshot into s. It returns false and leaves s untouched
// when s already reflects a newer event.
func (snap Snapshot) Apply(s *Subscription) bool {
	if s.LastEventAt != nil && s.LastEventAt.After(snap.EventAt) {
		return false
	}
	if snap.Plan != "" {
		s.Plan = snap.Plan
	}
	s.Status = snap.Status
	if snap.CustomerID != "" {
		id := snap.CustomerID
		s.StripeCustomerID = &id
	}
	if snap.SubscriptionID != "" {
		id := snap.SubscriptionID
		s.StripeSubscriptionID = &id
	}
	if snap.SetPeriod {
		s.CurrentPeriodStart = snap.PeriodStart
		s.CurrentPeriodEnd = snap.PeriodEnd
	}
	at := snap.EventAt
	s.LastEventAt = &at
	return true
}
