package billing

import (
	"context"
	"errors"

	"saas-starter/internal/domain/notifications"
	"saas-starter/internal/domain/plans"
	"saas-starter/internal/domain/users"
)

var ErrNotFound = errors.New("billing: record not found")

// Repository is the persistence capability the billing core runs on.
// Transaction runs fn against a repository bound to a single database
// transaction; returning an error rolls everything back.
type Repository interface {
	FindSubscription(ctx context.Context, userID string) (*Subscription, error)
	FindSubscriptionByCustomer(ctx context.Context, customerID string) (*Subscription, error)
	// SaveCustomerID records the customer id, creating a free/incomplete row when none exists.
	SaveCustomerID(ctx context.Context, userID, customerID string) error
	UpsertCheckoutIntent(ctx context.Context, userID string, plan plans.Key, customerID string) error
	// ApplySnapshot upserts the subscription unless the stored row reflects a newer event.
	ApplySnapshot(ctx context.Context, snap Snapshot) (bool, error)

	UpsertInvoice(ctx context.Context, inv *Invoice) error
	ListInvoices(ctx context.Context, userID string, limit int) ([]Invoice, error)

	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	// ClaimEvent inserts the processed marker and reports whether this call created it.
	ClaimEvent(ctx context.Context, ev *StripeEvent) (bool, error)

	FindProfile(ctx context.Context, userID string) (*users.Profile, error)
	SetProfilePlan(ctx context.Context, userID string, plan plans.Key) error
	NotificationPreferences(ctx context.Context, userID string) (*notifications.Preferences, error)

	Transaction(ctx context.Context, fn func(tx Repository) error) error
}
