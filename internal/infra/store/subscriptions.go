package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"saas-starter/internal/domain/billing"
	"saas-starter/internal/domain/plans"
)

var onUserConflict = []clause.Column{{Name: "user_id"}}

func (s *Store) FindSubscription(ctx context.Context, userID string) (*billing.Subscription, error) {
	var sub billing.Subscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return nil, notFound(err, "find subscription")
	}
	return &sub, nil
}

func (s *Store) FindSubscriptionByCustomer(ctx context.Context, customerID string) (*billing.Subscription, error) {
	if customerID == "" {
		return nil, billing.ErrNotFound
	}
	var sub billing.Subscription
	if err := s.db.WithContext(ctx).Where("stripe_customer_id = ?", customerID).First(&sub).Error; err != nil {
		return nil, notFound(err, "find subscription by customer")
	}
	return &sub, nil
}

func (s *Store) SaveCustomerID(ctx context.Context, userID, customerID string) error {
	row := billing.Subscription{
		UserID:           userID,
		Plan:             plans.Free,
		Status:           billing.StatusIncomplete,
		StripeCustomerID: &customerID,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   onUserConflict,
		DoUpdates: clause.AssignmentColumns([]string{"stripe_customer_id", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("store: save customer id: %w", err)
	}
	return nil
}

func (s *Store) UpsertCheckoutIntent(ctx context.Context, userID string, plan plans.Key, customerID string) error {
	row := billing.Subscription{
		UserID:           userID,
		Plan:             plan,
		Status:           billing.StatusIncomplete,
		StripeCustomerID: &customerID,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   onUserConflict,
		DoUpdates: clause.AssignmentColumns([]string{"plan", "status", "stripe_customer_id", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("store: upsert checkout intent: %w", err)
	}
	return nil
}

// ApplySnapshot writes only when the stored row has no newer event.
// A skipped update reports false.
func (s *Store) ApplySnapshot(ctx context.Context, snap billing.Snapshot) (bool, error) {
	row := billing.Subscription{UserID: snap.UserID, Plan: plans.Free}
	snap.Apply(&row)

	cols := []string{"status", "last_event_at", "updated_at"}
	if snap.Plan != "" {
		cols = append(cols, "plan")
	}
	if snap.CustomerID != "" {
		cols = append(cols, "stripe_customer_id")
	}
	if snap.SubscriptionID != "" {
		cols = append(cols, "stripe_subscription_id")
	}
	if snap.SetPeriod {
		cols = append(cols, "current_period_start", "current_period_end")
	}

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   onUserConflict,
		DoUpdates: clause.AssignmentColumns(cols),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "(subscriptions.last_event_at IS NULL OR subscriptions.last_event_at <= excluded.last_event_at)"},
		}},
	}).Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("store: apply subscription snapshot: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
