package store

import (
	"context"
	"fmt"
	"time"

	"saas-starter/internal/domain/billing"
	"saas-starter/internal/domain/plans"
	"saas-starter/internal/domain/users"
)

func (s *Store) PlanCounts(ctx context.Context) (map[plans.Key]int64, error) {
	var rows []struct {
		Plan  plans.Key
		Count int64
	}
	err := s.db.WithContext(ctx).
		Model(&users.Profile{}).
		Select("plan, COUNT(*) AS count").
		Group("plan").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: plan counts: %w", err)
	}

	out := make(map[plans.Key]int64, len(rows))
	for _, r := range rows {
		out[r.Plan] = r.Count
	}
	return out, nil
}

// RevenueSince sums paid invoices created at or after since, per currency.
func (s *Store) RevenueSince(ctx context.Context, since time.Time) ([]billing.Revenue, error) {
	var out []billing.Revenue
	err := s.db.WithContext(ctx).
		Model(&billing.Invoice{}).
		Select("currency, COALESCE(SUM(amount_cents), 0) AS amount_cents").
		Where("status = ? AND created_at >= ?", billing.InvoicePaid, since).
		Group("currency").
		Order("currency").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("store: revenue: %w", err)
	}
	return out, nil
}

func (s *Store) RecentEvents(ctx context.Context, limit int) ([]billing.StripeEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []billing.StripeEvent
	err := s.db.WithContext(ctx).
		Order("processed_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("store: recent events: %w", err)
	}
	return out, nil
}
