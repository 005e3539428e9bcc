package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"saas-starter/internal/domain/billing"
)

func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&billing.StripeEvent{}).
		Where("event_id = ?", eventID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("store: check event: %w", err)
	}
	return n > 0, nil
}

// ClaimEvent relies on the primary key; a concurrent claim blocks until the
// other transaction finishes and then inserts nothing.
func (s *Store) ClaimEvent(ctx context.Context, ev *billing.StripeEvent) (bool, error) {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(ev)
	if res.Error != nil {
		return false, fmt.Errorf("store: claim event: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
