package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm/clause"

	"saas-starter/internal/domain/billing"
	"saas-starter/internal/domain/notifications"
	"saas-starter/internal/domain/users"
)

// UpdateProfileName sets first, last and full name together.
func (s *Store) UpdateProfileName(ctx context.Context, userID, firstName, lastName string) error {
	res := s.db.WithContext(ctx).
		Model(&users.Profile{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"first_name": firstName,
			"last_name":  lastName,
			"full_name":  strings.TrimSpace(firstName + " " + lastName),
		})
	if res.Error != nil {
		return fmt.Errorf("store: update profile name: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return billing.ErrNotFound
	}
	return nil
}

func (s *Store) SetPasswordHash(ctx context.Context, userID, hash string) error {
	res := s.db.WithContext(ctx).
		Model(&users.Profile{}).
		Where("id = ?", userID).
		Update("password_hash", hash)
	if res.Error != nil {
		return fmt.Errorf("store: set password hash: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return billing.ErrNotFound
	}
	return nil
}

func (s *Store) UpsertNotificationPreferences(ctx context.Context, p *notifications.Preferences) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"marketing_emails", "payment_alerts", "security_alerts", "updated_at",
		}),
	}).Create(p).Error
	if err != nil {
		return fmt.Errorf("store: upsert notification preferences: %w", err)
	}
	return nil
}
