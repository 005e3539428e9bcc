package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"saas-starter/internal/domain/notifications"
)

func (s *Store) CreateEmailLog(ctx context.Context, entry *notifications.EmailLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("store: create email log: %w", err)
	}
	return nil
}

func (s *Store) UpdateEmailLog(ctx context.Context, entry *notifications.EmailLog) error {
	err := s.db.WithContext(ctx).
		Model(&notifications.EmailLog{}).
		Where("id = ?", entry.ID).
		Updates(map[string]interface{}{
			"status":              entry.Status,
			"provider_message_id": entry.ProviderMessageID,
			"error_message":       entry.ErrorMessage,
			"attempts":            entry.Attempts,
		}).Error
	if err != nil {
		return fmt.Errorf("store: update email log: %w", err)
	}
	return nil
}
