package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"saas-starter/internal/domain/notifications"
	"saas-starter/internal/domain/plans"
	"saas-starter/internal/domain/users"
)

func (s *Store) FindProfile(ctx context.Context, userID string) (*users.Profile, error) {
	var p users.Profile
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&p).Error; err != nil {
		return nil, notFound(err, "find profile")
	}
	return &p, nil
}

func (s *Store) FindProfileByEmail(ctx context.Context, email string) (*users.Profile, error) {
	var p users.Profile
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.db.WithContext(ctx).Where("lower(email) = ?", email).First(&p).Error; err != nil {
		return nil, notFound(err, "find profile by email")
	}
	return &p, nil
}

func (s *Store) FindProfileByGoogleSub(ctx context.Context, sub string) (*users.Profile, error) {
	var p users.Profile
	if err := s.db.WithContext(ctx).Where("google_sub = ?", sub).First(&p).Error; err != nil {
		return nil, notFound(err, "find profile by google sub")
	}
	return &p, nil
}

func (s *Store) CreateProfile(ctx context.Context, p *users.Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Role == "" {
		p.Role = users.RoleUser
	}
	if p.Plan == "" {
		p.Plan = plans.Free
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("store: create profile: %w", err)
	}
	return nil
}

func (s *Store) LinkGoogleSub(ctx context.Context, userID, sub string) error {
	err := s.db.WithContext(ctx).
		Model(&users.Profile{}).
		Where("id = ? AND google_sub IS NULL", userID).
		Update("google_sub", sub).Error
	if err != nil {
		return fmt.Errorf("store: link google sub: %w", err)
	}
	return nil
}

func (s *Store) SetProfilePlan(ctx context.Context, userID string, plan plans.Key) error {
	err := s.db.WithContext(ctx).
		Model(&users.Profile{}).
		Where("id = ?", userID).
		Update("plan", plan).Error
	if err != nil {
		return fmt.Errorf("store: set profile plan: %w", err)
	}
	return nil
}

// NotificationPreferences falls back to defaults for users who never saved any.
func (s *Store) NotificationPreferences(ctx context.Context, userID string) (*notifications.Preferences, error) {
	var prefs notifications.Preferences
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&prefs).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notifications.DefaultPreferences(userID), nil
		}
		return nil, fmt.Errorf("store: notification preferences: %w", err)
	}
	return &prefs, nil
}
