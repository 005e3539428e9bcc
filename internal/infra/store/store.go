package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"saas-starter/internal/domain/billing"
)

// Store implements the persistence capabilities on top of gorm/Postgres.
type Store struct {
	db *gorm.DB
}

var _ billing.Repository = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Transaction(ctx context.Context, fn func(tx billing.Repository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return billing.ErrNotFound
	}
	return fmt.Errorf("store: %s: %w", what, err)
}
