package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"saas-starter/internal/domain/billing"
)

func (s *Store) UpsertInvoice(ctx context.Context, inv *billing.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "stripe_invoice_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id", "amount_cents", "currency", "status",
			"hosted_invoice_url", "pdf_url", "updated_at",
		}),
	}).Create(inv).Error
	if err != nil {
		return fmt.Errorf("store: upsert invoice: %w", err)
	}
	return nil
}

func (s *Store) ListInvoices(ctx context.Context, userID string, limit int) ([]billing.Invoice, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	var out []billing.Invoice
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("store: list invoices: %w", err)
	}
	return out, nil
}
