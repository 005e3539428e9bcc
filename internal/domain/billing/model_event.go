package billing

import "time"

// StripeEvent marks a provider event as processed. Its presence is the only
// idempotency check.
type StripeEvent struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	Type        string    `gorm:"column:type;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime:false"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}
