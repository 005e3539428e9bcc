package notifications

import "time"

type Preferences struct {
	UserID          string    `gorm:"column:user_id;primaryKey;type:uuid" json:"user_id"`
	MarketingEmails bool      `gorm:"column:marketing_emails;not null" json:"marketing_emails"`
	PaymentAlerts   bool      `gorm:"column:payment_alerts;not null" json:"payment_alerts"`
	SecurityAlerts  bool      `gorm:"column:security_alerts;not null" json:"security_alerts"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Preferences) TableName() string { return "notification_preferences" }

// DefaultPreferences applies when a user never saved their choices.
func DefaultPreferences(userID string) *Preferences {
	return &Preferences{
		UserID:          userID,
		MarketingEmails: false,
		PaymentAlerts:   true,
		SecurityAlerts:  true,
	}
}

type EmailStatus string

const (
	EmailPending EmailStatus = "pending"
	EmailSent    EmailStatus = "sent"
	EmailFailed  EmailStatus = "failed"
)

// EmailLog records one transactional email and its delivery outcome.
type EmailLog struct {
	ID                string      `gorm:"column:id;primaryKey;type:uuid"`
	UserID            *string     `gorm:"column:user_id;type:uuid;index"`
	Template          string      `gorm:"column:template;not null"`
	Recipient         string      `gorm:"column:recipient;not null"`
	Subject           string      `gorm:"column:subject;not null"`
	Status            EmailStatus `gorm:"column:status;not null"`
	ProviderMessageID *string     `gorm:"column:provider_message_id"`
	ErrorMessage      *string     `gorm:"column:error_message"`
	Attempts          int         `gorm:"column:attempts;not null"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
