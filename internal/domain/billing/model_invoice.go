package billing

import "time"

type InvoiceStatus string

const (
	InvoicePaid    InvoiceStatus = "paid"
	InvoicePending InvoiceStatus = "pending"
	InvoiceFailed  InvoiceStatus = "failed"
)

type Invoice struct {
	ID               string        `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	UserID           string        `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	StripeInvoiceID  string        `gorm:"column:stripe_invoice_id;uniqueIndex;not null" json:"stripe_invoice_id"`
	AmountCents      int64         `gorm:"column:amount_cents;not null" json:"amount_cents"`
	Currency         string        `gorm:"column:currency;not null" json:"currency"`
	Status           InvoiceStatus `gorm:"column:status;not null" json:"status"`
	HostedInvoiceURL *string       `gorm:"column:hosted_invoice_url" json:"hosted_invoice_url,omitempty"`
	PDFURL           *string       `gorm:"column:pdf_url" json:"pdf_url,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Revenue is the paid invoice total for one currency.
type Revenue struct {
	Currency    string `gorm:"column:currency" json:"currency"`
	AmountCents int64  `gorm:"column:amount_cents" json:"amount_cents"`
}
