package model

import "time"

// PaymentSession mirrors the host framework's view of one payment attempt.
type PaymentSession struct {
	OrderID  string `gorm:"primaryKey;size:64;not null"` // paypal order id
	Status   string `gorm:"size:32;index;not null"`      // pending, authorized, captured, canceled, error
	Intent   string `gorm:"size:16;not null"`            // AUTHORIZE, CAPTURE
	Amount   string `gorm:"size:32;not null"`            // two-decimal string, source of truth is paypal
	Currency string `gorm:"size:8;not null"`
	PayerID  string `gorm:"size:32;index"`

	AuthorizationID string `gorm:"size:32;index"`
	CaptureID       string `gorm:"size:32;index"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CaptureRecord tracks captures so refunds can be issued against them.
type CaptureRecord struct {
	CaptureID string `gorm:"primaryKey;size:32;not null"`
	OrderID   string `gorm:"size:64;index;not null"`
	Status    string `gorm:"size:32;not null"` // COMPLETED, DECLINED, PENDING
	Amount    string `gorm:"size:32;not null"`
	Currency  string `gorm:"size:8;not null"`
	Final     bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

type RefundRecord struct {
	RefundID  string `gorm:"primaryKey;size:32;not null"`
	CaptureID string `gorm:"size:32;index;not null"`
	Status    string `gorm:"size:32;not null"`
	Amount    string `gorm:"size:32;not null"`
	Currency  string `gorm:"size:8;not null"`

	CreatedAt time.Time
}

// WebhookEvent is the processed-event log, used to deduplicate deliveries.
type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:128;uniqueIndex;not null"`
	EventType   string `gorm:"size:64;index"`
	Action      string `gorm:"size:32"` // host action the event mapped to
	ResourceID  string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}
