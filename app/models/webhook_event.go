package models

import "time"

// WebhookEvent stores raw provider webhook payloads. The row is the
// idempotency ledger: it is inserted once per delivery id, flipped to
// processed exactly once and never deleted.
type WebhookEvent struct {
	ID              int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	EventName       string    `gorm:"type:varchar(100);not null;index" json:"event_name"`
	Processed       bool      `gorm:"not null;default:false;index" json:"processed"`
	Body            string    `gorm:"type:longtext;not null" json:"body"`
	ProcessingError *string   `gorm:"type:text;default:null" json:"processing_error,omitempty"`
}

// ProcessingErrorText returns the stored processing error or an empty string.
func (e *WebhookEvent) ProcessingErrorText() string {
	if e.ProcessingError == nil {
		return ""
	}
	return *e.ProcessingError
}
