package models

import "time"

// WebhookEvent records a processed PayPal event id so redeliveries are acknowledged
// without crediting twice.
type WebhookEvent struct {
	EventID    string    `json:"event_id" gorm:"primaryKey;size:128"`
	EventType  string    `json:"event_type" gorm:"size:64;index"`
	DownloadID string    `json:"download_id" gorm:"size:128"`
	PayerID    string    `json:"payer_id" gorm:"size:64"`
	CreatedAt  time.Time `json:"created_at"`
}
