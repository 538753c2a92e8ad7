package models

import "time"

const PaypalCredentialKey = "paypal"

// PaypalCredential is the cached OAuth access token for the PayPal REST API.
// There is a single row, keyed by PaypalCredentialKey.
type PaypalCredential struct {
	Key         string    `gorm:"primaryKey;size:32"`
	AccessToken string    `gorm:"type:text;not null"`
	ExpiresAtMs int64     `gorm:"not null"` // epoch milliseconds
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false"`
}

func (p PaypalCredential) ExpiresAt() time.Time {
	return time.UnixMilli(p.ExpiresAtMs)
}
