package models

import "time"

// Product is a downloadable item sold through PayPal checkout. The download id is
// sent to PayPal as the purchase unit's custom_id.
type Product struct {
	DownloadID   string    `json:"download_id" gorm:"primaryKey;size:128"`
	Description  string    `json:"description"`
	CurrencyCode string    `json:"currency_code" gorm:"size:3;not null"`
	Value        string    `json:"value" gorm:"size:32;not null"` // serialized decimal, compared verbatim
	Filename     string    `json:"filename" gorm:"not null"`      // storage key
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Amount is a PayPal amount object. Value is kept as the provider serialized it.
type Amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

func (p Product) Price() Amount {
	return Amount{CurrencyCode: p.CurrencyCode, Value: p.Value}
}
