package models

import (
	"time"

	"gorm.io/datatypes"
)

// Payer is the PayPal payer snapshot taken when the purchase was credited.
type Payer struct {
	PayerID      string    `json:"payer_id"`
	EmailAddress string    `json:"email_address"`
	Name         PayerName `json:"name"`
}

type PayerName struct {
	GivenName string `json:"given_name"`
	Surname   string `json:"surname,omitempty"`
}

// PurchaseEntitlement is the remaining download balance of one payer for one product.
type PurchaseEntitlement struct {
	DownloadID         string                    `json:"download_id" gorm:"primaryKey;size:128"`
	PayerID            string                    `json:"payer_id" gorm:"primaryKey;size:64"`
	Payer              datatypes.JSONType[Payer] `json:"payer"`
	AvailableDownloads int                       `json:"available_downloads" gorm:"not null;default:0"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}
