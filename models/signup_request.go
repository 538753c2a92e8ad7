package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SignupPending  = "pending"
	SignupApproved = "approved"
	SignupDeclined = "declined"
)

type SignupRequest struct {
	Id            string         `json:"id" gorm:"primaryKey"`
	FirstName     string         `json:"first_name" gorm:"not null"`
	LastName      string         `json:"last_name" gorm:"not null"`
	EmailAddress  string         `json:"email_address" gorm:"not null;index"`
	Questionnaire datatypes.JSON `json:"questionnaire"`
	Status        string         `json:"status" gorm:"size:16;not null;index"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (r *SignupRequest) BeforeCreate(tx *gorm.DB) (err error) {
	// UUID version 4
	r.Id = uuid.NewString()
	if r.Status == "" {
		r.Status = SignupPending
	}
	return
}
