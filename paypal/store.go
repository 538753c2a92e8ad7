package paypal

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront-backend/models"
)

// GormCredentialStore keeps the PayPal credential in the paypal_credentials table.
type GormCredentialStore struct {
	db *gorm.DB
}

func NewGormCredentialStore(db *gorm.DB) *GormCredentialStore {
	return &GormCredentialStore{db: db}
}

func (s *GormCredentialStore) Load(ctx context.Context, key string) (*models.PaypalCredential, error) {
	var cred models.PaypalCredential
	err := s.db.WithContext(ctx).Where(&models.PaypalCredential{Key: key}).First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// Save upserts the credential, touching only the token columns on conflict.
func (s *GormCredentialStore) Save(ctx context.Context, cred *models.PaypalCredential) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_token", "expires_at_ms", "updated_at"}),
	}).Create(cred).Error
}
