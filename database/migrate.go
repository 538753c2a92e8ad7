package database

import (
	"fmt"

	"gorm.io/gorm"

	"storefront-backend/models"
)

// Migrate applies (idempotent) schema migrations:
// - AutoMigrate (tables/columns)
// - Indexes used by the download gate and the admin listings
// - CHECK constraint keeping available_downloads non-negative (postgres)
func Migrate(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&models.Product{},
			&models.PurchaseEntitlement{},
			&models.PaypalCredential{},
			&models.WebhookEvent{},
			&models.User{},
			&models.SignupRequest{},
			&models.IdempotencyKey{},
		); err != nil {
			return fmt.Errorf("automigrate failed: %w", err)
		}

		indexes := []string{
			`CREATE INDEX IF NOT EXISTS idx_purchase_entitlements_payer ON purchase_entitlements (payer_id)`,
			`CREATE INDEX IF NOT EXISTS idx_webhook_events_download_payer ON webhook_events (download_id, payer_id)`,
		}
		if tx.Dialector.Name() != "mysql" {
			for _, stmt := range indexes {
				if err := tx.Exec(stmt).Error; err != nil {
					return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
				}
			}
		}

		if tx.Dialector.Name() == "postgres" {
			check := `
DO $$
BEGIN
	IF NOT EXISTS (
		SELECT 1 FROM pg_constraint
		WHERE conrelid = 'purchase_entitlements'::regclass
		  AND conname  = 'chk_purchase_entitlements_available_nonneg'
	) THEN
		ALTER TABLE purchase_entitlements
		ADD CONSTRAINT chk_purchase_entitlements_available_nonneg
		CHECK (available_downloads >= 0);
	END IF;
END $$;`
			if err := tx.Exec(check).Error; err != nil {
				return fmt.Errorf("check constraint migration failed: %w", err)
			}
		}
		return nil
	})
}
