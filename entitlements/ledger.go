package entitlements

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront-backend/models"
)

const DefaultGrantSize = 2

type CreditRequest struct {
	EventID    string
	EventType  string
	DownloadID string
	Payer      models.Payer
	Amount     models.Amount
}

type CreditResult struct {
	// Duplicate is set when the event id was already processed; nothing was written.
	Duplicate   bool
	Product     models.Product
	Entitlement models.PurchaseEntitlement
}

// Ledger credits download entitlements for verified purchases.
type Ledger struct {
	db    *gorm.DB
	grant int
	log   zerolog.Logger
	now   func() time.Time
}

func NewLedger(db *gorm.DB, grant int, log zerolog.Logger) *Ledger {
	if grant <= 0 {
		grant = DefaultGrantSize
	}
	return &Ledger{db: db, grant: grant, log: log, now: time.Now}
}

func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Credit sets the (download, payer) balance to the grant size. The event id is
// recorded in the same transaction, so a redelivered event is a no-op and a
// failed credit leaves the event free to be retried.
func (l *Ledger) Credit(ctx context.Context, req CreditRequest) (CreditResult, error) {
	var res CreditResult
	log := l.log.With().
		Str("event_id", req.EventID).
		Str("download_id", req.DownloadID).
		Str("payer_id", req.Payer.PayerID).
		Logger()

	if strings.TrimSpace(req.DownloadID) == "" || strings.TrimSpace(req.Payer.PayerID) == "" {
		return res, fmt.Errorf("credit requires download id and payer id")
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := l.now().UTC()

		if req.EventID != "" {
			event := models.WebhookEvent{
				EventID:    req.EventID,
				EventType:  req.EventType,
				DownloadID: req.DownloadID,
				PayerID:    req.Payer.PayerID,
				CreatedAt:  now,
			}
			ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&event)
			if ins.Error != nil {
				return fmt.Errorf("record webhook event: %w", ins.Error)
			}
			if ins.RowsAffected == 0 {
				res.Duplicate = true
				return nil
			}
		}

		var product models.Product
		if err := tx.Where(&models.Product{DownloadID: req.DownloadID}).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrProductNotFound, req.DownloadID)
			}
			return fmt.Errorf("load product: %w", err)
		}
		res.Product = product

		if req.Amount != product.Price() {
			return fmt.Errorf("%w: got %s %s, want %s %s", ErrAmountMismatch,
				req.Amount.CurrencyCode, req.Amount.Value, product.CurrencyCode, product.Value)
		}

		ent := models.PurchaseEntitlement{
			DownloadID:         req.DownloadID,
			PayerID:            req.Payer.PayerID,
			Payer:              datatypes.NewJSONType(req.Payer),
			AvailableDownloads: l.grant,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "download_id"}, {Name: "payer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"payer", "available_downloads", "updated_at"}),
		}).Create(&ent).Error; err != nil {
			return fmt.Errorf("upsert entitlement: %w", err)
		}
		res.Entitlement = ent
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("entitlement credit failed")
		return CreditResult{}, err
	}

	if res.Duplicate {
		log.Info().Msg("webhook event already processed")
	} else {
		log.Info().Int("available_downloads", res.Entitlement.AvailableDownloads).Msg("entitlement credited")
	}
	return res, nil
}
