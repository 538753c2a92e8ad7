package entitlements

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"storefront-backend/models"
	"storefront-backend/storage"
)

// Download is a claimed asset ready to be streamed. Callers must close Body.
type Download struct {
	Filename      string
	ContentType   string
	ContentLength int64
	Body          io.ReadCloser
	Remaining     int
}

// Gate releases purchased assets, consuming one entitlement per claim.
type Gate struct {
	db     *gorm.DB
	blobs  storage.BlobStore
	bucket string
	log    zerolog.Logger
	now    func() time.Time
}

func NewGate(db *gorm.DB, blobs storage.BlobStore, bucket string, log zerolog.Logger) *Gate {
	return &Gate{db: db, blobs: blobs, bucket: bucket, log: log, now: time.Now}
}

func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Claim atomically decrements the balance if it is positive and then fetches the
// asset. A claim that cannot deliver the asset gives the download back, unless the
// entitlement changed in the meantime.
func (g *Gate) Claim(ctx context.Context, downloadID, payerID string) (*Download, error) {
	log := g.log.With().Str("download_id", downloadID).Str("payer_id", payerID).Logger()

	if downloadID == "" || payerID == "" {
		return nil, ErrNoEntitlement
	}

	var product models.Product
	if err := g.db.WithContext(ctx).Where(&models.Product{DownloadID: downloadID}).First(&product).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load product: %w", err)
		}
		if _, rerr := g.Remaining(ctx, downloadID, payerID); errors.Is(rerr, ErrNoEntitlement) {
			return nil, ErrNoEntitlement
		}
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, downloadID)
	}

	claim, err := g.decrement(ctx, downloadID, payerID)
	if err != nil {
		if errors.Is(err, ErrNoEntitlement) {
			log.Info().Msg("no available downloads")
		}
		return nil, err
	}

	obj, err := g.blobs.GetObject(ctx, g.bucket, product.Filename)
	if err != nil {
		g.refund(ctx, log, downloadID, payerID, claim)
		return nil, fmt.Errorf("fetch %s: %w", product.Filename, err)
	}

	log.Info().Int("remaining", claim.remaining).Str("filename", product.Filename).Msg("download claimed")
	return &Download{
		Filename:      product.Filename,
		ContentType:   obj.ContentType,
		ContentLength: obj.ContentLength,
		Body:          obj.Body,
		Remaining:     claim.remaining,
	}, nil
}

// Remaining reports the current balance without consuming it.
func (g *Gate) Remaining(ctx context.Context, downloadID, payerID string) (*models.PurchaseEntitlement, error) {
	var ent models.PurchaseEntitlement
	err := g.db.WithContext(ctx).
		Where(&models.PurchaseEntitlement{DownloadID: downloadID, PayerID: payerID}).
		First(&ent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoEntitlement
	}
	if err != nil {
		return nil, err
	}
	return &ent, nil
}

// claim is the row state written by a successful decrement.
type claim struct {
	remaining int
	stamp     time.Time
}

func (g *Gate) decrement(ctx context.Context, downloadID, payerID string) (claim, error) {
	// millisecond precision survives every supported driver, so the stamp can be matched later
	c := claim{stamp: g.now().UTC().Truncate(time.Millisecond)}
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.PurchaseEntitlement{}).
			Where("download_id = ? AND payer_id = ? AND available_downloads > 0", downloadID, payerID).
			Updates(map[string]any{
				"available_downloads": gorm.Expr("available_downloads - 1"),
				"updated_at":          c.stamp,
			})
		if res.Error != nil {
			return fmt.Errorf("decrement entitlement: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNoEntitlement
		}

		var ent models.PurchaseEntitlement
		if err := tx.Select("available_downloads").
			Where("download_id = ? AND payer_id = ?", downloadID, payerID).
			First(&ent).Error; err != nil {
			return err
		}
		c.remaining = ent.AvailableDownloads
		return nil
	})
	return c, err
}

// refund undoes a failed claim only while the row is still exactly as the
// decrement left it. A credit or another claim in between keeps its result.
func (g *Gate) refund(ctx context.Context, log zerolog.Logger, downloadID, payerID string, c claim) {
	// Detached so a cancelled request still returns the download.
	ctx = context.WithoutCancel(ctx)
	res := g.db.WithContext(ctx).Model(&models.PurchaseEntitlement{}).
		Where("download_id = ? AND payer_id = ? AND available_downloads = ? AND updated_at = ?",
			downloadID, payerID, c.remaining, c.stamp).
		Updates(map[string]any{
			"available_downloads": gorm.Expr("available_downloads + 1"),
			"updated_at":          g.now().UTC(),
		})
	if res.Error != nil {
		log.Error().Err(res.Error).Msg("could not refund download after failed delivery")
		return
	}
	if res.RowsAffected == 0 {
		log.Warn().Msg("download not refunded, entitlement changed since the claim")
		return
	}
	log.Warn().Msg("download refunded after failed delivery")
}
