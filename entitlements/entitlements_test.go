package entitlements

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"storefront-backend/database/dbtest"
	"storefront-backend/models"
	"storefront-backend/storage"
)

type fakeBlobs struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeBlobs) GetObject(_ context.Context, bucket, key string) (*storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &storage.Object{
		Body:          io.NopCloser(bytes.NewReader([]byte("%PDF-1.4 " + bucket + "/" + key))),
		ContentType:   "application/pdf",
		ContentLength: 42,
	}, nil
}

var ebook = models.Product{
	DownloadID:   "ebook-1",
	Description:  "Brave Birth eBook",
	CurrencyCode: "AUD",
	Value:        "20.00",
	Filename:     "brave-birth.pdf",
}

var payer = models.Payer{
	PayerID:      "QYR5Z8XDVJNXQ",
	EmailAddress: "buyer@example.com",
	Name:         models.PayerName{GivenName: "Jane", Surname: "Doe"},
}

func seedProduct(t *testing.T, db *gorm.DB) {
	t.Helper()
	p := ebook
	require.NoError(t, db.Create(&p).Error)
}

func credit(eventID string) CreditRequest {
	return CreditRequest{
		EventID:    eventID,
		EventType:  "CHECKOUT.ORDER.APPROVED",
		DownloadID: ebook.DownloadID,
		Payer:      payer,
		Amount:     ebook.Price(),
	}
}

func loadEntitlement(t *testing.T, db *gorm.DB) models.PurchaseEntitlement {
	t.Helper()
	var ent models.PurchaseEntitlement
	require.NoError(t, db.Where("download_id = ? AND payer_id = ?", ebook.DownloadID, payer.PayerID).First(&ent).Error)
	return ent
}

func countEntitlements(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.PurchaseEntitlement{}).Count(&n).Error)
	return n
}

func TestCreditGrantsFixedBalance(t *testing.T) {
	db := dbtest.Open(t)
	seedProduct(t, db)
	ledger := NewLedger(db, DefaultGrantSize, zerolog.Nop())

	res, err := ledger.Credit(context.Background(), credit("WH-1"))
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, ebook.Description, res.Product.Description)

	ent := loadEntitlement(t, db)
	assert.Equal(t, 2, ent.AvailableDownloads)
	assert.Equal(t, payer, ent.Payer.Data())
	assert.False(t, ent.CreatedAt.IsZero())
	assert.Equal(t, int64(1), countEntitlements(t, db))
}

func TestCreditReplayIsNoop(t *testing.T) {
	db := dbtest.Open(t)
	seedProduct(t, db)
	ledger := NewLedger(db, DefaultGrantSize, zerolog.Nop())
	gate := NewGate(db, &fakeBlobs{}, "assets", zerolog.Nop())

	_, err := ledger.Credit(context.Background(), credit("WH-1"))
	require.NoError(t, err)

	d, err := gate.Claim(context.Background(), ebook.DownloadID, payer.PayerID)
	require.NoError(t, err)
	d.Body.Close()

	res, err := ledger.Credit(context.Background(), credit("WH-1"))
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, 1, loadEntitlement(t, db).AvailableDownloads, "replay must not reset the balance")
}

func TestCreditNewEventOverwritesBalance(t *testing.T) {
	db := dbtest.Open(t)
	seedProduct(t, db)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewLedger(db, DefaultGrantSize, zerolog.Nop()).WithClock(func() time.Time { return now })
	gate := NewGate(db, &fakeBlobs{}, "assets", zerolog.Nop())

	_, err := ledger.Credit(context.Background(), credit("WH-1"))
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		d, err := gate.Claim(context.Background(), ebook.DownloadID, payer.PayerID)
		require.NoError(t, err)
		d.Body.Close()
	}

	now = now.Add(time.Hour)
	_, err = ledger.Credit(context.Background(), credit("WH-2"))
	require.NoError(t, err)

	ent := loadEntitlement(t, db)
	assert.Equal(t, 2, ent.AvailableDownloads)
	assert.True(t, ent.CreatedAt.Before(ent.UpdatedAt), "created_at is kept on re-credit")
}

func TestCreditAmountMismatch(t *testing.T) {
	cases := map[string]models.Amount{
		"currency":         {CurrencyCode: "USD", Value: "20.00"},
		"value":            {CurrencyCode: "AUD", Value: "19.99"},
		"numerically same": {CurrencyCode: "AUD", Value: "20.0"},
	}
	for name, amount := range cases {
		t.Run(name, func(t *testing.T) {
			db := dbtest.Open(t)
			seedProduct(t, db)
			ledger := NewLedger(db, DefaultGrantSize, zerolog.Nop())

			req := credit("WH-1")
			req.Amount = amount
			_, err := ledger.Credit(context.Background(), req)
			require.ErrorIs(t, err, ErrAmountMismatch)
			assert.Zero(t, countEntitlements(t, db))

			// The event id is released so a corrected redelivery can still credit.
			var events int64
			require.NoError(t, db.Model(&models.WebhookEvent{}).Count(&events).Error)
			assert.Zero(t, events)
		})
	}
}

func TestCreditUnknownProduct(t *testing.T) {
	db := dbtest.Open(t)
	ledger := NewLedger(db, DefaultGrantSize, zerolog.Nop())

	_, err := ledger.Credit(context.Background(), credit("WH-1"))
	require.ErrorIs(t, err, ErrProductNotFound)
	assert.Zero(t, countEntitlements(t, db))
}

func TestCreditWithoutEventIDSkipsDedup(t *testing.T) {
	db := dbtest.Open(t)
	seedProduct(t, db)
	ledger := NewLedger(db, 3, zerolog.Nop())

	for i := 0; i < 2; i++ {
		res, err := ledger.Credit(context.Background(), credit(""))
		require.NoError(t, err)
		assert.False(t, res.Duplicate)
	}
	assert.Equal(t, 3, loadEntitlement(t, db).AvailableDownloads)
}

func TestClaimConsumesExactlyGrant(t *testing.T) {
	db := dbtest.Open(t)
	seedProduct(t, db)
	_, err := NewLedger(db, DefaultGrantSize, zerolog.Nop()).Credit(context.Background(), credit("WH-1"))
	require.NoError(t, err)

	blobs := &fakeBlobs{}
	gate := NewGate(db, blobs, "assets", zerolog.Nop())

	for want := 1; want >= 0; want-- {
		d, err := gate.Claim(context.Background(), ebook.DownloadID, payer.PayerID)
		require.NoError(t, err)
		assert.Equal(t, "brave-birth.pdf", d.Filename)
		assert.Equal(t, "application/pdf", d.ContentType)
		assert.Equal(t, want, d.Remaining)
		body, _ := io.ReadAll(d.Body)
		assert.Contains(t, string(body), "assets/brave-birth.pdf")
		d.Body.Close()
	}

	for i := 0; i < 3; i++ {
		_, err := gate.Claim(context.Background(), ebook.DownloadID, payer.PayerID)
		assert.ErrorIs(t, err, ErrNoEntitlement)
	}
	assert.Equal(t, 2, blobs.calls)
	assert.Equal(t, 0, loadEntitlement(t, db).AvailableDownloads)
}

func TestClaimUnknownEntitlement(t *testing.T) {
	db := dbtest.Open(t)
	seedProduct(t, db)
	gate := NewGate(db, &fakeBlobs{}, "assets", zerolog.Nop())

	_, err := gate.Claim(context.Background(), ebook.DownloadID, "nobody")
	assert.ErrorIs(t, err, ErrNoEntitlement)

	_, err = gate.Claim(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrNoEntitlement)
}

func TestClaimConcurrentLastDownload(t *testing.T) {
	db := dbtest.Open(t)
	seedProduct(t, db)
	require.NoError(t, db.Create(&models.PurchaseEntitlement{
		DownloadID:         ebook.DownloadID,
		PayerID:            payer.PayerID,
		AvailableDownloads: 1,
	}).Error)
	gate := NewGate(db, &fakeBlobs{}, "assets", zerolog.Nop())

	var ok, exhausted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := gate.Claim(context.Background(), ebook.DownloadID, payer.PayerID)
			switch {
			case err == nil:
				d.Body.Close()
				ok.Add(1)
			case errors.Is(err, ErrNoEntitlement):
				exhausted.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(1), exhausted.Load())
	assert.Equal(t, 0, loadEntitlement(t, db).AvailableDownloads)
}

func TestClaimConcurrentNeverOverGrants(t *testing.T) {
	db := dbtest.Open(t)
	seedProduct(t, db)
	_, err := NewLedger(db, DefaultGrantSize, zerolog.Nop()).Credit(context.Background(), credit("WH-1"))
	require.NoError(t, err)
	gate := NewGate(db, &fakeBlobs{}, "assets", zerolog.Nop())

	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d, err := gate.Claim(context.Background(), ebook.DownloadID, payer.PayerID); err == nil {
				d.Body.Close()
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(2), ok.Load())
	assert.Equal(t, 0, loadEntitlement(t, db).AvailableDownloads)
}

func TestClaimRefundsWhenBlobFetchFails(t *testing.T) {
	db := dbtest.Open(t)
	seedProduct(t, db)
	_, err := NewLedger(db, DefaultGrantSize, zerolog.Nop()).Credit(context.Background(), credit("WH-1"))
	require.NoError(t, err)
	gate := NewGate(db, &fakeBlobs{err: storage.ErrObjectNotFound}, "assets", zerolog.Nop())

	_, err = gate.Claim(context.Background(), ebook.DownloadID, payer.PayerID)
	require.ErrorIs(t, err, storage.ErrObjectNotFound)
	assert.Equal(t, 2, loadEntitlement(t, db).AvailableDownloads)
}

func TestClaimMissingProductKeepsBalance(t *testing.T) {
	db := dbtest.Open(t)
	require.NoError(t, db.Create(&models.PurchaseEntitlement{
		DownloadID:         "retired",
		PayerID:            payer.PayerID,
		AvailableDownloads: 1,
	}).Error)
	blobs := &fakeBlobs{}
	gate := NewGate(db, blobs, "assets", zerolog.Nop())

	_, err := gate.Claim(context.Background(), "retired", payer.PayerID)
	require.ErrorIs(t, err, ErrProductNotFound)
	assert.Zero(t, blobs.calls)

	ent, err := gate.Remaining(context.Background(), "retired", payer.PayerID)
	require.NoError(t, err)
	assert.Equal(t, 1, ent.AvailableDownloads)

	_, err = gate.Claim(context.Background(), "retired", "someone-else")
	assert.ErrorIs(t, err, ErrNoEntitlement)
}

// recreditingBlobs simulates a new purchase landing while the asset is fetched.
type recreditingBlobs struct {
	ledger *Ledger
	err    error
}

func (r *recreditingBlobs) GetObject(ctx context.Context, _, _ string) (*storage.Object, error) {
	if _, err := r.ledger.Credit(ctx, credit("WH-2")); err != nil {
		return nil, err
	}
	return nil, r.err
}

func TestClaimFailedDeliveryDoesNotStackOnNewCredit(t *testing.T) {
	db := dbtest.Open(t)
	seedProduct(t, db)
	ledger := NewLedger(db, DefaultGrantSize, zerolog.Nop())
	_, err := ledger.Credit(context.Background(), credit("WH-1"))
	require.NoError(t, err)

	gate := NewGate(db, &recreditingBlobs{ledger: ledger, err: errors.New("connection reset")}, "assets", zerolog.Nop())
	_, err = gate.Claim(context.Background(), ebook.DownloadID, payer.PayerID)
	require.Error(t, err)

	assert.Equal(t, DefaultGrantSize, loadEntitlement(t, db).AvailableDownloads)
}

func TestClaimStampsUpdatedAt(t *testing.T) {
	db := dbtest.Open(t)
	seedProduct(t, db)
	_, err := NewLedger(db, DefaultGrantSize, zerolog.Nop()).Credit(context.Background(), credit("WH-1"))
	require.NoError(t, err)

	claimedAt := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	gate := NewGate(db, &fakeBlobs{}, "assets", zerolog.Nop()).WithClock(func() time.Time { return claimedAt })

	d, err := gate.Claim(context.Background(), ebook.DownloadID, payer.PayerID)
	require.NoError(t, err)
	d.Body.Close()

	ent := loadEntitlement(t, db)
	assert.Equal(t, 1, ent.AvailableDownloads)
	assert.True(t, ent.UpdatedAt.Equal(claimedAt), "updated_at = %s", ent.UpdatedAt)
}

func TestRemainingUnknown(t *testing.T) {
	db := dbtest.Open(t)
	gate := NewGate(db, &fakeBlobs{}, "assets", zerolog.Nop())

	_, err := gate.Remaining(context.Background(), "ebook-1", "nobody")
	assert.ErrorIs(t, err, ErrNoEntitlement)
}
