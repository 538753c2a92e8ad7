package paypal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-backend/database/dbtest"
	"storefront-backend/models"
)

type fakeExchanger struct {
	mu        sync.Mutex
	calls     int
	token     string
	expiresIn time.Duration
	err       error
}

func (f *fakeExchanger) Exchange(context.Context) (string, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", 0, f.err
	}
	return f.token, f.expiresIn, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTokenCacheRefreshesExpiredCredential(t *testing.T) {
	db := dbtest.Open(t)
	store := NewGormCredentialStore(db)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(context.Background(), &models.PaypalCredential{
		Key:         models.PaypalCredentialKey,
		AccessToken: "stale",
		ExpiresAtMs: now.UnixMilli() - 1,
		UpdatedAt:   now.Add(-time.Hour),
	}))

	ex := &fakeExchanger{token: "fresh", expiresIn: 9 * time.Hour}
	cache := NewTokenCache(store, ex, zerolog.Nop()).WithClock(fixedClock(now))

	tok, err := cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)
	assert.Equal(t, 1, ex.calls)

	stored, err := store.Load(context.Background(), models.PaypalCredentialKey)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "fresh", stored.AccessToken)
	assert.Greater(t, stored.ExpiresAtMs, now.UnixMilli())
	assert.Equal(t, now.Add(9*time.Hour).UnixMilli(), stored.ExpiresAtMs)
}

func TestTokenCacheReturnsValidCredentialWithoutExchange(t *testing.T) {
	db := dbtest.Open(t)
	store := NewGormCredentialStore(db)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(context.Background(), &models.PaypalCredential{
		Key:         models.PaypalCredentialKey,
		AccessToken: "cached",
		ExpiresAtMs: now.Add(time.Minute).UnixMilli(),
		UpdatedAt:   now,
	}))

	ex := &fakeExchanger{token: "unused", expiresIn: time.Hour}
	cache := NewTokenCache(store, ex, zerolog.Nop()).WithClock(fixedClock(now))

	tok, err := cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached", tok.AccessToken)
	assert.Zero(t, ex.calls)
}

func TestTokenCacheTreatsExpiryEqualToNowAsExpired(t *testing.T) {
	db := dbtest.Open(t)
	store := NewGormCredentialStore(db)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(context.Background(), &models.PaypalCredential{
		Key:         models.PaypalCredentialKey,
		AccessToken: "edge",
		ExpiresAtMs: now.UnixMilli(),
		UpdatedAt:   now,
	}))

	ex := &fakeExchanger{token: "fresh", expiresIn: time.Hour}
	cache := NewTokenCache(store, ex, zerolog.Nop()).WithClock(fixedClock(now))

	tok, err := cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)
	assert.Equal(t, 1, ex.calls)
}

func TestTokenCacheFetchesWhenAbsent(t *testing.T) {
	db := dbtest.Open(t)
	store := NewGormCredentialStore(db)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ex := &fakeExchanger{token: "first", expiresIn: time.Hour}
	cache := NewTokenCache(store, ex, zerolog.Nop()).WithClock(fixedClock(now))

	_, err := cache.Token(context.Background())
	require.NoError(t, err)
	_, err = cache.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, ex.calls, "second call must be served from the store")
}

func TestTokenCacheWrapsExchangeFailure(t *testing.T) {
	db := dbtest.Open(t)
	ex := &fakeExchanger{err: errors.New("401 invalid_client")}
	cache := NewTokenCache(NewGormCredentialStore(db), ex, zerolog.Nop())

	_, err := cache.Token(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamAuth)
}
