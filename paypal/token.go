package paypal

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"storefront-backend/metrics"
	"storefront-backend/models"
)

type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// TokenSource hands out a bearer token for the PayPal REST API.
type TokenSource interface {
	Token(ctx context.Context) (Token, error)
}

// CredentialStore persists the cached credential. Load returns (nil, nil) when
// nothing is stored yet.
type CredentialStore interface {
	Load(ctx context.Context, key string) (*models.PaypalCredential, error)
	Save(ctx context.Context, cred *models.PaypalCredential) error
}

// Exchanger performs the client-credentials grant.
type Exchanger interface {
	Exchange(ctx context.Context) (accessToken string, expiresIn time.Duration, err error)
}

// TokenCache returns the persisted token until it expires and refreshes it
// through the Exchanger afterwards. Concurrent refreshes are not coordinated;
// the last writer wins and every refreshed token is valid.
type TokenCache struct {
	store     CredentialStore
	exchanger Exchanger
	log       zerolog.Logger
	now       func() time.Time
}

func NewTokenCache(store CredentialStore, exchanger Exchanger, log zerolog.Logger) *TokenCache {
	return &TokenCache{
		store:     store,
		exchanger: exchanger,
		log:       log,
		now:       time.Now,
	}
}

// WithClock replaces the time source.
func (c *TokenCache) WithClock(now func() time.Time) *TokenCache {
	c.now = now
	return c
}

func (c *TokenCache) Token(ctx context.Context) (Token, error) {
	now := c.now()

	cred, err := c.store.Load(ctx, models.PaypalCredentialKey)
	if err != nil {
		return Token{}, fmt.Errorf("load paypal credential: %w", err)
	}
	if cred != nil && cred.AccessToken != "" && cred.ExpiresAtMs > now.UnixMilli() {
		return Token{AccessToken: cred.AccessToken, ExpiresAt: cred.ExpiresAt()}, nil
	}

	accessToken, expiresIn, err := c.exchanger.Exchange(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("paypal token exchange failed")
		return Token{}, fmt.Errorf("%w: %v", ErrUpstreamAuth, err)
	}
	metrics.TokenRefreshes.Inc()

	expiresAt := now.Add(expiresIn)
	fresh := &models.PaypalCredential{
		Key:         models.PaypalCredentialKey,
		AccessToken: accessToken,
		ExpiresAtMs: expiresAt.UnixMilli(),
		UpdatedAt:   now.UTC(),
	}
	if err := c.store.Save(ctx, fresh); err != nil {
		// The token is still usable for this request.
		c.log.Warn().Err(err).Msg("could not persist paypal credential")
	} else {
		c.log.Debug().Time("expires_at", expiresAt).Msg("paypal access token refreshed")
	}
	return Token{AccessToken: accessToken, ExpiresAt: fresh.ExpiresAt()}, nil
}
