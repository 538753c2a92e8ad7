package paypal

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// OAuthExchanger obtains tokens from PayPal's /v1/oauth2/token endpoint.
type OAuthExchanger struct {
	cfg     clientcredentials.Config
	client  *http.Client
	timeout time.Duration
}

func NewOAuthExchanger(apiBase, clientID, clientSecret string, timeout time.Duration) *OAuthExchanger {
	return &OAuthExchanger{
		cfg: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     strings.TrimRight(apiBase, "/") + "/v1/oauth2/token",
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

func (e *OAuthExchanger) Exchange(ctx context.Context) (string, time.Duration, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.client)

	tok, err := e.cfg.Token(ctx)
	if err != nil {
		return "", 0, err
	}
	if tok.AccessToken == "" {
		return "", 0, errors.New("empty access token in response")
	}
	if tok.Expiry.IsZero() {
		return "", 0, errors.New("token response has no expires_in")
	}
	return tok.AccessToken, time.Until(tok.Expiry), nil
}
