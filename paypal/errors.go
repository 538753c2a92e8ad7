package paypal

import "errors"

var (
	// ErrUpstreamAuth is returned when the client-credentials exchange fails.
	ErrUpstreamAuth = errors.New("paypal: access token exchange failed")
	// ErrVerificationFailed is returned when a webhook signature is not confirmed.
	ErrVerificationFailed = errors.New("paypal: webhook verification failed")
	ErrMalformedEvent     = errors.New("paypal: malformed webhook event")
)
