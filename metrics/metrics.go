package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	WebhookVerified  = "verified"
	WebhookRejected  = "rejected"
	WebhookIgnored   = "ignored"
	WebhookDuplicate = "duplicate"
	WebhookCredited  = "credited"
	WebhookFailed    = "failed"

	DownloadServed    = "served"
	DownloadExhausted = "exhausted"
	DownloadFailed    = "failed"

	EmailSent   = "sent"
	EmailFailed = "failed"
)

var (
	Webhooks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paypal_webhooks_total",
			Help: "PayPal webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)

	Downloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "download_claims_total",
			Help: "Download claims by outcome",
		},
		[]string{"outcome"},
	)

	TokenRefreshes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "paypal_token_refreshes_total",
			Help: "Number of PayPal access token exchanges",
		},
	)

	Emails = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_total",
			Help: "Transactional emails by outcome",
		},
		[]string{"outcome"},
	)

	VerificationTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "paypal_verification_seconds",
			Help:    "Time taken by the PayPal signature verification call",
			Buckets: prometheus.DefBuckets,
		},
	)
)

var registerOnce sync.Once

// Register adds the collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(Webhooks, Downloads, TokenRefreshes, Emails, VerificationTime)
	})
}
