package controllers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"storefront-backend/entitlements"
	"storefront-backend/mailer"
	"storefront-backend/metrics"
	"storefront-backend/paypal"
)

const (
	eventReceived        = "EVENT_RECEIVED"
	orderCompleteSubject = "Your order is now complete"
)

// Creditor grants entitlements for a verified purchase.
type Creditor interface {
	Credit(ctx context.Context, req entitlements.CreditRequest) (entitlements.CreditResult, error)
}

// OrderNotifier sends the purchase email. It must not block.
type OrderNotifier interface {
	OrderComplete(to, subject string, data mailer.OrderCompleteData)
}

type WebhookOptions struct {
	// PublicURL is the externally reachable base of this API, used in download links.
	PublicURL     string
	SubjectPrefix string
}

type WebhookController struct {
	tokens   paypal.TokenSource
	verifier paypal.SignatureVerifier
	ledger   Creditor
	notifier OrderNotifier
	opts     WebhookOptions
	log      zerolog.Logger
}

func NewWebhookController(tokens paypal.TokenSource, verifier paypal.SignatureVerifier, ledger Creditor, notifier OrderNotifier, opts WebhookOptions, log zerolog.Logger) *WebhookController {
	return &WebhookController{
		tokens:   tokens,
		verifier: verifier,
		ledger:   ledger,
		notifier: notifier,
		opts:     opts,
		log:      log,
	}
}

// PayPal handles a webhook delivery: verify with the provider, then credit the
// entitlement for approved orders and email the download link.
func (w *WebhookController) PayPal(c *fiber.Ctx) error {
	ctx := c.UserContext()
	raw := append([]byte(nil), c.Body()...)
	headers := paypal.HeadersFromRequest(func(key string) string { return c.Get(key) })
	log := w.log.With().Str("transmission_id", headers.TransmissionID).Logger()

	token, err := w.tokens.Token(ctx)
	if err != nil {
		metrics.Webhooks.WithLabelValues(metrics.WebhookFailed).Inc()
		log.Error().Err(err).Msg("could not obtain paypal access token")
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	if outcome := w.verifier.Verify(ctx, raw, headers, token.AccessToken); outcome != paypal.Success {
		metrics.Webhooks.WithLabelValues(metrics.WebhookRejected).Inc()
		log.Warn().Err(outcome.Error()).Msg("webhook rejected")
		return fiber.NewError(fiber.StatusInternalServerError, "Verification failed")
	}
	metrics.Webhooks.WithLabelValues(metrics.WebhookVerified).Inc()

	event, err := paypal.ParseEvent(raw)
	if err != nil {
		metrics.Webhooks.WithLabelValues(metrics.WebhookFailed).Inc()
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	log = log.With().Str("event_id", event.ID).Str("event_type", event.EventType).Logger()

	if event.EventType != paypal.EventCheckoutOrderApproved {
		metrics.Webhooks.WithLabelValues(metrics.WebhookIgnored).Inc()
		log.Debug().Msg("webhook event type ignored")
		return c.Status(fiber.StatusOK).SendString(eventReceived)
	}

	unit, err := event.FirstUnit()
	if err != nil {
		metrics.Webhooks.WithLabelValues(metrics.WebhookFailed).Inc()
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	payer := event.Resource.Payer

	res, err := w.ledger.Credit(ctx, entitlements.CreditRequest{
		EventID:    event.ID,
		EventType:  event.EventType,
		DownloadID: unit.CustomID,
		Payer:      payer,
		Amount:     unit.Amount,
	})
	if err != nil {
		metrics.Webhooks.WithLabelValues(metrics.WebhookFailed).Inc()
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	if res.Duplicate {
		metrics.Webhooks.WithLabelValues(metrics.WebhookDuplicate).Inc()
		return c.Status(fiber.StatusOK).SendString(eventReceived)
	}
	metrics.Webhooks.WithLabelValues(metrics.WebhookCredited).Inc()

	product := unit.Description
	if product == "" {
		product = res.Product.Description
	}
	w.notifier.OrderComplete(payer.EmailAddress, w.opts.SubjectPrefix+orderCompleteSubject, mailer.OrderCompleteData{
		Name:         payer.Name.GivenName,
		Product:      product,
		DownloadLink: DownloadLink(w.opts.PublicURL, unit.CustomID, payer.PayerID),
		Downloads:    res.Entitlement.AvailableDownloads,
	})

	return c.Status(fiber.StatusOK).SendString(eventReceived)
}

// DownloadLink builds the link a payer uses to claim a purchased asset.
func DownloadLink(publicURL, downloadID, payerID string) string {
	q := url.Values{}
	q.Set("payer_id", payerID)
	q.Set("download_id", downloadID)
	return fmt.Sprintf("%s/downloads?%s", strings.TrimRight(publicURL, "/"), q.Encode())
}
