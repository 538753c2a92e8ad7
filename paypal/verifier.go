package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"storefront-backend/metrics"
)

type Outcome string

const (
	Success Outcome = "SUCCESS"
	Failed  Outcome = "FAILURE"
)

// SignatureVerifier confirms a webhook delivery with the provider.
type SignatureVerifier interface {
	Verify(ctx context.Context, rawEvent []byte, h Headers, accessToken string) Outcome
}

type verifyRequest struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertURL          string          `json:"cert_url"`
	TransmissionID   string          `json:"transmission_id"`
	TransmissionSig  string          `json:"transmission_sig"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

type verifyResponse struct {
	VerificationStatus string `json:"verification_status"`
}

// Verifier calls /v1/notifications/verify-webhook-signature. Anything other than
// an explicit SUCCESS is reported as Failed.
type Verifier struct {
	endpoint  string
	webhookID string
	timeout   time.Duration
	log       zerolog.Logger
}

func NewVerifier(apiBase, webhookID string, timeout time.Duration, log zerolog.Logger) *Verifier {
	return &Verifier{
		endpoint:  strings.TrimRight(apiBase, "/") + "/v1/notifications/verify-webhook-signature",
		webhookID: webhookID,
		timeout:   timeout,
		log:       log,
	}
}

func (v *Verifier) Verify(ctx context.Context, rawEvent []byte, h Headers, accessToken string) Outcome {
	log := v.log.With().Str("transmission_id", h.TransmissionID).Logger()

	if missing := h.missing(); len(missing) > 0 {
		log.Warn().Strs("missing", missing).Msg("webhook verification headers missing")
		return Failed
	}
	if !json.Valid(rawEvent) {
		log.Warn().Msg("webhook body is not valid JSON")
		return Failed
	}

	timeout := v.timeout
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			log.Warn().Msg("webhook verification skipped, deadline exceeded")
			return Failed
		}
		if timeout <= 0 || left < timeout {
			timeout = left
		}
	}

	payload := verifyRequest{
		AuthAlgo:         h.AuthAlgo,
		CertURL:          h.CertURL,
		TransmissionID:   h.TransmissionID,
		TransmissionSig:  h.TransmissionSig,
		TransmissionTime: h.TransmissionTime,
		WebhookID:        v.webhookID,
		WebhookEvent:     json.RawMessage(rawEvent),
	}

	start := time.Now()
	agent := fiber.Post(v.endpoint)
	agent.Set(fiber.HeaderAuthorization, "Bearer "+accessToken)
	agent.JSON(payload)
	if timeout > 0 {
		agent.Timeout(timeout)
	}

	var resp verifyResponse
	code, body, errs := agent.Struct(&resp)
	metrics.VerificationTime.Observe(time.Since(start).Seconds())

	if len(errs) > 0 {
		log.Error().Errs("errors", errs).Msg("webhook verification request failed")
		return Failed
	}
	if code < 200 || code > 299 {
		log.Error().Int("status", code).Bytes("body", truncate(body, 512)).Msg("webhook verification rejected by provider")
		return Failed
	}
	if resp.VerificationStatus != string(Success) {
		log.Warn().Str("verification_status", resp.VerificationStatus).Msg("webhook signature not verified")
		return Failed
	}
	return Success
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}

// Error reports a Failed outcome as ErrVerificationFailed.
func (o Outcome) Error() error {
	if o == Success {
		return nil
	}
	return fmt.Errorf("%w: status %s", ErrVerificationFailed, o)
}
