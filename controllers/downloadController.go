package controllers

import (
	"context"
	_ "embed"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"storefront-backend/entitlements"
	"storefront-backend/metrics"
)

//go:embed views/no_downloads.html
var noDownloadsPage []byte

// Claimer consumes one download and returns the asset.
type Claimer interface {
	Claim(ctx context.Context, downloadID, payerID string) (*entitlements.Download, error)
}

type DownloadController struct {
	gate Claimer
	log  zerolog.Logger
}

func NewDownloadController(gate Claimer, log zerolog.Logger) *DownloadController {
	return &DownloadController{gate: gate, log: log}
}

// Download streams the purchased asset as an attachment, or a static page once
// the entitlement is used up.
func (d *DownloadController) Download(c *fiber.Ctx) error {
	payerID := strings.TrimSpace(c.Query("payer_id"))
	downloadID := strings.TrimSpace(c.Query("download_id"))
	if payerID == "" || downloadID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "payer_id and download_id are required")
	}

	dl, err := d.gate.Claim(c.UserContext(), downloadID, payerID)
	if errors.Is(err, entitlements.ErrNoEntitlement) {
		metrics.Downloads.WithLabelValues(metrics.DownloadExhausted).Inc()
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Status(fiber.StatusOK).Send(noDownloadsPage)
	}
	if err != nil {
		metrics.Downloads.WithLabelValues(metrics.DownloadFailed).Inc()
		d.log.Error().Err(err).Str("download_id", downloadID).Str("payer_id", payerID).Msg("download failed")
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	metrics.Downloads.WithLabelValues(metrics.DownloadServed).Inc()

	c.Attachment(dl.Filename)
	c.Set(fiber.HeaderContentType, dl.ContentType)
	size := -1
	if dl.ContentLength > 0 {
		size = int(dl.ContentLength)
	}
	// fasthttp closes the body once it has been written
	return c.Status(fiber.StatusOK).SendStream(dl.Body, size)
}
