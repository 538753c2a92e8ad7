package middlewares

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimit limits requests per client IP. PayPal delivers webhooks from a
// small pool of addresses, so webhook paths are exempt.
func RateLimit(max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		Next:       isWebhook,
	})
}

func isWebhook(c *fiber.Ctx) bool {
	p := c.Path()
	return p == "/paypal" || strings.HasPrefix(p, "/webhooks/")
}
