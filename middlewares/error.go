package middlewares

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"storefront-backend/entitlements"
	"storefront-backend/paypal"
)

// ErrorHandler converts handler errors into the {success:false, error} envelope.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		// 1) Fiber errors (use their status code + message)
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"success": false, "error": fe.Message})
		}

		// 2) Validation errors (422 + per-field info)
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			out := make(map[string]string, len(ve))
			for _, fe := range ve {
				out[fe.Field()] = fe.Tag()
			}
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"success": false,
				"error":   "validation failed",
				"fields":  out,
			})
		}

		// 3) Known admin-surface lookups
		if errors.Is(err, entitlements.ErrNoEntitlement) || errors.Is(err, entitlements.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": err.Error()})
		}

		// 4) Everything else, including verification and auth failures (500)
		ev := log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path())
		if errors.Is(err, paypal.ErrUpstreamAuth) || errors.Is(err, paypal.ErrVerificationFailed) {
			ev = ev.Str("kind", "paypal")
		}
		ev.Msg("request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
}
