package middlewares

import "github.com/gofiber/fiber/v2"

// NoCache disables client and proxy caching of API responses.
func NoCache() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "no-store, no-cache, must-revalidate, proxy-revalidate")
		c.Set(fiber.HeaderPragma, "no-cache")
		c.Set(fiber.HeaderExpires, "0")
		c.Set("Surrogate-Control", "no-store")
		return c.Next()
	}
}
