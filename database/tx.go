package database

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// FromCtx returns the request's transaction (middlewares.RequestTx) when one is
// open, else the given base handle.
func FromCtx(c *fiber.Ctx, base *gorm.DB) *gorm.DB {
	if v := c.Locals("tx"); v != nil {
		if tx, ok := v.(*gorm.DB); ok && tx != nil {
			return tx
		}
	}
	return base.WithContext(c.UserContext())
}
