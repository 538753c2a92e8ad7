package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"storefront-backend/models"
)

type EntitlementReader interface {
	Remaining(ctx context.Context, downloadID, payerID string) (*models.PurchaseEntitlement, error)
}

type EntitlementController struct {
	reader EntitlementReader
}

func NewEntitlementController(reader EntitlementReader) *EntitlementController {
	return &EntitlementController{reader: reader}
}

func (e *EntitlementController) GetEntitlement(c *fiber.Ctx) error {
	ent, err := e.reader.Remaining(c.UserContext(), c.Params("download_id"), c.Params("payer_id"))
	if err != nil {
		return err
	}
	return c.JSON(ent)
}
