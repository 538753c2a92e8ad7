package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"storefront-backend/database"
	"storefront-backend/middlewares"
	"storefront-backend/models"
	"storefront-backend/utils"
)

// LinkPresigner issues time-limited GET links for stored assets.
type LinkPresigner interface {
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

type ProductInput struct {
	DownloadID   string `json:"download_id" validate:"required,max=128"`
	Description  string `json:"description" validate:"max=255"`
	CurrencyCode string `json:"currency_code" validate:"required,iso4217"`
	Value        string `json:"value" validate:"required,price"`
	Filename     string `json:"filename" validate:"required,max=255"`
}

type ProductPatch struct {
	Description  *string `json:"description"`
	CurrencyCode *string `json:"currency_code"`
	Value        *string `json:"value"`
	Filename     *string `json:"filename"`
}

type ProductController struct {
	db         *gorm.DB
	presigner  LinkPresigner
	bucket     string
	presignTTL time.Duration
}

func NewProductController(db *gorm.DB, presigner LinkPresigner, bucket string, presignTTL time.Duration) *ProductController {
	if presignTTL <= 0 {
		presignTTL = 600 * time.Second
	}
	return &ProductController{db: db, presigner: presigner, bucket: bucket, presignTTL: presignTTL}
}

func (p *ProductController) CreateProduct(c *fiber.Ctx) error {
	var input ProductInput
	if err := c.BodyParser(&input); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	utils.NormalizeDTO(&input)
	input.CurrencyCode = utils.NormalizeCurrency(input.CurrencyCode)
	if err := middlewares.ValidateStruct(&input); err != nil {
		return err
	}

	db := database.FromCtx(c, p.db)

	var existing models.Product
	err := db.Where(&models.Product{DownloadID: input.DownloadID}).First(&existing).Error
	if err == nil {
		return fiber.NewError(fiber.StatusConflict, "product already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	product := models.Product{
		DownloadID:   input.DownloadID,
		Description:  input.Description,
		CurrencyCode: input.CurrencyCode,
		Value:        input.Value,
		Filename:     input.Filename,
	}
	if err := db.Create(&product).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

func (p *ProductController) GetProducts(c *fiber.Ctx) error {
	limit, offset := utils.Pagination(c.Query("limit"), c.Query("offset"), 50, 200)

	var products []models.Product
	if err := database.FromCtx(c, p.db).
		Order("download_id").
		Limit(limit).
		Offset(offset).
		Find(&products).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"products": products,
		"message":  "success",
	})
}

func (p *ProductController) UpdateProduct(c *fiber.Ctx) error {
	id := c.Params("id")

	var patch ProductPatch
	if err := c.BodyParser(&patch); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	utils.NormalizePtrDTO(&patch)
	if patch.CurrencyCode != nil {
		cc := utils.NormalizeCurrency(*patch.CurrencyCode)
		patch.CurrencyCode = &cc
	}

	db := database.FromCtx(c, p.db)

	var product models.Product
	if err := db.Where(&models.Product{DownloadID: id}).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	updates := utils.UpdatesFromPtrDTO(&patch)
	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}
	if patch.Filename != nil && *patch.Filename == "" {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "filename must not be empty")
	}

	currency, value := product.CurrencyCode, product.Value
	if patch.CurrencyCode != nil {
		currency = *patch.CurrencyCode
	}
	if patch.Value != nil {
		value = *patch.Value
	}
	if err := checkPrice(currency, value); err != nil {
		return err
	}

	if err := db.Model(&product).Updates(updates).Error; err != nil {
		return err
	}
	if err := db.Where(&models.Product{DownloadID: id}).First(&product).Error; err != nil {
		return err
	}
	return c.JSON(product)
}

// GetProductLink returns a presigned URL for the product's stored asset.
func (p *ProductController) GetProductLink(c *fiber.Ctx) error {
	var product models.Product
	err := database.FromCtx(c, p.db).Where(&models.Product{DownloadID: c.Params("id")}).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "product not found")
	}
	if err != nil {
		return err
	}

	link, err := p.presigner.PresignGet(c.UserContext(), p.bucket, product.Filename, p.presignTTL)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"url":        link,
		"expires_in": int(p.presignTTL.Seconds()),
	})
}

func checkPrice(currency, value string) error {
	if !utils.IsCurrencyCode(currency) {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "currency_code must be an ISO 4217 code")
	}
	if err := middlewares.ValidateVar(value, "required,price"); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "value must be a decimal with at most two fraction digits")
	}
	return nil
}
