package controllers

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"storefront-backend/models"
)

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	GenerateJWT(userID, role string) (string, error)
}

type AuthController struct {
	db     *gorm.DB
	issuer TokenIssuer
}

func NewAuthController(db *gorm.DB, issuer TokenIssuer) *AuthController {
	return &AuthController{db: db, issuer: issuer}
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	var data map[string]string
	if err := c.BodyParser(&data); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	email := strings.ToLower(strings.TrimSpace(data["email"]))
	if _, err := mail.ParseAddress(email); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid email format")
	}

	var user models.User
	err := a.db.WithContext(c.UserContext()).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
	}
	if err != nil {
		return err
	}
	if err := user.ComparePassword(data["password"]); err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
	}
	if user.Disabled {
		return fiber.NewError(fiber.StatusForbidden, "account disabled")
	}

	token, err := a.issuer.GenerateJWT(user.Id, user.Role)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":    user.Id,
			"name":  user.DisplayName,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

func (a *AuthController) Logout(c *fiber.Ctx) error {
	cookie := fiber.Cookie{
		Name:     "jwt",
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	}
	c.Cookie(&cookie)
	return c.JSON(fiber.Map{
		"message": "success",
	})
}
