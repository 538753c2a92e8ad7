package controllers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"storefront-backend/database"
	"storefront-backend/middlewares"
	"storefront-backend/models"
)

type CreateUserInput struct {
	FirstName    string `json:"first_name" validate:"required,max=100"`
	LastName     string `json:"last_name" validate:"required,max=100"`
	EmailAddress string `json:"email_address" validate:"required,email"`
	Role         string `json:"role"`
	Password     string `json:"password" validate:"omitempty,min=8,max=72"`
	RequestID    string `json:"request_id"`
}

type UserController struct {
	db *gorm.DB
}

func NewUserController(db *gorm.DB) *UserController {
	return &UserController{db: db}
}

// CreateUser provisions an account and, when request_id is given, marks that
// signup request approved. Both happen in the request transaction.
func (u *UserController) CreateUser(c *fiber.Ctx) error {
	var input CreateUserInput
	if err := middlewares.BindAndValidate(c, &input); err != nil {
		return err
	}
	if !models.RoleIsValid(input.Role) {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("The %q role is not a valid role", input.Role))
	}

	db := database.FromCtx(c, u.db)
	email := strings.ToLower(strings.TrimSpace(input.EmailAddress))

	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return fiber.NewError(fiber.StatusConflict, "email already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	user := models.User{
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		DisplayName: strings.TrimSpace(input.FirstName) + " " + strings.TrimSpace(input.LastName),
		Email:       email,
		Role:        input.Role,
	}
	password := input.Password
	if password == "" {
		// unusable until the member sets their own
		password = uuid.NewString()
	}
	if err := user.SetPassword(password); err != nil {
		return err
	}
	if err := db.Create(&user).Error; err != nil {
		return err
	}

	if input.RequestID != "" {
		res := db.Model(&models.SignupRequest{}).
			Where("id = ?", input.RequestID).
			Update("status", models.SignupApproved)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "signup request not found")
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":     user.Id,
		"result": "The new user has been successfully created.",
	})
}
