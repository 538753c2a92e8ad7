package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"storefront-backend/models"
)

// SeedAdmin creates the bootstrap admin account if it does not exist yet.
// It is a no-op when email or password is empty.
func SeedAdmin(db *gorm.DB, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, nil
	}

	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	admin := models.User{
		FirstName:     "Admin",
		LastName:      "User",
		DisplayName:   "Admin User",
		Email:         email,
		Role:          models.RoleAdmin,
		EmailVerified: true,
	}
	if err := admin.SetPassword(password); err != nil {
		return false, err
	}
	if err := db.Create(&admin).Error; err != nil {
		return false, err
	}
	return true, nil
}
