package middlewares

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"storefront-backend/utils"
)

var validate = newValidator()

// newValidator reports fields by their json name and adds the "price" rule for
// PayPal amount strings.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("price", func(fl validator.FieldLevel) bool {
		return utils.IsDecimalAmount(fl.Field().String())
	})
	return v
}

// BindAndValidate parses the request body into dst and validates it.
// Returns a 400 for parse errors and validator.ValidationErrors for invalid fields.
func BindAndValidate(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return validate.Struct(dst)
}

func ValidateStruct(v interface{}) error {
	return validate.Struct(v)
}

// ValidateVar checks a single value against a tag, e.g. "required,price".
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
