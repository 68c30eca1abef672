package middleware

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/fairprice/internal/models"
)

// Validator is a struct that holds the validator instance
type Validator struct {
	validate *validator.Validate
}

// NewValidator returns a validator that knows the review domain tags and
// reports fields by their json name.
func NewValidator() *Validator {
	return &Validator{validate: models.NewValidator()}
}

// Validate validates s and returns models.ValidationErrors on failure.
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return models.Translate(err)
	}
	return nil
}

var defaultValidator = NewValidator()

// ParseBody decodes the request body into dst and validates it.
func ParseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	return defaultValidator.Validate(dst)
}

// ParseQuery decodes query parameters into dst and validates it.
func ParseQuery(c *fiber.Ctx, dst interface{}) error {
	if err := c.QueryParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query parameters: "+err.Error())
	}
	return defaultValidator.Validate(dst)
}
