package middleware

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/fairprice/internal/auth"
	"github.com/bilgisen/fairprice/internal/images"
	"github.com/bilgisen/fairprice/internal/logger"
	"github.com/bilgisen/fairprice/internal/models"
	"github.com/bilgisen/fairprice/internal/reviews"
	"github.com/bilgisen/fairprice/internal/storage"
)

// ErrorHandler maps domain errors to HTTP responses in a consistent way.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	body := fiber.Map{}

	var (
		fe   *fiber.Error
		verr models.ValidationErrors
	)
	switch {
	case errors.As(err, &fe):
		code = fe.Code
		body["error"] = fe.Message
	case errors.As(err, &verr):
		code = fiber.StatusBadRequest
		body["error"] = "Validation failed"
		body["fields"] = verr.Fields()
	case models.IsValidationError(err):
		code = fiber.StatusBadRequest
		body["error"] = err.Error()
	case errors.Is(err, storage.ErrNotFound):
		code = fiber.StatusNotFound
		body["error"] = "Review not found"
	case errors.Is(err, reviews.ErrConflict):
		code = fiber.StatusConflict
		body["error"] = err.Error()
	case errors.Is(err, reviews.ErrInvalidTransition):
		code = fiber.StatusUnprocessableEntity
		body["error"] = err.Error()
	case errors.Is(err, images.ErrTooLarge):
		code = fiber.StatusRequestEntityTooLarge
		body["error"] = err.Error()
	case errors.Is(err, images.ErrUnsupportedType), errors.Is(err, images.ErrNotOwned):
		code = fiber.StatusBadRequest
		body["error"] = err.Error()
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		code = fiber.StatusUnauthorized
		body["error"] = "Unauthorized"
	default:
		body["error"] = http.StatusText(code)
	}

	event := logger.Get().Debug()
	if code >= fiber.StatusInternalServerError {
		event = logger.Get().Error()
	}
	event.
		Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", code).
		Msg("HTTP error")

	return c.Status(code).JSON(body)
}
