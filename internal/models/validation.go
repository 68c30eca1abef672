package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/bilgisen/fairprice/internal/slug"
	"github.com/go-playground/validator/v10"
)

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid field of a value.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields maps field name to message, the shape returned to API clients.
func (v ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(v))
	for _, e := range v {
		out[e.Field] = e.Message
	}
	return out
}

// NewValidationError returns a single-field ValidationErrors.
func NewValidationError(field, message string) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message}}
}

// IsValidationError reports whether err carries field validation failures.
func IsValidationError(err error) bool {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *ValidationError
	return errors.As(err, &single)
}

var validate = NewValidator()

// NewValidator returns a validator that knows the tier, status and slug tags
// and reports fields by their json name.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	RegisterValidations(v)
	return v
}

// RegisterValidations installs the domain tags on v.
func RegisterValidations(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("tier", func(fl validator.FieldLevel) bool {
		return Tier(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slug.Valid(fl.Field().String())
	})
}

// Translate turns validator output into ValidationErrors. Other errors pass through.
func Translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, &ValidationError{Field: fe.Field(), Message: describe(fe)})
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return "is required when " + strings.ReplaceAll(fe.Param(), " ", " is ")
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "tier":
		return fmt.Sprintf("must be one of %s", joinTiers())
	case "status":
		return "must be one of draft, scheduled, published"
	case "slug":
		return "must contain only lowercase letters, digits and single hyphens"
	case "oneof":
		return "must be one of " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

func joinTiers() string {
	names := make([]string, len(Tiers))
	for i, t := range Tiers {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// Validate checks every field constraint of a stored review.
func (r *Review) Validate() error {
	if err := validate.Struct(r); err != nil {
		return Translate(err)
	}
	return nil
}
