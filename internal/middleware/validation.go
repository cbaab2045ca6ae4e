package middleware

import (
	"encoding/json"
	"net/http"

	"minimarket/internal/validation"

	"github.com/go-playground/validator/v10"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// DecodeAndValidate decodes a JSON request body into v and validates it
func DecodeAndValidate(r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return err
	}
	return validation.Struct(v)
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FormatValidationErrors converts validator errors to a readable format
func FormatValidationErrors(err error) []ValidationError {
	fieldErrs, ok := validation.FieldErrors(err)
	if !ok {
		return nil
	}

	errors := make([]ValidationError, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		errors = append(errors, ValidationError{
			Field:   e.Field(),
			Message: getErrorMessage(e),
		})
	}
	return errors
}

func getErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "url":
		return "Invalid URL"
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "gte":
		return "Value must be greater than or equal to " + e.Param()
	case "lte":
		return "Value must be less than or equal to " + e.Param()
	case "gt":
		return "Value must be greater than " + e.Param()
	case "lt":
		return "Value must be less than " + e.Param()
	case "nefield":
		return "Value must differ from " + e.Param()
	case "theme":
		return "Unknown theme"
	case "product_status":
		return "Status must be available or outOfStock"
	default:
		return "Invalid value"
	}
}
