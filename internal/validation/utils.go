// Package validation binds request payloads and turns validation failures
// into field-level errors the dashboard forms can display.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/deppfellow/go-invoices/internal/errs"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validatable is implemented by request payloads. Payloads are pointers so
// echo can bind into them.
type Validatable interface {
	Validate() error
}

// CustomValidationError is a single field failure that cannot be expressed as
// a validator tag.
type CustomValidationError struct {
	Field   string
	Message string
}

// CustomValidationErrors collects field failures. It is the error returned
// by hand-written Validate methods.
type CustomValidationErrors []CustomValidationError

func (c CustomValidationErrors) Error() string {
	if len(c) == 0 {
		return "Validation failed"
	}
	parts := make([]string, 0, len(c))
	for _, e := range c {
		parts = append(parts, e.Field+" "+e.Message)
	}
	return "Validation failed: " + strings.Join(parts, "; ")
}

// FieldErrors converts c to the response shape.
func (c CustomValidationErrors) FieldErrors() []errs.FieldError {
	out := make([]errs.FieldError, 0, len(c))
	for _, e := range c {
		out = append(out, errs.FieldError{Field: e.Field, Error: e.Message})
	}
	return out
}

// BindAndValidate binds the request into payload and runs payload.Validate.
// Failures are returned as 400 *errs.HTTPError values.
func BindAndValidate(c echo.Context, payload Validatable) error {
	if err := c.Bind(payload); err != nil {
		return errs.NewBadRequestError(bindErrorMessage(err), false, nil, nil, nil)
	}

	if err := payload.Validate(); err != nil {
		msg, fieldErrors := extractValidationError(err)
		if fieldErrors == nil {
			return err
		}
		return errs.NewBadRequestError(msg, true, nil, fieldErrors, nil)
	}

	return nil
}

func bindErrorMessage(err error) string {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if msg, ok := httpErr.Message.(string); ok {
			return msg
		}
	}
	return "Invalid request payload"
}

// extractValidationError returns nil field errors when err is neither a
// validator error nor CustomValidationErrors, so callers pass it on as-is.
func extractValidationError(err error) (string, []errs.FieldError) {
	var custom CustomValidationErrors
	if errors.As(err, &custom) {
		return "Validation failed", custom.FieldErrors()
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return "", nil
	}

	fieldErrors := make([]errs.FieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fieldErrors = append(fieldErrors, errs.FieldError{
			Field: fieldName(fe),
			Error: TagMessage(fe),
		})
	}
	return "Validation failed", fieldErrors
}

func fieldName(fe validator.FieldError) string {
	if fe.Field() == "" {
		return ""
	}
	name := fe.Field()
	return strings.ToLower(name[:1]) + name[1:]
}

// TagMessage renders a validator failure as a short message such as
// "is required" or "must be one of: pending paid".
func TagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"

	case "min", "gte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())

	case "max", "lte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must not exceed %s characters", fe.Param())
		}
		return fmt.Sprintf("must not exceed %s", fe.Param())

	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())

	case "uuid", "uuid4":
		return "must be a valid UUID"

	case "datetime":
		return fmt.Sprintf("must be a date in %s format", fe.Param())

	case "numeric", "number":
		return "must be a number"

	default:
		if fe.Param() != "" {
			return fmt.Sprintf("failed %s:%s", fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}
