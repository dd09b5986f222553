package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeUpperCaseWithUnderscores(t *testing.T) {
	assert.Equal(t, "BAD_REQUEST", MakeUpperCaseWithUnderscores("Bad Request"))
	assert.Equal(t, "NOT_FOUND", MakeUpperCaseWithUnderscores(http.StatusText(http.StatusNotFound)))
}

func TestNewBadRequestError(t *testing.T) {
	code := "INVOICE_INVALID"
	fields := []FieldError{{Field: "amount", Error: "must be a number"}}

	err := NewBadRequestError("Validation failed", true, &code, fields, nil)

	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "INVOICE_INVALID", err.Code)
	assert.True(t, err.Override)
	assert.Equal(t, fields, err.Errors)

	err = NewBadRequestError("bad", false, nil, nil, nil)
	assert.Equal(t, "BAD_REQUEST", err.Code)
}

func TestHTTPErrorIs(t *testing.T) {
	wrapped := fmt.Errorf("update invoice: %w", NewNotFoundError("Invoice not found", true, nil))

	assert.True(t, errors.Is(wrapped, &HTTPError{}))

	var httpErr *HTTPError
	assert.True(t, errors.As(wrapped, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.Status)
}

func TestWithMessageDoesNotMutate(t *testing.T) {
	base := NewInternalServerError()
	custom := base.WithMessage("Failed to Delete Invoice")

	assert.Equal(t, "Internal Server Error", base.Message)
	assert.Equal(t, "Failed to Delete Invoice", custom.Message)
	assert.Equal(t, base.Status, custom.Status)
}
