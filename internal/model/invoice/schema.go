package invoice

import (
	"encoding/json"
	"errors"
	"math"
	"net/url"
	"slices"
	"strings"

	"github.com/deppfellow/go-invoices/internal/validation"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Field is a form field name as submitted by the dashboard.
type Field string

const (
	FieldID         Field = "id"
	FieldCustomerID Field = "customerId"
	FieldAmount     Field = "amount"
	FieldStatus     Field = "status"
	FieldDate       Field = "date"
)

var allFields = []Field{FieldID, FieldCustomerID, FieldAmount, FieldStatus, FieldDate}

var validate = validator.New()

// Schema describes which invoice fields a submission must carry.
// The zero value is the full record schema.
type Schema struct {
	omitted []Field
}

var (
	// FormSchema is the full invoice record.
	FormSchema = Schema{}

	// CreateInvoice is the shape of a create form: id and date are assigned
	// by the server.
	CreateInvoice = FormSchema.Omit(FieldID, FieldDate)

	// UpdateInvoice is the shape of an edit form: id comes from the route and
	// date never changes.
	UpdateInvoice = FormSchema.Omit(FieldID, FieldDate)
)

// Omit returns a copy of s without fields.
func (s Schema) Omit(fields ...Field) Schema {
	omitted := slices.Clone(s.omitted)
	for _, f := range fields {
		if !slices.Contains(omitted, f) {
			omitted = append(omitted, f)
		}
	}
	return Schema{omitted: omitted}
}

// Fields lists the fields of s in record order.
func (s Schema) Fields() []Field {
	fields := make([]Field, 0, len(allFields))
	for _, f := range allFields {
		if s.Has(f) {
			fields = append(fields, f)
		}
	}
	return fields
}

// Has reports whether f is part of s.
func (s Schema) Has(f Field) bool {
	return !slices.Contains(s.omitted, f)
}

// Form is a validated submission. Fields omitted by the schema are zero.
type Form struct {
	ID         string
	CustomerID string
	Amount     decimal.Decimal
	Status     Status
	Date       string
}

// AmountInCents converts Amount to minor units, rounding half away from zero.
func (f Form) AmountInCents() int64 {
	return f.Amount.Shift(2).Round(0).IntPart()
}

// Values flattens submitted form values into the raw map Parse expects.
// Only the first value of each key is kept; absent keys stay absent.
func Values(v url.Values) map[string]any {
	raw := make(map[string]any, len(v))
	for key, values := range v {
		if len(values) > 0 {
			raw[key] = values[0]
		}
	}
	return raw
}

// Parse validates raw against s. Every failing field is reported, in record
// order, as validation.CustomValidationErrors. Keys outside s are ignored.
func (s Schema) Parse(raw map[string]any) (Form, error) {
	var (
		form     Form
		failures validation.CustomValidationErrors
	)

	fail := func(field Field, message string) {
		failures = append(failures, validation.CustomValidationError{
			Field:   string(field),
			Message: message,
		})
	}

	for _, field := range s.Fields() {
		value := raw[string(field)]

		switch field {
		case FieldID:
			id, msg := parseString(value)
			if msg != "" {
				fail(field, msg)
				continue
			}
			form.ID = id

		case FieldCustomerID:
			customerID, msg := parseString(value)
			if msg == "" {
				customerID = strings.TrimSpace(customerID)
				msg = check(customerID, "required")
			}
			if msg != "" {
				fail(field, msg)
				continue
			}
			form.CustomerID = customerID

		case FieldAmount:
			amount, msg := parseAmount(value)
			if msg != "" {
				fail(field, msg)
				continue
			}
			form.Amount = amount

		case FieldStatus:
			status, msg := parseString(value)
			if msg == "" {
				msg = check(status, "required,oneof=pending paid")
			}
			if msg != "" {
				fail(field, msg)
				continue
			}
			form.Status = Status(status)

		case FieldDate:
			date, msg := parseString(value)
			if msg != "" {
				fail(field, msg)
				continue
			}
			form.Date = date
		}
	}

	if len(failures) > 0 {
		return Form{}, failures
	}
	return form, nil
}

func check(value any, tag string) string {
	err := validate.Var(value, tag)
	if err == nil {
		return ""
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		return validation.TagMessage(validationErrors[0])
	}
	return err.Error()
}

func parseString(value any) (string, string) {
	switch v := value.(type) {
	case nil:
		return "", "is required"
	case string:
		return v, ""
	default:
		return "", "must be a string"
	}
}

// parseAmount coerces numeric strings and JSON numbers into a decimal.
func parseAmount(value any) (decimal.Decimal, string) {
	var (
		amount decimal.Decimal
		err    error
	)

	switch v := value.(type) {
	case nil:
		return decimal.Zero, "is required"
	case string:
		amount, err = parseDecimal(v)
	case json.Number:
		amount, err = parseDecimal(v.String())
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, "must be a number"
		}
		amount = decimal.NewFromFloat(v)
	case float32:
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return decimal.Zero, "must be a number"
		}
		amount = decimal.NewFromFloat32(v)
	case int:
		amount = decimal.NewFromInt(int64(v))
	case int64:
		amount = decimal.NewFromInt(v)
	case int32:
		amount = decimal.NewFromInt32(v)
	default:
		return decimal.Zero, "must be a number"
	}

	if errors.Is(err, errEmptyAmount) {
		return decimal.Zero, "is required"
	}
	if err != nil {
		return decimal.Zero, "must be a number"
	}
	if amount.IsNegative() {
		return decimal.Zero, "must be at least 0"
	}
	if amount.Shift(2).Round(0).GreaterThan(maxCents) {
		return decimal.Zero, "is too large"
	}
	return amount, ""
}

var (
	errEmptyAmount = errors.New("empty amount")
	maxCents       = decimal.NewFromInt(math.MaxInt64)
)

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errEmptyAmount
	}
	return decimal.NewFromString(s)
}
