package invoice

import (
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/deppfellow/go-invoices/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var failures validation.CustomValidationErrors
	require.True(t, errors.As(err, &failures), "expected CustomValidationErrors, got %T", err)

	out := make(map[string]string, len(failures))
	for _, f := range failures {
		out[f.Field] = f.Message
	}
	return out
}

func TestCreateInvoiceOmitsIDAndDate(t *testing.T) {
	assert.Equal(t, []Field{FieldCustomerID, FieldAmount, FieldStatus}, CreateInvoice.Fields())
	assert.Equal(t, CreateInvoice.Fields(), UpdateInvoice.Fields())
	assert.Len(t, FormSchema.Fields(), 5)

	// Omit must not leak into the schema it was derived from.
	assert.True(t, FormSchema.Has(FieldID))
	assert.True(t, FormSchema.Has(FieldDate))
}

func TestParseValidForm(t *testing.T) {
	form, err := CreateInvoice.Parse(map[string]any{
		"customerId": "3958dc9e-712f-4377-85e9-fec4b6a6442a",
		"amount":     "157.95",
		"status":     "pending",
		"id":         "ignored",
	})
	require.NoError(t, err)

	assert.Equal(t, "3958dc9e-712f-4377-85e9-fec4b6a6442a", form.CustomerID)
	assert.Equal(t, StatusPending, form.Status)
	assert.Equal(t, int64(15795), form.AmountInCents())
	assert.Empty(t, form.ID)
	assert.Empty(t, form.Date)
}

func TestParseAmountCoercion(t *testing.T) {
	tests := []struct {
		name  string
		value any
		cents int64
	}{
		{"integer string", "42", 4200},
		{"padded string", "  7.5 ", 750},
		{"json number", json.Number("12.34"), 1234},
		{"float", 0.1 + 0.2, 30},
		{"float rounding", 1.005, 101},
		{"half cent rounds up", "2.675", 268},
		{"int", 3, 300},
		{"zero", "0", 0},
		{"exponent", "1e2", 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form, err := CreateInvoice.Parse(map[string]any{
				"customerId": "c1",
				"amount":     tt.value,
				"status":     "paid",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.cents, form.AmountInCents())
		})
	}
}

func TestParseRejectsInvalidFields(t *testing.T) {
	tests := []struct {
		name   string
		raw    map[string]any
		errors map[string]string
	}{
		{
			name: "non numeric amount",
			raw:  map[string]any{"customerId": "c1", "amount": "ten", "status": "paid"},
			errors: map[string]string{
				"amount": "must be a number",
			},
		},
		{
			name: "negative amount",
			raw:  map[string]any{"customerId": "c1", "amount": "-1", "status": "paid"},
			errors: map[string]string{
				"amount": "must be at least 0",
			},
		},
		{
			name: "amount overflows cents",
			raw:  map[string]any{"customerId": "c1", "amount": "1e30", "status": "paid"},
			errors: map[string]string{
				"amount": "is too large",
			},
		},
		{
			name: "unknown status",
			raw:  map[string]any{"customerId": "c1", "amount": "1", "status": "overdue"},
			errors: map[string]string{
				"status": "must be one of: pending paid",
			},
		},
		{
			name: "status is case sensitive",
			raw:  map[string]any{"customerId": "c1", "amount": "1", "status": "Paid"},
			errors: map[string]string{
				"status": "must be one of: pending paid",
			},
		},
		{
			name: "everything missing",
			raw:  map[string]any{},
			errors: map[string]string{
				"customerId": "is required",
				"amount":     "is required",
				"status":     "is required",
			},
		},
		{
			name: "blank customer and amount",
			raw:  map[string]any{"customerId": "   ", "amount": "", "status": "pending"},
			errors: map[string]string{
				"customerId": "is required",
				"amount":     "is required",
			},
		},
		{
			name: "wrong types",
			raw:  map[string]any{"customerId": 12, "amount": true, "status": "paid"},
			errors: map[string]string{
				"customerId": "must be a string",
				"amount":     "must be a number",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form, err := CreateInvoice.Parse(tt.raw)
			require.Error(t, err)
			assert.Equal(t, Form{}, form)
			assert.Equal(t, tt.errors, fieldErrors(t, err))
		})
	}
}

func TestParseReportsFieldsInRecordOrder(t *testing.T) {
	_, err := FormSchema.Parse(map[string]any{})

	var failures validation.CustomValidationErrors
	require.True(t, errors.As(err, &failures))

	var order []string
	for _, f := range failures {
		order = append(order, f.Field)
	}
	assert.Equal(t, []string{"id", "customerId", "amount", "status", "date"}, order)
}

func TestFormSchemaParsesFullRecord(t *testing.T) {
	form, err := FormSchema.Parse(map[string]any{
		"id":         "cc27c14a-0acf-4f4a-a6c9-d45682c144b9",
		"customerId": "c1",
		"amount":     json.Number("8945"),
		"status":     "paid",
		"date":       "2026-10-19",
	})
	require.NoError(t, err)
	assert.Equal(t, "cc27c14a-0acf-4f4a-a6c9-d45682c144b9", form.ID)
	assert.Equal(t, "2026-10-19", form.Date)

	_, err = FormSchema.Parse(map[string]any{
		"id": "x", "customerId": "c1", "amount": "1", "status": "paid", "date": 20261019,
	})
	assert.Equal(t, map[string]string{"date": "must be a string"}, fieldErrors(t, err))
}

func TestValues(t *testing.T) {
	raw := Values(url.Values{
		"customerId": {"c1", "c2"},
		"amount":     {"10"},
		"empty":      {},
	})

	assert.Equal(t, map[string]any{"customerId": "c1", "amount": "10"}, raw)
}

func TestToday(t *testing.T) {
	// 23:30 in UTC-5 is already the next day in UTC.
	loc := time.FixedZone("EST", -5*60*60)
	now := time.Date(2026, 10, 18, 23, 30, 0, 0, loc)

	assert.Equal(t, "2026-10-19", Today(now))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$1,570.95", FormatAmount(157095))
	assert.Equal(t, "$0.05", FormatAmount(5))
	assert.Equal(t, "$1,000,000.00", FormatAmount(100000000))
	assert.Equal(t, "-$12.30", FormatAmount(-1230))
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusPaid.Valid())
	assert.True(t, StatusPending.Valid())
	assert.False(t, Status("draft").Valid())
}
