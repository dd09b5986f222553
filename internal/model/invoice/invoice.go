// Package invoice holds the invoice record and the schema used to validate
// dashboard form submissions before they are persisted.
package invoice

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the payment state of an invoice.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusPaid
}

// DateLayout is the persisted date format.
const DateLayout = "2006-01-02"

// Invoice is the persisted record. Amount is stored in cents.
type Invoice struct {
	ID         string `json:"id" db:"id"`
	CustomerID string `json:"customerId" db:"customer_id"`
	Amount     int64  `json:"amount" db:"amount"`
	Status     Status `json:"status" db:"status"`
	Date       string `json:"date" db:"date"`
}

// Summary is an invoice row of the list view, joined with its customer.
type Summary struct {
	Invoice
	CustomerName  string `json:"name" db:"name"`
	CustomerEmail string `json:"email" db:"email"`
}

// Today returns the UTC calendar date of now in DateLayout.
func Today(now time.Time) string {
	return now.UTC().Format(DateLayout)
}

// FormatAmount renders a cents amount as dollars, e.g. 157095 -> "$1,570.95".
func FormatAmount(cents int64) string {
	d := decimal.New(cents, -2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	whole := d.Truncate(0).String()
	frac := d.Sub(d.Truncate(0)).Shift(2).Round(0).IntPart()

	var grouped []byte
	for i := range len(whole) {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped = append(grouped, ',')
		}
		grouped = append(grouped, whole[i])
	}

	return fmt.Sprintf("%s$%s.%02d", sign, grouped, frac)
}
