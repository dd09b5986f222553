package email

import (
	"context"
	"fmt"
)

// InvoiceCreatedData fills the invoice_created template.
type InvoiceCreatedData struct {
	CustomerName string
	InvoiceID    string
	Amount       string
	Status       string
	Date         string
}

// SendInvoiceCreatedEmail tells a customer a new invoice was issued.
func (c *Client) SendInvoiceCreatedEmail(ctx context.Context, to string, data InvoiceCreatedData) error {
	return c.SendEmail(
		ctx,
		to,
		fmt.Sprintf("New invoice for %s", data.Amount),
		TemplateInvoiceCreated,
		data,
	)
}
