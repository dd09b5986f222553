package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/deppfellow/go-invoices/internal/lib/email"
	"github.com/deppfellow/go-invoices/internal/model/invoice"
)

// InvoiceLookup loads an invoice with its customer's contact details.
type InvoiceLookup interface {
	GetInvoice(ctx context.Context, id string) (*invoice.Summary, error)
}

// Mailer sends the notification email.
type Mailer interface {
	SendInvoiceCreatedEmail(ctx context.Context, to string, data email.InvoiceCreatedData) error
}

// InitHandlers sets the dependencies task handlers need.
func (j *JobService) InitHandlers(lookup InvoiceLookup, mailer Mailer) {
	j.invoices = lookup
	j.mailer = mailer
}

func (j *JobService) handleInvoiceCreatedTask(ctx context.Context, t *asynq.Task) error {
	var p InvoiceCreatedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal invoice created payload: %v: %w", err, asynq.SkipRetry)
	}

	if j.invoices == nil || j.mailer == nil {
		return fmt.Errorf("invoice notification handlers not initialized: %w", asynq.SkipRetry)
	}

	log := j.logger.With().
		Str("type", TaskInvoiceCreated).
		Str("invoice_id", p.InvoiceID).
		Logger()

	log.Info().Msg("processing invoice created task")

	inv, err := j.invoices.GetInvoice(ctx, p.InvoiceID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load invoice for notification")
		return err
	}

	err = j.mailer.SendInvoiceCreatedEmail(ctx, inv.CustomerEmail, email.InvoiceCreatedData{
		CustomerName: inv.CustomerName,
		InvoiceID:    inv.ID,
		Amount:       invoice.FormatAmount(inv.Amount),
		Status:       string(inv.Status),
		Date:         inv.Date,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to send invoice created email")
		return err
	}

	log.Info().Str("to", inv.CustomerEmail).Msg("sent invoice created email")
	return nil
}
