package job

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// TaskInvoiceCreated notifies the customer of a newly created invoice.
const TaskInvoiceCreated = "email:invoice_created"

type InvoiceCreatedPayload struct {
	InvoiceID string `json:"invoice_id"`
}

func NewInvoiceCreatedTask(invoiceID string) (*asynq.Task, error) {
	payload, err := json.Marshal(InvoiceCreatedPayload{InvoiceID: invoiceID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskInvoiceCreated,
		payload,
		asynq.MaxRetry(3),
		asynq.Queue("default"),
		asynq.Timeout(30*time.Second),
	), nil
}
