package email

import (
	"context"
	"errors"
	"testing"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmails struct {
	resend.EmailsSvc
	sent []*resend.SendEmailRequest
	err  error
}

func (f *fakeEmails) SendWithContext(_ context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, params)
	return &resend.SendEmailResponse{Id: "email-1"}, nil
}

func newTestClient(emails resend.EmailsSvc) *Client {
	logger := zerolog.Nop()
	return &Client{
		emails:      emails,
		from:        "Acme <invoices@example.com>",
		templateDir: "../../../templates/emails",
		logger:      &logger,
	}
}

func TestSendInvoiceCreatedEmail(t *testing.T) {
	fake := &fakeEmails{}
	c := newTestClient(fake)

	err := c.SendInvoiceCreatedEmail(context.Background(), "lee@example.com", InvoiceCreatedData{
		CustomerName: "Lee Robinson",
		InvoiceID:    "inv-1",
		Amount:       "$15.00",
		Status:       "pending",
		Date:         "2024-05-01",
	})
	require.NoError(t, err)

	require.Len(t, fake.sent, 1)
	sent := fake.sent[0]
	assert.Equal(t, []string{"lee@example.com"}, sent.To)
	assert.Equal(t, "Acme <invoices@example.com>", sent.From)
	assert.Equal(t, "New invoice for $15.00", sent.Subject)
	assert.Contains(t, sent.Html, "Lee Robinson")
	assert.Contains(t, sent.Html, "$15.00")
	assert.Contains(t, sent.Html, "inv-1")
}

func TestSendEmailProviderError(t *testing.T) {
	c := newTestClient(&fakeEmails{err: errors.New("rate limited")})

	err := c.SendInvoiceCreatedEmail(context.Background(), "lee@example.com", InvoiceCreatedData{})
	assert.ErrorContains(t, err, "rate limited")
}

func TestRenderMissingTemplate(t *testing.T) {
	c := newTestClient(&fakeEmails{})

	_, err := c.Render("missing", nil)
	assert.ErrorContains(t, err, "failed to parse email template missing")
}

func TestPreview(t *testing.T) {
	c := newTestClient(&fakeEmails{})

	html, err := c.Preview(TemplateInvoiceCreated)
	require.NoError(t, err)
	assert.Contains(t, html, "$157.95")
}
