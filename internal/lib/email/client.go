// Package email renders HTML templates and sends them through Resend.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"github.com/deppfellow/go-invoices/internal/config"
)

// DefaultTemplateDir is where templates are read from, relative to the
// working directory.
const DefaultTemplateDir = "templates/emails"

type Client struct {
	emails      resend.EmailsSvc
	from        string
	templateDir string
	logger      *zerolog.Logger
}

func NewClient(cfg *config.Config, logger *zerolog.Logger) *Client {
	return &Client{
		emails:      resend.NewClient(cfg.Integration.ResendAPIKey).Emails,
		from:        cfg.Integration.EmailFrom,
		templateDir: DefaultTemplateDir,
		logger:      logger,
	}
}

// Render executes the named template with data.
func (c *Client) Render(name Template, data any) (string, error) {
	path := filepath.Join(c.templateDir, string(name)+".html")

	tmpl, err := template.ParseFiles(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to parse email template %s", name)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", errors.Wrapf(err, "failed to execute email template %s", name)
	}
	return body.String(), nil
}

// SendEmail renders the template and sends it to a single recipient.
func (c *Client) SendEmail(ctx context.Context, to, subject string, name Template, data any) error {
	html, err := c.Render(name, data)
	if err != nil {
		return err
	}

	resp, err := c.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	c.logger.Debug().
		Str("template", string(name)).
		Str("email_id", resp.Id).
		Msg("email sent")
	return nil
}
