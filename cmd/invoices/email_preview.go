package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deppfellow/go-invoices/internal/config"
	"github.com/deppfellow/go-invoices/internal/lib/email"
	"github.com/deppfellow/go-invoices/internal/logger"
)

func newEmailPreviewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "email-preview [template]",
		Short: "Render an email template with sample data to stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := email.TemplateInvoiceCreated
			if len(args) == 1 {
				name = email.Template(args[0])
			}

			log := logger.NewLogger(config.DefaultObservabilityConfig())
			client := email.NewClient(&config.Config{}, &log)

			html, err := client.Preview(name)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), html)
			return err
		},
	}
}
