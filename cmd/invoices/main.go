package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "invoices",
		Short:         "Invoice dashboard actions service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newEmailPreviewCommand(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
