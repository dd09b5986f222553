package email

// Template names an HTML file under the template directory.
type Template string

const (
	TemplateInvoiceCreated Template = "invoice_created"
)
