package email

// PreviewData holds sample values for rendering each template locally.
var PreviewData = map[Template]any{
	TemplateInvoiceCreated: InvoiceCreatedData{
		CustomerName: "Lee Robinson",
		InvoiceID:    "3958dc9e-712f-4377-85e9-fec4b6a6442a",
		Amount:       "$157.95",
		Status:       "pending",
		Date:         "2023-12-06",
	},
}

// Preview renders name with its sample data.
func (c *Client) Preview(name Template) (string, error) {
	data, ok := PreviewData[name]
	if !ok {
		data = map[string]string{}
	}
	return c.Render(name, data)
}
