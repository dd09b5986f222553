// Package handler adapts HTTP requests to the services: it binds the
// request, runs the service call and writes the result as JSON, a
// redirect or a file.
package handler

import (
	"github.com/deppfellow/go-invoices/internal/server"
	"github.com/deppfellow/go-invoices/internal/service"
)

type Handlers struct {
	Health  *HealthHandler
	OpenAPI *OpenAPIHandler
	Invoice *InvoiceHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(s),
		OpenAPI: NewOpenAPIHandler(s),
		Invoice: NewInvoiceHandler(s, services.Invoice),
	}
}
