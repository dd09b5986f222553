// Package repository holds the SQL behind each domain entity.
package repository

import (
	"github.com/deppfellow/go-invoices/internal/server"
)

type Repositories struct {
	Invoice *InvoiceRepository
}

func NewRepositories(s *server.Server) *Repositories {
	return &Repositories{
		Invoice: NewInvoiceRepository(s.DB.Pool),
	}
}
