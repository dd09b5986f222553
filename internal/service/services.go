// Package service holds the business rules behind each dashboard action.
// Handlers pass it raw form fields; it validates, persists through the
// repositories and decides where the user goes next.
package service

import (
	"github.com/deppfellow/go-invoices/internal/lib/job"
	"github.com/deppfellow/go-invoices/internal/repository"
	"github.com/deppfellow/go-invoices/internal/server"
)

type Services struct {
	Auth    *AuthService
	Invoice *InvoiceService
	Job     *job.JobService
}

func NewServices(s *server.Server, repos *repository.Repositories) (*Services, error) {
	var notifier Notifier
	if s.Job != nil && s.Job.Enabled() {
		notifier = s.Job
	}

	return &Services{
		Auth:    NewAuthService(s),
		Invoice: NewInvoiceService(repos.Invoice, s.Cache, notifier, s.Config.Invoices, s.Logger),
		Job:     s.Job,
	}, nil
}
