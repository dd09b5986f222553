package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/deppfellow/go-invoices/internal/config"
	"github.com/deppfellow/go-invoices/internal/model/invoice"
	"github.com/deppfellow/go-invoices/internal/sqlerr"
)

// Messages shown on the form when a write fails. The wording is what the
// dashboard displays.
const (
	MsgCreateFailed = "Database Error: Failed to Create Invoice"
	MsgUpdateFailed = "Database Error Failed to Update Invoice"
	MsgDeleted      = "Deleted Invoice"
	MsgDeleteFailed = "Database Error: Failed to Delete Invoice."
)

// ErrDeleteDisabled is returned by DeleteInvoice while deletion is turned
// off.
var ErrDeleteDisabled = errors.New("Failed to Delete Invoice")

type InvoiceStore interface {
	CreateInvoice(ctx context.Context, inv invoice.Invoice) (string, error)
	UpdateInvoice(ctx context.Context, inv invoice.Invoice) (int64, error)
	DeleteInvoice(ctx context.Context, id string) (int64, error)
	ListInvoices(ctx context.Context) ([]invoice.Summary, error)
	GetInvoice(ctx context.Context, id string) (*invoice.Summary, error)
}

// ViewCache holds rendered views by path. Store only succeeds while the
// path's generation still matches the one read before computing the view.
type ViewCache interface {
	RevalidatePath(ctx context.Context, path string) error
	Load(ctx context.Context, path string, dst any) (bool, error)
	Generation(ctx context.Context, path string) (int64, error)
	Store(ctx context.Context, path string, gen int64, v any) (bool, error)
}

// Notifier schedules follow-up work for a created invoice.
type Notifier interface {
	EnqueueInvoiceCreated(ctx context.Context, invoiceID string) error
}

type InvoiceService struct {
	store    InvoiceStore
	cache    ViewCache
	notifier Notifier
	cfg      *config.InvoicesConfig
	logger   *zerolog.Logger
	now      func() time.Time
}

// NewInvoiceService wires the invoice actions. notifier may be nil.
func NewInvoiceService(
	store InvoiceStore,
	cache ViewCache,
	notifier Notifier,
	cfg *config.InvoicesConfig,
	logger *zerolog.Logger,
) *InvoiceService {
	return &InvoiceService{
		store:    store,
		cache:    cache,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// log prefers the request-scoped logger carried by ctx.
func (s *InvoiceService) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return s.logger
}

// CreateInvoice validates raw, stores a new invoice dated today (UTC) and
// redirects to the invoice list. Validation failures are returned as
// errors; database failures become a message result.
func (s *InvoiceService) CreateInvoice(ctx context.Context, raw map[string]any) (ActionResult, error) {
	form, err := invoice.CreateInvoice.Parse(raw)
	if err != nil {
		return ActionResult{}, err
	}

	inv := invoice.Invoice{
		CustomerID: form.CustomerID,
		Amount:     form.AmountInCents(),
		Status:     form.Status,
		Date:       invoice.Today(s.now()),
	}

	id, err := s.store.CreateInvoice(ctx, inv)
	if err != nil {
		s.logPersistenceError(ctx, err, "create").
			Str("customer_id", inv.CustomerID).
			Msg(MsgCreateFailed)
		return Message(MsgCreateFailed), nil
	}

	s.log(ctx).Info().
		Str("invoice_id", id).
		Int64("amount", inv.Amount).
		Str("status", string(inv.Status)).
		Msg("invoice created")

	s.revalidateList(ctx)
	s.notifyCreated(ctx, id)

	return Redirect(s.cfg.ListPath), nil
}

// UpdateInvoice overwrites the customer, amount and status of invoice id.
// The invoice date is never changed.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, id string, raw map[string]any) (ActionResult, error) {
	form, err := invoice.UpdateInvoice.Parse(raw)
	if err != nil {
		return ActionResult{}, err
	}

	inv := invoice.Invoice{
		ID:         id,
		CustomerID: form.CustomerID,
		Amount:     form.AmountInCents(),
		Status:     form.Status,
	}

	rows, err := s.store.UpdateInvoice(ctx, inv)
	if err != nil {
		s.logPersistenceError(ctx, err, "update").
			Str("invoice_id", id).
			Msg(MsgUpdateFailed)
		return Message(MsgUpdateFailed), nil
	}

	if rows == 0 {
		s.log(ctx).Warn().Str("invoice_id", id).Msg("update matched no invoice")
	} else {
		s.log(ctx).Info().Str("invoice_id", id).Msg("invoice updated")
	}

	s.revalidateList(ctx)
	return Redirect(s.cfg.ListPath), nil
}

// DeleteInvoice removes invoice id. While deletion is disabled it fails
// with ErrDeleteDisabled without touching the database or the cache.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, id string) (ActionResult, error) {
	if !s.cfg.DeleteEnabled {
		return ActionResult{}, ErrDeleteDisabled
	}

	rows, err := s.store.DeleteInvoice(ctx, id)
	if err != nil {
		s.logPersistenceError(ctx, err, "delete").
			Str("invoice_id", id).
			Msg(MsgDeleteFailed)
		return Message(MsgDeleteFailed), nil
	}

	s.log(ctx).Info().
		Str("invoice_id", id).
		Int64("rows", rows).
		Msg("invoice deleted")

	s.revalidateList(ctx)
	return Message(MsgDeleted), nil
}

// ListInvoices returns the invoice list view, from cache when present.
func (s *InvoiceService) ListInvoices(ctx context.Context) ([]invoice.Summary, error) {
	var cached []invoice.Summary
	hit, err := s.cache.Load(ctx, s.cfg.ListPath, &cached)
	if err != nil {
		s.log(ctx).Warn().Err(err).Msg("invoice list cache unavailable")
	}
	if hit {
		return cached, nil
	}

	gen, genErr := s.cache.Generation(ctx, s.cfg.ListPath)
	if genErr != nil {
		s.log(ctx).Warn().Err(genErr).Msg("invoice list generation unavailable")
	}

	summaries, err := s.store.ListInvoices(ctx)
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []invoice.Summary{}
	}

	// Without a generation the snapshot cannot be checked against
	// concurrent writes, so it is served but not cached.
	if genErr != nil {
		return summaries, nil
	}
	if _, err := s.cache.Store(ctx, s.cfg.ListPath, gen, summaries); err != nil {
		s.log(ctx).Warn().Err(err).Msg("failed to cache invoice list")
	}
	return summaries, nil
}

func (s *InvoiceService) GetInvoice(ctx context.Context, id string) (*invoice.Summary, error) {
	return s.store.GetInvoice(ctx, id)
}

func (s *InvoiceService) logPersistenceError(ctx context.Context, err error, op string) *zerolog.Event {
	return s.log(ctx).Error().
		Err(err).
		Str("operation", op).
		Str("sql_code", string(sqlerr.ErrCode(err)))
}

// revalidateList drops the cached invoice list. A failure leaves a stale
// view until the TTL passes, so it is logged and not returned.
func (s *InvoiceService) revalidateList(ctx context.Context) {
	if err := s.cache.RevalidatePath(ctx, s.cfg.ListPath); err != nil {
		s.log(ctx).Error().
			Err(err).
			Str("path", s.cfg.ListPath).
			Msg("failed to revalidate invoice list")
	}
}

func (s *InvoiceService) notifyCreated(ctx context.Context, id string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.EnqueueInvoiceCreated(ctx, id); err != nil {
		s.log(ctx).Error().
			Err(err).
			Str("invoice_id", id).
			Msg("failed to enqueue invoice notification")
	}
}
