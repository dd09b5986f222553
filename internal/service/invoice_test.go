package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/go-invoices/internal/config"
	"github.com/deppfellow/go-invoices/internal/model/invoice"
	"github.com/deppfellow/go-invoices/internal/validation"
)

// calls records the order collaborators were used in.
type calls []string

type fakeStore struct {
	calls *calls

	created   []invoice.Invoice
	updated   []invoice.Invoice
	deleted   []string
	summaries []invoice.Summary

	rows int64
	err  error
}

func (f *fakeStore) CreateInvoice(_ context.Context, inv invoice.Invoice) (string, error) {
	*f.calls = append(*f.calls, "store.create")
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, inv)
	return "inv-1", nil
}

func (f *fakeStore) UpdateInvoice(_ context.Context, inv invoice.Invoice) (int64, error) {
	*f.calls = append(*f.calls, "store.update")
	if f.err != nil {
		return 0, f.err
	}
	f.updated = append(f.updated, inv)
	return f.rows, nil
}

func (f *fakeStore) DeleteInvoice(_ context.Context, id string) (int64, error) {
	*f.calls = append(*f.calls, "store.delete")
	if f.err != nil {
		return 0, f.err
	}
	f.deleted = append(f.deleted, id)
	return f.rows, nil
}

func (f *fakeStore) ListInvoices(_ context.Context) ([]invoice.Summary, error) {
	*f.calls = append(*f.calls, "store.list")
	return f.summaries, f.err
}

func (f *fakeStore) GetInvoice(_ context.Context, id string) (*invoice.Summary, error) {
	*f.calls = append(*f.calls, "store.get")
	for _, s := range f.summaries {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, errors.New("no rows")
}

type fakeCache struct {
	calls *calls

	revalidated []string
	stored      map[string][]invoice.Summary
	err         error
	genErr      error
}

func (f *fakeCache) RevalidatePath(_ context.Context, path string) error {
	*f.calls = append(*f.calls, "cache.revalidate")
	f.revalidated = append(f.revalidated, path)
	return f.err
}

func (f *fakeCache) Load(_ context.Context, path string, dst any) (bool, error) {
	*f.calls = append(*f.calls, "cache.load")
	v, ok := f.stored[path]
	if !ok {
		return false, nil
	}
	*dst.(*[]invoice.Summary) = v
	return true, nil
}

func (f *fakeCache) Generation(context.Context, string) (int64, error) {
	*f.calls = append(*f.calls, "cache.generation")
	return int64(len(f.revalidated)), f.genErr
}

func (f *fakeCache) Store(_ context.Context, path string, gen int64, v any) (bool, error) {
	*f.calls = append(*f.calls, "cache.store")
	if gen != int64(len(f.revalidated)) {
		return false, nil
	}
	if f.stored == nil {
		f.stored = map[string][]invoice.Summary{}
	}
	f.stored[path] = v.([]invoice.Summary)
	return true, nil
}

type fakeNotifier struct {
	calls *calls
	ids   []string
	err   error
}

func (f *fakeNotifier) EnqueueInvoiceCreated(_ context.Context, id string) error {
	*f.calls = append(*f.calls, "notify")
	f.ids = append(f.ids, id)
	return f.err
}

type fixture struct {
	svc      *InvoiceService
	calls    *calls
	store    *fakeStore
	cache    *fakeCache
	notifier *fakeNotifier
	cfg      *config.InvoicesConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	c := &calls{}
	f := &fixture{
		calls:    c,
		store:    &fakeStore{calls: c, rows: 1},
		cache:    &fakeCache{calls: c},
		notifier: &fakeNotifier{calls: c},
		cfg:      config.DefaultInvoicesConfig(),
	}

	logger := zerolog.Nop()
	f.svc = NewInvoiceService(f.store, f.cache, f.notifier, f.cfg, &logger)
	f.svc.now = func() time.Time {
		// Late evening west of UTC is already the next day in UTC.
		return time.Date(2024, 3, 14, 21, 30, 0, 0, time.FixedZone("EST", -5*3600))
	}
	return f
}

func validFields() map[string]any {
	return map[string]any{
		"customerId": "cust-1",
		"amount":     "15.70",
		"status":     "pending",
	}
}

var dbErr = &pgconn.PgError{Code: "23503", ConstraintName: "invoices_customer_id_fkey", TableName: "invoices"}

func TestCreateInvoice(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.CreateInvoice(context.Background(), validFields())
	require.NoError(t, err)

	assert.Equal(t, Redirect("/dashboard/invoices"), result)
	assert.True(t, result.IsRedirect())
	assert.Equal(t, []invoice.Invoice{{
		CustomerID: "cust-1",
		Amount:     1570,
		Status:     invoice.StatusPending,
		Date:       "2024-03-15",
	}}, f.store.created)
	assert.Equal(t, []string{"/dashboard/invoices"}, f.cache.revalidated)
	assert.Equal(t, []string{"inv-1"}, f.notifier.ids)
	assert.Equal(t, calls{"store.create", "cache.revalidate", "notify"}, *f.calls)
}

func TestCreateInvoiceRoundsToCents(t *testing.T) {
	tests := []struct {
		amount any
		cents  int64
	}{
		{"0.005", 1},
		{"12.345", 1235},
		{"19.999", 2000},
		{0.1, 10},
		{"0", 0},
		{"1e2", 10000},
	}

	for _, tt := range tests {
		f := newFixture(t)
		fields := validFields()
		fields["amount"] = tt.amount

		_, err := f.svc.CreateInvoice(context.Background(), fields)
		require.NoError(t, err)
		require.Len(t, f.store.created, 1)
		assert.Equal(t, tt.cents, f.store.created[0].Amount, "amount %v", tt.amount)
	}
}

func TestCreateInvoiceValidationFailure(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.CreateInvoice(context.Background(), map[string]any{
		"customerId": "",
		"amount":     "abc",
		"status":     "overdue",
	})

	var verrs validation.CustomValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 3)
	assert.Equal(t, ActionResult{}, result)
	assert.Empty(t, *f.calls)
}

func TestCreateInvoiceDatabaseFailure(t *testing.T) {
	f := newFixture(t)
	f.store.err = dbErr

	result, err := f.svc.CreateInvoice(context.Background(), validFields())
	require.NoError(t, err)

	assert.Equal(t, Message("Database Error: Failed to Create Invoice"), result)
	assert.False(t, result.IsRedirect())
	assert.Equal(t, calls{"store.create"}, *f.calls)
}

func TestCreateInvoiceRedirectsWhenRevalidationFails(t *testing.T) {
	f := newFixture(t)
	f.cache.err = errors.New("redis down")

	result, err := f.svc.CreateInvoice(context.Background(), validFields())
	require.NoError(t, err)
	assert.Equal(t, Redirect("/dashboard/invoices"), result)
}

func TestCreateInvoiceIgnoresNotifierFailure(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("queue full")

	result, err := f.svc.CreateInvoice(context.Background(), validFields())
	require.NoError(t, err)
	assert.Equal(t, Redirect("/dashboard/invoices"), result)
}

func TestCreateInvoiceWithoutNotifier(t *testing.T) {
	f := newFixture(t)
	f.svc.notifier = nil

	_, err := f.svc.CreateInvoice(context.Background(), validFields())
	require.NoError(t, err)
	assert.Equal(t, calls{"store.create", "cache.revalidate"}, *f.calls)
}

func TestUpdateInvoice(t *testing.T) {
	f := newFixture(t)
	fields := validFields()
	fields["status"] = "paid"
	fields["date"] = "1999-01-01"
	fields["id"] = "someone-else"

	result, err := f.svc.UpdateInvoice(context.Background(), "inv-7", fields)
	require.NoError(t, err)

	assert.Equal(t, Redirect("/dashboard/invoices"), result)
	assert.Equal(t, []invoice.Invoice{{
		ID:         "inv-7",
		CustomerID: "cust-1",
		Amount:     1570,
		Status:     invoice.StatusPaid,
	}}, f.store.updated)
	assert.Equal(t, calls{"store.update", "cache.revalidate"}, *f.calls)
}

func TestUpdateInvoiceNoMatchingRow(t *testing.T) {
	f := newFixture(t)
	f.store.rows = 0

	result, err := f.svc.UpdateInvoice(context.Background(), "missing", validFields())
	require.NoError(t, err)
	assert.Equal(t, Redirect("/dashboard/invoices"), result)
	assert.Equal(t, []string{"/dashboard/invoices"}, f.cache.revalidated)
}

func TestUpdateInvoiceValidationFailure(t *testing.T) {
	f := newFixture(t)
	fields := validFields()
	delete(fields, "amount")

	_, err := f.svc.UpdateInvoice(context.Background(), "inv-7", fields)

	var verrs validation.CustomValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "amount", verrs[0].Field)
	assert.Empty(t, *f.calls)
}

func TestUpdateInvoiceDatabaseFailure(t *testing.T) {
	f := newFixture(t)
	f.store.err = &pgconn.PgError{Code: "22P02"}

	result, err := f.svc.UpdateInvoice(context.Background(), "not-a-uuid", validFields())
	require.NoError(t, err)
	assert.Equal(t, Message("Database Error Failed to Update Invoice"), result)
	assert.Empty(t, f.cache.revalidated)
}

func TestDeleteInvoiceDisabled(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.DeleteInvoice(context.Background(), "inv-1")

	require.ErrorIs(t, err, ErrDeleteDisabled)
	assert.EqualError(t, err, "Failed to Delete Invoice")
	assert.Equal(t, ActionResult{}, result)
	assert.Empty(t, *f.calls)
}

func TestDeleteInvoiceEnabled(t *testing.T) {
	f := newFixture(t)
	f.cfg.DeleteEnabled = true

	result, err := f.svc.DeleteInvoice(context.Background(), "inv-1")
	require.NoError(t, err)

	assert.Equal(t, Message("Deleted Invoice"), result)
	assert.Equal(t, []string{"inv-1"}, f.store.deleted)
	assert.Equal(t, calls{"store.delete", "cache.revalidate"}, *f.calls)
}

func TestDeleteInvoiceDatabaseFailure(t *testing.T) {
	f := newFixture(t)
	f.cfg.DeleteEnabled = true
	f.store.err = errors.New("connection reset")

	result, err := f.svc.DeleteInvoice(context.Background(), "inv-1")
	require.NoError(t, err)

	assert.Equal(t, Message("Database Error: Failed to Delete Invoice."), result)
	assert.Equal(t, calls{"store.delete"}, *f.calls)
}

func TestListInvoicesCachesAndRevalidates(t *testing.T) {
	f := newFixture(t)
	f.store.summaries = []invoice.Summary{{Invoice: invoice.Invoice{ID: "inv-1"}}}
	ctx := context.Background()

	list, err := f.svc.ListInvoices(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.ListInvoices(ctx)
	require.NoError(t, err)
	assert.Equal(t, calls{"cache.load", "cache.generation", "store.list", "cache.store", "cache.load"}, *f.calls)
}

func TestListInvoicesSkipsCacheWithoutGeneration(t *testing.T) {
	f := newFixture(t)
	f.cache.genErr = errors.New("redis down")
	f.store.summaries = []invoice.Summary{{Invoice: invoice.Invoice{ID: "inv-1"}}}

	list, err := f.svc.ListInvoices(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Empty(t, f.cache.stored)
	assert.Equal(t, calls{"cache.load", "cache.generation", "store.list"}, *f.calls)
}

func TestListInvoicesEmpty(t *testing.T) {
	f := newFixture(t)

	list, err := f.svc.ListInvoices(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestMessagesAreVerbatim(t *testing.T) {
	assert.Equal(t, "Database Error: Failed to Create Invoice", MsgCreateFailed)
	assert.Equal(t, "Database Error Failed to Update Invoice", MsgUpdateFailed)
	assert.Equal(t, "Deleted Invoice", MsgDeleted)
	assert.Equal(t, "Database Error: Failed to Delete Invoice.", MsgDeleteFailed)
}
