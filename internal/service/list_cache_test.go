package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/go-invoices/internal/config"
	"github.com/deppfellow/go-invoices/internal/lib/cache"
	"github.com/deppfellow/go-invoices/internal/model/invoice"
)

// pausingStore keeps invoices in memory. When paused is set, the next
// ListInvoices takes its snapshot, closes paused and waits for resume.
type pausingStore struct {
	mu       sync.Mutex
	invoices []invoice.Summary

	paused chan struct{}
	resume chan struct{}
}

func (p *pausingStore) CreateInvoice(_ context.Context, inv invoice.Invoice) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	inv.ID = "inv-1"
	p.invoices = append(p.invoices, invoice.Summary{Invoice: inv})
	return inv.ID, nil
}

func (p *pausingStore) UpdateInvoice(context.Context, invoice.Invoice) (int64, error) {
	return 0, nil
}

func (p *pausingStore) DeleteInvoice(context.Context, string) (int64, error) {
	return 0, nil
}

func (p *pausingStore) ListInvoices(context.Context) ([]invoice.Summary, error) {
	p.mu.Lock()
	snapshot := append([]invoice.Summary(nil), p.invoices...)
	paused, resume := p.paused, p.resume
	p.paused = nil
	p.mu.Unlock()

	if paused != nil {
		close(paused)
		<-resume
	}
	return snapshot, nil
}

func (p *pausingStore) GetInvoice(context.Context, string) (*invoice.Summary, error) {
	return nil, nil
}

func TestListInvoicesDoesNotCacheSnapshotTakenBeforeCreate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := zerolog.Nop()
	cfg := config.DefaultInvoicesConfig()
	store := &pausingStore{
		paused: make(chan struct{}),
		resume: make(chan struct{}),
	}
	paused := store.paused
	svc := NewInvoiceService(store, cache.NewPathCache(client, time.Minute, &logger), nil, cfg, &logger)
	ctx := context.Background()

	type listResult struct {
		list []invoice.Summary
		err  error
	}
	done := make(chan listResult, 1)
	go func() {
		list, err := svc.ListInvoices(ctx)
		done <- listResult{list: list, err: err}
	}()

	select {
	case <-paused:
	case <-time.After(2 * time.Second):
		t.Fatal("list never reached the store")
	}

	result, err := svc.CreateInvoice(ctx, validFields())
	require.NoError(t, err)
	assert.Equal(t, Redirect(cfg.ListPath), result)

	close(store.resume)
	var first listResult
	select {
	case first = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("list did not finish")
	}
	require.NoError(t, first.err)
	assert.Empty(t, first.list)
	assert.False(t, mr.Exists(cache.Key(cfg.ListPath)))

	list, err := svc.ListInvoices(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "inv-1", list[0].ID)
	assert.True(t, mr.Exists(cache.Key(cfg.ListPath)))

	cached, err := svc.ListInvoices(ctx)
	require.NoError(t, err)
	assert.Equal(t, list, cached)
}
