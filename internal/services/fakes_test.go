package services

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/diewo77/fairscanner/internal/db"
	"github.com/diewo77/fairscanner/internal/models"
	"github.com/diewo77/fairscanner/internal/remote"
	"github.com/diewo77/fairscanner/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	gdb, err := db.Open(db.MemoryDSN(t.Name()), false)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })
	return store.New(gdb)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeCatalog serves products the way the remote query does: active only,
// updated_at > watermark, ordered by updated_at then id, paged.
type fakeCatalog struct {
	mu       sync.Mutex
	products []models.Product
	err      error
	calls    int
}

func (f *fakeCatalog) FetchProducts(_ context.Context, q remote.ProductQuery) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var rows []models.Product
	for _, p := range f.products {
		if !p.Active {
			continue
		}
		if q.UpdatedAfter != nil && !p.UpdatedAt.After(*q.UpdatedAfter) {
			continue
		}
		rows = append(rows, p)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].UpdatedAt.Equal(rows[j].UpdatedAt) {
			return rows[i].UpdatedAt.Before(rows[j].UpdatedAt)
		}
		return rows[i].ID < rows[j].ID
	})
	if q.Offset >= len(rows) {
		return []models.Product{}, nil
	}
	end := q.Offset + q.Limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[q.Offset:end], nil
}

func (f *fakeCatalog) set(products ...models.Product) {
	f.mu.Lock()
	f.products = products
	f.mu.Unlock()
}

func (f *fakeCatalog) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeFinalizer struct {
	mu       sync.Mutex
	resp     *remote.FinalizeResponse
	err      error
	requests []remote.FinalizeRequest
	// during runs inside the call, before the answer is returned.
	during func(req remote.FinalizeRequest)
}

func (f *fakeFinalizer) FinalizeOrder(_ context.Context, req remote.FinalizeRequest) (*remote.FinalizeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.during != nil {
		f.during(req)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeFinalizer) fail(err error) {
	f.mu.Lock()
	f.err, f.resp = err, nil
	f.mu.Unlock()
}

func (f *fakeFinalizer) succeed(orderID string) {
	f.mu.Lock()
	f.err = nil
	f.resp = &remote.FinalizeResponse{Success: true, OrderID: orderID, CSVURL: "https://files.example.com/" + orderID + ".csv"}
	f.mu.Unlock()
}

type fakeOrders struct {
	orders []models.Order
	items  []models.OrderItem
	err    error
}

func (f *fakeOrders) ListOrders(context.Context) ([]models.Order, error) {
	return f.orders, f.err
}

func (f *fakeOrders) ListOrderItems(context.Context) ([]models.OrderItem, error) {
	return f.items, f.err
}

type staticUser string

func (u staticUser) UserEmail(context.Context) string { return string(u) }

func catalogProduct(id, ean, name string, price float64, updated time.Time) models.Product {
	return models.Product{ID: id, EAN: ean, SKU: "SKU-" + id, Name: name, Price: price, Active: true, CreatedAt: updated, UpdatedAt: updated}
}

type cartFixture struct {
	store     *store.Store
	catalog   *fakeCatalog
	finalizer *fakeFinalizer
	orders    *fakeOrders
	clock     *fakeClock
	products  *ProductCache
	gateway   *SyncGateway
	cart      *CartManager
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()
	f := &cartFixture{
		store:     newTestStore(t),
		catalog:   &fakeCatalog{},
		finalizer: &fakeFinalizer{},
		orders:    &fakeOrders{},
		clock:     newFakeClock(),
	}
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f.catalog.set(
		catalogProduct("p1", "4007817327320", "Industrial Pump 2000", 150, t0),
		catalogProduct("p2", "4007817327321", "Hydraulic Valve Set", 85.5, t0.Add(time.Minute)),
	)
	f.products = NewProductCache(f.store, f.catalog, ProductCacheConfig{PageSize: 10, Now: f.clock.Now})
	f.gateway = NewSyncGateway(f.store, f.finalizer, f.orders, time.Second)
	f.cart = NewCartManager(f.store, f.products, f.gateway, staticUser("rep@example.com"), CartConfig{
		FairName: "Elmia 2025",
		SalesRep: "Anna",
		Now:      f.clock.Now,
	})
	return f
}
