package remote

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/diewo77/fairscanner/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// The source only issues portable SQL, so an in-memory sqlite database with
// the remote table layout stands in for Postgres.
func setupRemoteDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Open(db.MemoryDSN(t.Name()), false)
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&ProductRow{}, &OrderRow{}, &OrderItemRow{}))
	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}

func TestPostgresSourceFetchProducts(t *testing.T) {
	gdb := setupRemoteDB(t)
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	sku := "SKU001"
	rows := []ProductRow{
		{ID: "p1", EAN: "4007817327320", SKU: &sku, Name: "Pump", PriceKr: 150, Active: true, CreatedAt: t0, UpdatedAt: t0},
		{ID: "p2", EAN: "4007817327321", Name: "Valve", PriceKr: 85, Active: true, CreatedAt: t0, UpdatedAt: t0.Add(time.Hour)},
		{ID: "p3", EAN: "4007817327322", Name: "Pipe", PriceKr: 12, Active: false, CreatedAt: t0, UpdatedAt: t0.Add(2 * time.Hour)},
		{ID: "p4", EAN: "4007817327323", Name: "Panel", PriceKr: 250, Active: true, CreatedAt: t0, UpdatedAt: t0.Add(3 * time.Hour)},
	}
	require.NoError(t, gdb.Create(&rows).Error)

	src := NewPostgresSource(gdb, 2)
	ctx := context.Background()

	page, err := src.FetchProducts(ctx, ProductQuery{})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "p1", page[0].ID)
	assert.Equal(t, "SKU001", page[0].SKU)
	assert.Equal(t, "p2", page[1].ID)

	page, err = src.FetchProducts(ctx, ProductQuery{Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "p4", page[0].ID)

	after := t0.Add(time.Hour)
	page, err = src.FetchProducts(ctx, ProductQuery{UpdatedAfter: &after})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "p4", page[0].ID)
}

func TestPostgresSourceListOrders(t *testing.T) {
	gdb := setupRemoteDB(t)
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		o := OrderRow{ID: fmt.Sprintf("o%d", i), CustomerName: "Acme", Status: "finalized", CreatedAt: t0.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, gdb.Create(&o).Error)
		it := OrderItemRow{ID: fmt.Sprintf("i%d", i), OrderID: o.ID, EAN: "4007817327320", Name: "Pump", Qty: i + 1, PriceKr: 150, CreatedAt: o.CreatedAt}
		require.NoError(t, gdb.Create(&it).Error)
	}

	src := NewPostgresSource(gdb, 2)
	orders, err := src.ListOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 5)
	assert.Equal(t, "o0", orders[0].ID)
	assert.Equal(t, "o4", orders[4].ID)

	items, err := src.ListOrderItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 5)
	assert.Equal(t, 5, items[4].Qty)
}

func TestOpenPostgresEmptyDSN(t *testing.T) {
	_, err := OpenPostgres("", 1, 0, false)
	require.Error(t, err)
}
