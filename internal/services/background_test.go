package services

import (
	"context"
	"testing"
	"time"

	"github.com/diewo77/fairscanner/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackgroundSyncRunOnce(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	t0 := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	f.orders.orders = []models.Order{{ID: "r1", CustomerName: "Acme AB", Status: models.OrderStatusFinalized, CreatedAt: t0}}

	bg := NewBackgroundSync(f.products, f.cart, time.Minute)
	bg.RunOnce(ctx)

	n, err := f.products.ProductCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	o, err := f.store.GetOrder(ctx, "r1")
	require.NoError(t, err)
	assert.NotNil(t, o)
}

func TestBackgroundSyncSkipsOrdersWhileCartBusy(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	f.orders.orders = []models.Order{{ID: "r1", CustomerName: "Acme AB", Status: models.OrderStatusDraft, CreatedAt: time.Now().UTC()}}

	f.cart.busy.Store(true)
	NewBackgroundSync(f.products, f.cart, time.Minute).RunOnce(ctx)
	f.cart.busy.Store(false)

	o, err := f.store.GetOrder(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, o)
}

func TestBackgroundSyncStartStop(t *testing.T) {
	f := newCartFixture(t)
	bg := NewBackgroundSync(f.products, f.cart, 10*time.Millisecond)

	require.NoError(t, bg.Start(context.Background()))
	assert.Error(t, bg.Start(context.Background()))
	assert.Eventually(t, func() bool { return f.catalog.Calls() > 0 }, time.Second, 5*time.Millisecond)

	require.NoError(t, bg.Stop(time.Second))
	assert.False(t, bg.Running())
	require.NoError(t, bg.Stop(time.Second))
}

func TestBackgroundSyncRequiresInterval(t *testing.T) {
	assert.Error(t, NewBackgroundSync(nil, nil, 0).Start(context.Background()))
}
