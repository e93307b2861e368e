package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// BackgroundSync periodically refreshes the product cache and pulls remote
// orders. Failures are logged and never stop the loop. The order pull goes
// through the cart so it never overlaps a cart operation; a tick that finds
// the cart busy is skipped.
type BackgroundSync struct {
	products *ProductCache
	cart     *CartManager
	interval time.Duration

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewBackgroundSync(products *ProductCache, cart *CartManager, interval time.Duration) *BackgroundSync {
	return &BackgroundSync{products: products, cart: cart, interval: interval}
}

// Start runs the loop until Stop is called or ctx ends.
func (b *BackgroundSync) Start(ctx context.Context) error {
	if b.interval <= 0 {
		return fmt.Errorf("background sync interval must be positive")
	}
	if !b.running.CompareAndSwap(false, true) {
		return fmt.Errorf("background sync is already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	b.mu.Lock()
	b.cancel = cancel
	b.done = done
	b.mu.Unlock()

	go func() {
		defer close(done)
		defer b.running.Store(false)
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.RunOnce(ctx)
			}
		}
	}()
	log.Info().Dur("interval", b.interval).Msg("background sync started")
	return nil
}

// Stop ends the loop and waits up to timeout for the running tick to finish.
func (b *BackgroundSync) Stop(timeout time.Duration) error {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		log.Error().Msg("time out stopping background sync")
		return fmt.Errorf("background sync did not stop within %s", timeout)
	}
}

// Running reports whether the loop is active.
func (b *BackgroundSync) Running() bool { return b.running.Load() }

// RunOnce performs one product sync (subject to the soft interval) and one
// order pull.
func (b *BackgroundSync) RunOnce(ctx context.Context) {
	if b.products != nil {
		if _, err := b.products.Sync(ctx); err != nil {
			log.Warn().Err(err).Msg("background product sync failed")
		}
	}
	if b.cart == nil {
		return
	}
	_, err := b.cart.SyncOrders(ctx)
	switch {
	case errors.Is(err, ErrBusy):
		log.Debug().Msg("cart busy, order sync skipped")
	case err != nil:
		log.Warn().Err(err).Msg("background order sync failed")
	}
}
