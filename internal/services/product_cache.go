package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/diewo77/fairscanner/internal/models"
	"github.com/diewo77/fairscanner/internal/remote"
	"github.com/diewo77/fairscanner/internal/store"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// DefaultSyncInterval is the soft minimum time between two product syncs.
const DefaultSyncInterval = time.Hour

// ProductSyncResult reports one product sync.
type ProductSyncResult struct {
	Skipped     bool       `json:"skipped"`
	Incremental bool       `json:"incremental"`
	Pages       int        `json:"pages"`
	Fetched     int        `json:"fetched"`
	Upserted    int        `json:"upserted"`
	Watermark   *time.Time `json:"watermark,omitempty"`
}

// ProductCacheConfig configures a ProductCache.
type ProductCacheConfig struct {
	Interval time.Duration
	PageSize int
	Now      func() time.Time
}

// ProductCache keeps the local product table fresh from the remote catalog.
// Only products changed after the newest local updated_at are pulled; an empty
// table pulls the whole active catalog page by page.
type ProductCache struct {
	store    *store.Store
	source   remote.CatalogSource
	interval time.Duration
	pageSize int
	now      func() time.Time

	group singleflight.Group

	mu       sync.Mutex
	lastSync time.Time
}

func NewProductCache(st *store.Store, source remote.CatalogSource, cfg ProductCacheConfig) *ProductCache {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSyncInterval
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = remote.DefaultPageSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ProductCache{
		store:    st,
		source:   source,
		interval: cfg.Interval,
		pageSize: cfg.PageSize,
		now:      cfg.Now,
	}
}

// LastSync returns the time of the last successful sync, zero if none.
func (c *ProductCache) LastSync() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSync
}

// Sync pulls remote changes unless the last successful sync is more recent
// than the configured interval.
func (c *ProductCache) Sync(ctx context.Context) (ProductSyncResult, error) {
	if c.fresh() {
		log.Debug().Msg("product sync skipped, within sync interval")
		return ProductSyncResult{Skipped: true}, nil
	}
	return c.run(ctx)
}

// ForceSync pulls remote changes regardless of the interval.
func (c *ProductCache) ForceSync(ctx context.Context) (ProductSyncResult, error) {
	return c.run(ctx)
}

func (c *ProductCache) fresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.lastSync.IsZero() && c.now().Sub(c.lastSync) < c.interval
}

// run collapses concurrent syncs into one.
func (c *ProductCache) run(ctx context.Context) (ProductSyncResult, error) {
	v, err, _ := c.group.Do("products", func() (any, error) {
		return c.pull(ctx)
	})
	if err != nil {
		log.Warn().Err(err).Msg("product sync failed")
		return ProductSyncResult{}, err
	}
	return v.(ProductSyncResult), nil
}

func (c *ProductCache) pull(ctx context.Context) (ProductSyncResult, error) {
	var res ProductSyncResult
	watermark, err := c.store.LatestProductUpdate(ctx)
	if err != nil {
		return res, fmt.Errorf("read product watermark: %w", err)
	}
	res.Watermark = watermark
	res.Incremental = watermark != nil

	var fetched []models.Product
	for offset := 0; ; offset += c.pageSize {
		page, err := c.source.FetchProducts(ctx, remote.ProductQuery{
			UpdatedAfter: watermark,
			Offset:       offset,
			Limit:        c.pageSize,
		})
		if err != nil {
			return res, err
		}
		res.Pages++
		fetched = append(fetched, page...)
		if len(page) < c.pageSize {
			break
		}
	}
	res.Fetched = len(fetched)

	if len(fetched) > 0 {
		n, err := c.store.UpsertProducts(ctx, fetched)
		if err != nil {
			return res, fmt.Errorf("store products: %w", err)
		}
		res.Upserted = n
	}

	c.mu.Lock()
	c.lastSync = c.now()
	c.mu.Unlock()

	log.Info().
		Bool("incremental", res.Incremental).
		Int("pages", res.Pages).
		Int("upserted", res.Upserted).
		Msg("product sync done")
	return res, nil
}

// FindProductByEAN looks the EAN up locally and, on a miss, syncs once and
// looks again. A failed sync is logged and reported as not found.
func (c *ProductCache) FindProductByEAN(ctx context.Context, ean string) (*models.Product, error) {
	ean = strings.TrimSpace(ean)
	if ean == "" {
		return nil, nil
	}
	p, err := c.store.FindProductByEAN(ctx, ean)
	if err != nil || p != nil {
		return p, err
	}
	if _, err := c.Sync(ctx); err != nil {
		return nil, nil
	}
	return c.store.FindProductByEAN(ctx, ean)
}

// SearchProducts searches locally and, when nothing matches, syncs once and
// searches again.
func (c *ProductCache) SearchProducts(ctx context.Context, query string) ([]models.Product, error) {
	found, err := c.store.SearchProducts(ctx, query)
	if err != nil || len(found) > 0 || strings.TrimSpace(query) == "" {
		return found, err
	}
	if _, err := c.Sync(ctx); err != nil {
		return found, nil
	}
	return c.store.SearchProducts(ctx, query)
}

// Products syncs if due and returns all active products ordered by name.
func (c *ProductCache) Products(ctx context.Context) ([]models.Product, error) {
	_, _ = c.Sync(ctx)
	return c.store.ListProducts(ctx)
}

// ProductCount returns the number of active products stored locally.
func (c *ProductCache) ProductCount(ctx context.Context) (int64, error) {
	return c.store.CountProducts(ctx)
}
