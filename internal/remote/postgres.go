package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/diewo77/fairscanner/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenPostgres connects to the remote Postgres database, retrying while it starts.
func OpenPostgres(dsn string, attempts int, wait time.Duration, debug bool) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("remote database DSN is empty")
	}
	if attempts < 1 {
		attempts = 1
	}
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var gdb *gorm.DB
	var err error
	for i := 0; i < attempts; i++ {
		gdb, err = gorm.Open(postgres.Open(dsn), cfg)
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i+1).Int("of", attempts).Msg("remote database not reachable, retrying")
		time.Sleep(wait)
	}
	if err != nil {
		return nil, wrapRemote("connect remote database", err)
	}
	if pingErr := gdb.Exec("SELECT 1").Error; pingErr != nil {
		return nil, wrapRemote("remote database ping", pingErr)
	}
	return gdb, nil
}

// PostgresSource reads the catalog and orders straight from the backend's
// database. It implements CatalogSource and OrderSource.
type PostgresSource struct {
	db       *gorm.DB
	pageSize int
}

// NewPostgresSource wraps an opened remote database.
func NewPostgresSource(db *gorm.DB, pageSize int) *PostgresSource {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &PostgresSource{db: db, pageSize: pageSize}
}

// FetchProducts returns one page of active products ordered by updated_at, id.
func (s *PostgresSource) FetchProducts(ctx context.Context, q ProductQuery) ([]models.Product, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = s.pageSize
	}
	query := s.db.WithContext(ctx).Where("active = ?", true)
	if q.UpdatedAfter != nil {
		query = query.Where("updated_at > ?", q.UpdatedAfter.UTC())
	}
	var rows []ProductRow
	err := query.Order("updated_at ASC, id ASC").Offset(q.Offset).Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, wrapRemote("fetch products", err)
	}
	products := make([]models.Product, 0, len(rows))
	for _, r := range rows {
		products = append(products, r.ToModel())
	}
	return products, nil
}

// ListOrders returns every remote order.
func (s *PostgresSource) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := s.pages(ctx, func(tx *gorm.DB) (int, error) {
		var rows []OrderRow
		if err := tx.Find(&rows).Error; err != nil {
			return 0, err
		}
		for _, r := range rows {
			orders = append(orders, r.ToModel())
		}
		return len(rows), nil
	})
	if err != nil {
		return nil, wrapRemote("list orders", err)
	}
	return orders, nil
}

// ListOrderItems returns every remote order item.
func (s *PostgresSource) ListOrderItems(ctx context.Context) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.pages(ctx, func(tx *gorm.DB) (int, error) {
		var rows []OrderItemRow
		if err := tx.Find(&rows).Error; err != nil {
			return 0, err
		}
		for _, r := range rows {
			items = append(items, r.ToModel())
		}
		return len(rows), nil
	})
	if err != nil {
		return nil, wrapRemote("list order items", err)
	}
	return items, nil
}

// pages calls read with successive pages until one comes back short.
func (s *PostgresSource) pages(ctx context.Context, read func(tx *gorm.DB) (int, error)) error {
	for offset := 0; ; offset += s.pageSize {
		tx := s.db.WithContext(ctx).Order("created_at ASC, id ASC").Offset(offset).Limit(s.pageSize)
		n, err := read(tx)
		if err != nil {
			return err
		}
		if n < s.pageSize {
			return nil
		}
	}
}
