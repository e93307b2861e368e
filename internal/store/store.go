// Package store is the local persistence layer: a typed repository over the
// products, customers, orders and order_items tables.
//
// Every public method runs in a single transaction. Combined with the
// single-connection pool opened by package db, concurrent callers are
// serialized at this boundary.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/diewo77/fairscanner/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrItemNotFound   = errors.New("order item not found")
	ErrOrderFinalized = errors.New("order is finalized")
	ErrInvalidQty     = errors.New("quantity must be at least 1")
	ErrMissingField   = errors.New("required field missing")
)

// Store is the local database repository.
type Store struct {
	db    *gorm.DB
	now   func() time.Time
	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the id generator (uuid v4 by default).
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// New creates a Store over an opened and migrated database.
func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:    db,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

func (s *Store) tx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// loadOrder fetches an order inside tx, mapping a miss to ErrOrderNotFound.
func loadOrder(tx *gorm.DB, id string) (*models.Order, error) {
	var order models.Order
	if err := tx.Where("id = ?", id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// editableOrder is loadOrder plus the finalized check.
func editableOrder(tx *gorm.DB, id string) (*models.Order, error) {
	order, err := loadOrder(tx, id)
	if err != nil {
		return nil, err
	}
	if !order.CanEdit() {
		return nil, ErrOrderFinalized
	}
	return order, nil
}

// editableItem fetches a line of orderID whose order can still be edited.
// A line belonging to another order is reported as not found.
func editableItem(tx *gorm.DB, orderID, id string) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := tx.Where("id = ? AND order_id = ?", id, orderID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	if _, err := editableOrder(tx, item.OrderID); err != nil {
		return nil, err
	}
	return &item, nil
}
