package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/fairscanner/internal/models"
	"gorm.io/gorm"
)

// NewOrder holds the header fields of an order to create.
type NewOrder struct {
	FairName      string
	SalesRep      string
	CustomerName  string
	CustomerEmail string
	DeliveryDate  *string
	Note          string
}

// OrderUpdate is a partial update: nil fields are left untouched.
// An empty DeliveryDate or CustomerID clears the column.
type OrderUpdate struct {
	FairName      *string
	SalesRep      *string
	CustomerName  *string
	CustomerEmail *string
	CustomerID    *string
	DeliveryDate  *string
	Note          *string
	Status        *models.OrderStatus
	SyncedAt      *time.Time
}

// IsEmpty reports whether the update sets no field.
func (u OrderUpdate) IsEmpty() bool {
	return len(u.columns()) == 0
}

func (u OrderUpdate) columns() map[string]any {
	cols := map[string]any{}
	setString := func(name string, v *string) {
		if v != nil {
			cols[name] = *v
		}
	}
	setNullable := func(name string, v *string) {
		if v == nil {
			return
		}
		if *v == "" {
			cols[name] = nil
		} else {
			cols[name] = *v
		}
	}
	setString("fair_name", u.FairName)
	setString("sales_rep", u.SalesRep)
	setString("customer_name", u.CustomerName)
	setString("customer_email", u.CustomerEmail)
	setString("note", u.Note)
	setNullable("customer_id", u.CustomerID)
	setNullable("delivery_date", u.DeliveryDate)
	if u.Status != nil {
		cols["status"] = string(*u.Status)
	}
	if u.SyncedAt != nil {
		cols["synced_at"] = u.SyncedAt.UTC()
	}
	return cols
}

// CreateOrder inserts a draft order. The next order number is read and
// assigned in the same transaction as the insert.
func (s *Store) CreateOrder(ctx context.Context, in NewOrder) (*models.Order, error) {
	order := &models.Order{
		ID:            s.newID(),
		FairName:      strings.TrimSpace(in.FairName),
		SalesRep:      strings.TrimSpace(in.SalesRep),
		CustomerName:  strings.TrimSpace(in.CustomerName),
		CustomerEmail: strings.TrimSpace(in.CustomerEmail),
		DeliveryDate:  nonEmpty(in.DeliveryDate),
		Note:          in.Note,
		Status:        models.OrderStatusDraft,
		CreatedAt:     s.timestamp(),
	}
	err := s.tx(ctx, func(tx *gorm.DB) error {
		num, err := nextOrderNumber(tx)
		if err != nil {
			return err
		}
		order.OrderNumber = num
		return tx.Omit("Items").Create(order).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return order, nil
}

func nextOrderNumber(tx *gorm.DB) (int, error) {
	var highest sql.NullInt64
	if err := tx.Model(&models.Order{}).Select("MAX(order_number)").Row().Scan(&highest); err != nil {
		return 0, err
	}
	if !highest.Valid {
		return models.FirstOrderNumber, nil
	}
	return int(highest.Int64) + 1, nil
}

// GetOrder returns the order with id, or nil when it does not exist.
func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderWithItems returns the order and its items in insertion order, or nil.
func (s *Store) GetOrderWithItems(ctx context.Context, id string) (*models.Order, error) {
	var order *models.Order
	err := s.tx(ctx, func(tx *gorm.DB) error {
		o, err := loadOrder(tx, id)
		if errors.Is(err, ErrOrderNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Order(itemOrder).Find(&o.Items).Error; err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns orders newest number first, optionally filtered by status.
func (s *Store) ListOrders(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	orders := []models.Order{}
	q := s.db.WithContext(ctx).Order("order_number DESC")
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListDraftOrders returns draft orders, most recently created first.
func (s *Store) ListDraftOrders(ctx context.Context) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.WithContext(ctx).
		Where("status = ?", string(models.OrderStatusDraft)).
		Order("created_at DESC, order_number DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrder applies a partial update. An empty update is a no-op; an unknown
// id returns ErrOrderNotFound. Status changes follow the order state machine and
// a finalized order only accepts synced_at (and a repeated finalized status).
func (s *Store) UpdateOrder(ctx context.Context, id string, u OrderUpdate) error {
	cols := u.columns()
	if len(cols) == 0 {
		return nil
	}
	return s.tx(ctx, func(tx *gorm.DB) error {
		order, err := loadOrder(tx, id)
		if err != nil {
			return err
		}
		if u.Status != nil && !order.Status.CanTransitionTo(*u.Status) {
			return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, order.Status, *u.Status)
		}
		if order.IsFinal() {
			for col := range cols {
				if col != "synced_at" && col != "status" {
					return ErrOrderFinalized
				}
			}
		}
		return tx.Model(&models.Order{}).Where("id = ?", id).Updates(cols).Error
	})
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
