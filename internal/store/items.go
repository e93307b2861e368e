package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/diewo77/fairscanner/internal/models"
	"gorm.io/gorm"
)

// itemOrder is the display order of cart lines: insertion order.
const itemOrder = "created_at ASC, rowid ASC"

// UpsertOrderItem adds item to its order. When the order already holds a line
// with the same EAN, that line's qty is increased by item.Qty and its id is
// returned; otherwise a new line is inserted with a fresh id.
func (s *Store) UpsertOrderItem(ctx context.Context, item models.OrderItem) (string, error) {
	item.EAN = strings.TrimSpace(item.EAN)
	item.Name = strings.TrimSpace(item.Name)
	if item.OrderID == "" || item.EAN == "" || item.Name == "" {
		return "", fmt.Errorf("%w (order_id, ean, name)", ErrMissingField)
	}
	if item.Qty < 1 {
		return "", ErrInvalidQty
	}
	var id string
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if _, err := editableOrder(tx, item.OrderID); err != nil {
			return err
		}
		var existing models.OrderItem
		res := tx.Where("order_id = ? AND ean = ?", item.OrderID, item.EAN).Limit(1).Find(&existing)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			id = existing.ID
			return tx.Model(&models.OrderItem{}).Where("id = ?", existing.ID).
				Update("qty", gorm.Expr("qty + ?", item.Qty)).Error
		}
		item.ID = s.newID()
		item.DiscountPercent = models.ClampDiscount(item.DiscountPercent)
		item.CreatedAt = s.timestamp()
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		id = item.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateOrderItemQty sets the qty of a line of orderID. Callers remove a line
// instead of setting a qty below one.
func (s *Store) UpdateOrderItemQty(ctx context.Context, orderID, id string, qty int) error {
	if qty < 1 {
		return ErrInvalidQty
	}
	return s.tx(ctx, func(tx *gorm.DB) error {
		if _, err := editableItem(tx, orderID, id); err != nil {
			return err
		}
		return tx.Model(&models.OrderItem{}).Where("id = ?", id).Update("qty", qty).Error
	})
}

// UpdateOrderItemDiscount stores the clamped discount percentage and its reason.
func (s *Store) UpdateOrderItemDiscount(ctx context.Context, orderID, id string, pct float64, reason string) error {
	return s.tx(ctx, func(tx *gorm.DB) error {
		if _, err := editableItem(tx, orderID, id); err != nil {
			return err
		}
		return tx.Model(&models.OrderItem{}).Where("id = ?", id).Updates(map[string]any{
			"discount_percent": models.ClampDiscount(pct),
			"discount_reason":  strings.TrimSpace(reason),
		}).Error
	})
}

// DeleteOrderItem removes a line of orderID.
func (s *Store) DeleteOrderItem(ctx context.Context, orderID, id string) error {
	return s.tx(ctx, func(tx *gorm.DB) error {
		if _, err := editableItem(tx, orderID, id); err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.OrderItem{}).Error
	})
}

// ClearOrderItems removes every line of an order and returns how many were deleted.
func (s *Store) ClearOrderItems(ctx context.Context, orderID string) (int64, error) {
	var n int64
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if _, err := editableOrder(tx, orderID); err != nil {
			return err
		}
		res := tx.Where("order_id = ?", orderID).Delete(&models.OrderItem{})
		n = res.RowsAffected
		return res.Error
	})
	return n, err
}

// GetOrderItems returns the lines of an order in the order they were added.
func (s *Store) GetOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order(itemOrder).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetOrderTotal aggregates Σ qty*price*(1-discount/100) in SQL, unrounded.
// It evaluates the same expression as models.OrderItem.LineTotal.
func (s *Store) GetOrderTotal(ctx context.Context, orderID string) (float64, error) {
	var total float64
	row := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(qty * price_kr * (1 - discount_percent / 100.0)), 0) FROM order_items WHERE order_id = ?`,
		orderID,
	).Row()
	if err := row.Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
