package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/fairscanner/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var remoteItemColumns = []string{
	"order_id", "product_id", "ean", "sku", "name", "qty", "price_kr", "discount_percent", "discount_reason",
}

// ReconcileResult reports what UpsertRemoteOrder changed.
type ReconcileResult struct {
	Created      bool
	ItemsWritten int
	ItemsPruned  int64
	ItemsSkipped int
}

// UpsertRemoteOrder merges an order pulled from the remote backend, keyed by the
// remote ids of the order and of each item. This differs from the cart's
// upsert-by-EAN: remote rows replace local rows that share their id.
//
// A local order number is never changed; a new order keeps the remote number
// unless it is already taken locally. A locally finalized order never moves
// back to another status. A remote item replaces any local line of the same
// order with its EAN, so an order never holds two lines for one EAN. When the
// remote order is finalized its item set is authoritative and local lines
// missing from it are removed.
func (s *Store) UpsertRemoteOrder(ctx context.Context, order models.Order, items []models.OrderItem) (ReconcileResult, error) {
	var res ReconcileResult
	if order.ID == "" {
		return res, fmt.Errorf("remote order: %w (id)", ErrMissingField)
	}
	if !order.Status.Valid() {
		order.Status = models.OrderStatusDraft
	}
	remoteFinal := order.Status == models.OrderStatusFinalized
	err := s.tx(ctx, func(tx *gorm.DB) error {
		local, err := loadOrder(tx, order.ID)
		switch {
		case errors.Is(err, ErrOrderNotFound):
			if err := s.insertRemoteOrder(tx, &order); err != nil {
				return err
			}
			res.Created = true
		case err != nil:
			return err
		default:
			if err := updateFromRemote(tx, local, &order); err != nil {
				return err
			}
		}

		keep := make([]string, 0, len(items))
		for i := range items {
			it := items[i]
			if it.ID == "" || it.EAN == "" || it.Qty < 1 {
				res.ItemsSkipped++
				continue
			}
			it.OrderID = order.ID
			it.DiscountPercent = models.ClampDiscount(it.DiscountPercent)
			if it.CreatedAt.IsZero() {
				it.CreatedAt = s.timestamp()
			}
			it.CreatedAt = it.CreatedAt.UTC()
			dup := tx.Where("order_id = ? AND ean = ? AND id <> ?", order.ID, it.EAN, it.ID).Delete(&models.OrderItem{})
			if dup.Error != nil {
				return fmt.Errorf("replace local lines for %s: %w", it.EAN, dup.Error)
			}
			res.ItemsPruned += dup.RowsAffected
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns(remoteItemColumns),
			}).Create(&it).Error
			if err != nil {
				return fmt.Errorf("upsert remote item %s: %w", it.ID, err)
			}
			keep = append(keep, it.ID)
			res.ItemsWritten++
		}

		if remoteFinal {
			q := tx.Where("order_id = ?", order.ID)
			if len(keep) > 0 {
				q = q.Where("id NOT IN ?", keep)
			}
			del := q.Delete(&models.OrderItem{})
			if del.Error != nil {
				return del.Error
			}
			res.ItemsPruned += del.RowsAffected
		}
		return nil
	})
	if err != nil {
		return ReconcileResult{}, err
	}
	return res, nil
}

func (s *Store) insertRemoteOrder(tx *gorm.DB, order *models.Order) error {
	taken := false
	if order.OrderNumber > 0 {
		var n int64
		if err := tx.Model(&models.Order{}).Where("order_number = ?", order.OrderNumber).Count(&n).Error; err != nil {
			return err
		}
		taken = n > 0
	}
	if order.OrderNumber <= 0 || taken {
		num, err := nextOrderNumber(tx)
		if err != nil {
			return err
		}
		order.OrderNumber = num
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = s.timestamp()
	}
	order.CreatedAt = order.CreatedAt.UTC()
	if order.SyncedAt != nil {
		t := order.SyncedAt.UTC()
		order.SyncedAt = &t
	}
	return tx.Omit("Items").Create(order).Error
}

func updateFromRemote(tx *gorm.DB, local, remote *models.Order) error {
	status := remote.Status
	if local.IsFinal() {
		status = models.OrderStatusFinalized
	}
	customerID := local.CustomerID
	if customerID == nil {
		customerID = remote.CustomerID
	}
	cols := map[string]any{
		"fair_name":      remote.FairName,
		"sales_rep":      remote.SalesRep,
		"customer_name":  remote.CustomerName,
		"customer_email": remote.CustomerEmail,
		"customer_id":    customerID,
		"delivery_date":  remote.DeliveryDate,
		"note":           remote.Note,
		"status":         string(status),
	}
	if remote.SyncedAt != nil {
		cols["synced_at"] = remote.SyncedAt.UTC()
	}
	remote.OrderNumber = local.OrderNumber
	remote.Status = status
	return tx.Model(&models.Order{}).Where("id = ?", local.ID).Updates(cols).Error
}
