package models

import (
	"errors"
	"math"
	"time"
)

// OrderStatus represents the status of an order.
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusFinalized OrderStatus = "finalized"
	OrderStatusSyncError OrderStatus = "sync_error"
)

// FirstOrderNumber is assigned to the first order of an empty store.
const FirstOrderNumber = 1001

// ErrInvalidTransition is returned when a status change is not allowed.
var ErrInvalidTransition = errors.New("invalid order status transition")

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusDraft, OrderStatusFinalized, OrderStatusSyncError:
		return true
	}
	return false
}

// CanTransitionTo reports whether an order in status s may move to next.
// Finalized is terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !next.Valid() {
		return false
	}
	switch s {
	case OrderStatusDraft, OrderStatusSyncError:
		return true
	case OrderStatusFinalized:
		return next == OrderStatusFinalized
	}
	return false
}

// Order is a sales order captured on the device.
type Order struct {
	ID            string      `gorm:"primaryKey;size:36" json:"id"`
	OrderNumber   int         `gorm:"not null;uniqueIndex" json:"order_number"`
	FairName      string      `json:"fair_name,omitempty"`
	SalesRep      string      `json:"sales_rep,omitempty"`
	CustomerName  string      `gorm:"not null" json:"customer_name"`
	CustomerEmail string      `json:"customer_email,omitempty"`
	CustomerID    *string     `gorm:"size:36" json:"customer_id,omitempty"`
	DeliveryDate  *string     `gorm:"size:10" json:"delivery_date,omitempty"` // YYYY-MM-DD
	Note          string      `gorm:"type:text" json:"note,omitempty"`
	Status        OrderStatus `gorm:"size:20;not null;index" json:"status"`
	CreatedAt     time.Time   `gorm:"not null;autoCreateTime:false" json:"created_at"`
	SyncedAt      *time.Time  `json:"synced_at,omitempty"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// IsDraft returns true if the order is still being built.
func (o *Order) IsDraft() bool {
	return o.Status == OrderStatusDraft
}

// IsFinal returns true if the order has been finalized.
func (o *Order) IsFinal() bool {
	return o.Status == OrderStatusFinalized
}

// CanEdit returns true if items and header fields may still change.
func (o *Order) CanEdit() bool {
	return o.Status != OrderStatusFinalized
}

// Totals computes the totals of the loaded items.
func (o *Order) Totals() Totals {
	return ComputeTotals(o.Items)
}

// OrderItem represents a line of an order.
// ProductID is nil for manually entered items.
type OrderItem struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	OrderID         string    `gorm:"size:36;not null;index" json:"order_id"`
	ProductID       *string   `gorm:"size:36" json:"product_id,omitempty"`
	EAN             string    `gorm:"size:32;not null" json:"ean"`
	SKU             string    `gorm:"size:64" json:"sku,omitempty"`
	Name            string    `gorm:"not null" json:"name"`
	Qty             int       `gorm:"not null" json:"qty"`
	Price           float64   `gorm:"column:price_kr;type:decimal(10,2);not null" json:"price"`
	DiscountPercent float64   `gorm:"not null" json:"discount_percent"`
	DiscountReason  string    `json:"discount_reason,omitempty"`
	CreatedAt       time.Time `gorm:"not null;autoCreateTime:false" json:"created_at"`
}

// Subtotal is the pre-discount amount of the line.
func (item *OrderItem) Subtotal() float64 {
	return float64(item.Qty) * item.Price
}

// DiscountAmount is the amount taken off the line by its discount.
func (item *OrderItem) DiscountAmount() float64 {
	return float64(item.Qty) * item.Price * item.DiscountPercent / 100
}

// LineTotal is the discounted amount of the line, unrounded.
// The store's SQL aggregate evaluates the same expression.
func (item *OrderItem) LineTotal() float64 {
	return float64(item.Qty) * item.Price * (1 - item.DiscountPercent/100)
}

// Totals of a set of order items. Values are kept in full precision;
// round with RoundMoney only when presenting them.
type Totals struct {
	Subtotal  float64 `json:"subtotal"`
	Discount  float64 `json:"discount"`
	Total     float64 `json:"total"`
	ItemCount int     `json:"item_count"`
}

// ComputeTotals accumulates the totals of items without intermediate rounding.
func ComputeTotals(items []OrderItem) Totals {
	var t Totals
	for i := range items {
		t.Subtotal += items[i].Subtotal()
		t.Discount += items[i].DiscountAmount()
		t.Total += items[i].LineTotal()
		t.ItemCount += items[i].Qty
	}
	return t
}

// ClampDiscount bounds a discount percentage to [0, 100].
func ClampDiscount(pct float64) float64 {
	if math.IsNaN(pct) || pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
