package remote

import (
	"strings"
	"time"

	"github.com/diewo77/fairscanner/internal/models"
)

// ProductRow is a row of the remote products table.
type ProductRow struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	EAN       string    `json:"ean"`
	SKU       *string   `json:"sku"`
	Name      string    `json:"name"`
	PriceKr   float64   `gorm:"column:price_kr" json:"price_kr"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProductRow) TableName() string { return "products" }

func (r ProductRow) ToModel() models.Product {
	return models.Product{
		ID:        r.ID,
		EAN:       strings.TrimSpace(r.EAN),
		SKU:       deref(r.SKU),
		Name:      r.Name,
		Price:     r.PriceKr,
		Active:    r.Active,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

// OrderRow is a row of the remote orders table. The backend does not number
// orders; OrderNumber is only set by sources that carry one.
type OrderRow struct {
	ID            string     `gorm:"primaryKey" json:"id"`
	OrderNumber   *int       `json:"order_number,omitempty"`
	FairName      *string    `json:"fair_name"`
	SalesRep      *string    `json:"sales_rep"`
	CustomerName  string     `json:"customer_name"`
	CustomerEmail *string    `json:"customer_email"`
	CustomerID    *string    `json:"customer_id"`
	DeliveryDate  *string    `json:"delivery_date"`
	Note          *string    `json:"note"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	SyncedAt      *time.Time `json:"synced_at"`
}

func (OrderRow) TableName() string { return "orders" }

func (r OrderRow) ToModel() models.Order {
	o := models.Order{
		ID:            r.ID,
		FairName:      deref(r.FairName),
		SalesRep:      deref(r.SalesRep),
		CustomerName:  r.CustomerName,
		CustomerEmail: deref(r.CustomerEmail),
		CustomerID:    r.CustomerID,
		DeliveryDate:  dateOnly(r.DeliveryDate),
		Note:          deref(r.Note),
		Status:        models.OrderStatus(r.Status),
		CreatedAt:     r.CreatedAt.UTC(),
	}
	if r.OrderNumber != nil {
		o.OrderNumber = *r.OrderNumber
	}
	if r.SyncedAt != nil {
		t := r.SyncedAt.UTC()
		o.SyncedAt = &t
	}
	return o
}

// OrderItemRow is a row of the remote order_items table.
type OrderItemRow struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	OrderID         string    `json:"order_id"`
	ProductID       *string   `json:"product_id"`
	EAN             string    `json:"ean"`
	SKU             *string   `json:"sku"`
	Name            string    `json:"name"`
	Qty             int       `json:"qty"`
	PriceKr         float64   `gorm:"column:price_kr" json:"price_kr"`
	DiscountPercent *float64  `json:"discount_percent"`
	DiscountReason  *string   `json:"discount_reason"`
	CreatedAt       time.Time `json:"created_at"`
}

func (OrderItemRow) TableName() string { return "order_items" }

func (r OrderItemRow) ToModel() models.OrderItem {
	item := models.OrderItem{
		ID:             r.ID,
		OrderID:        r.OrderID,
		ProductID:      r.ProductID,
		EAN:            strings.TrimSpace(r.EAN),
		SKU:            deref(r.SKU),
		Name:           r.Name,
		Qty:            r.Qty,
		Price:          r.PriceKr,
		DiscountReason: deref(r.DiscountReason),
		CreatedAt:      r.CreatedAt.UTC(),
	}
	if r.DiscountPercent != nil {
		item.DiscountPercent = *r.DiscountPercent
	}
	return item
}

// FinalizeRequest is the body of the finalize procedure.
type FinalizeRequest struct {
	Order        FinalizeOrder     `json:"order"`
	Items        []FinalizeItem    `json:"items"`
	Customer     *FinalizeCustomer `json:"customer,omitempty"`
	UserEmail    string            `json:"user_email"`
	UserFairName string            `json:"user_fair_name,omitempty"`
}

// FinalizeOrder is the order header sent to the finalize procedure.
type FinalizeOrder struct {
	ID            string `json:"id"`
	FairName      string `json:"fair_name,omitempty"`
	SalesRep      string `json:"sales_rep,omitempty"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email,omitempty"`
	Note          string `json:"note,omitempty"`
}

// FinalizeItem is one line; the price travels in integer minor units.
type FinalizeItem struct {
	EAN             string  `json:"ean"`
	SKU             string  `json:"sku,omitempty"`
	Name            string  `json:"name"`
	Qty             int     `json:"qty"`
	PriceCents      int64   `json:"price_cents"`
	DiscountPercent float64 `json:"discount_percent,omitempty"`
}

// FinalizeCustomer is sent whenever the order has a customer name, with or without email.
type FinalizeCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// FinalizeResponse is the answer of the finalize procedure.
type FinalizeResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id"`
	CSVURL  string `json:"csv_url,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// dateOnly keeps the YYYY-MM-DD part of a date column, which some drivers
// render as a full timestamp.
func dateOnly(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	if len(v) > 10 {
		v = v[:10]
	}
	return &v
}
