package models

import "time"

// Product is a catalog entry mirrored from the remote catalog.
// Rows are only ever written by the product sync; the order flow never creates them.
type Product struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	EAN       string    `gorm:"size:32;not null;uniqueIndex" json:"ean"`
	SKU       string    `gorm:"size:64" json:"sku,omitempty"`
	Name      string    `gorm:"not null;index" json:"name"`
	Price     float64   `gorm:"column:price_kr;type:decimal(10,2);not null" json:"price"`
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:false" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index;autoUpdateTime:false" json:"updated_at"`
}
