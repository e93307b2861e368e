package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/fairscanner/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SearchLimit caps the number of rows SearchProducts returns.
const SearchLimit = 50

var productUpsertColumns = []string{"ean", "sku", "name", "price_kr", "active", "created_at", "updated_at"}

// UpsertProducts inserts or replaces products by id and returns how many rows were written.
// A product whose EAN now belongs to a different id replaces the old row, keeping ean unique.
func (s *Store) UpsertProducts(ctx context.Context, products []models.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}
	for i := range products {
		if products[i].ID == "" || products[i].EAN == "" {
			return 0, fmt.Errorf("product %d: %w (id, ean)", i, ErrMissingField)
		}
	}
	err := s.tx(ctx, func(tx *gorm.DB) error {
		for i := range products {
			p := products[i]
			p.CreatedAt = p.CreatedAt.UTC()
			p.UpdatedAt = p.UpdatedAt.UTC()
			if err := tx.Where("ean = ? AND id <> ?", p.EAN, p.ID).Delete(&models.Product{}).Error; err != nil {
				return err
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns(productUpsertColumns),
			}).Create(&p).Error
			if err != nil {
				return fmt.Errorf("upsert product %s: %w", p.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(products), nil
}

// FindProductByEAN returns the active product with the given EAN, or nil when none matches.
func (s *Store) FindProductByEAN(ctx context.Context, ean string) (*models.Product, error) {
	ean = strings.TrimSpace(ean)
	if ean == "" {
		return nil, nil
	}
	var p models.Product
	err := s.db.WithContext(ctx).Where("ean = ? AND active = ?", ean, true).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SearchProducts matches query case-insensitively against name, EAN and SKU.
// At most SearchLimit active products are returned, ordered by name.
func (s *Store) SearchProducts(ctx context.Context, query string) ([]models.Product, error) {
	query = strings.TrimSpace(query)
	products := []models.Product{}
	if query == "" {
		return products, nil
	}
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(ean) LIKE ? ESCAPE '\' OR LOWER(sku) LIKE ? ESCAPE '\')`, pattern, pattern, pattern).
		Order("name ASC").
		Limit(SearchLimit).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// ListProducts returns all active products ordered by name.
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	if err := s.db.WithContext(ctx).Where("active = ?", true).Order("name ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// CountProducts counts active products.
func (s *Store) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Product{}).Where("active = ?", true).Count(&n).Error
	return n, err
}

// LatestProductUpdate returns the greatest updated_at across local products,
// or nil when the table is empty.
func (s *Store) LatestProductUpdate(ctx context.Context) (*time.Time, error) {
	var p models.Product
	res := s.db.WithContext(ctx).Select("updated_at").Order("updated_at DESC").Limit(1).Find(&p)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	ts := p.UpdatedAt.UTC()
	return &ts, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
