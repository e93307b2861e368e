package store

import (
	"context"
	"errors"
	"strings"

	"github.com/diewo77/fairscanner/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetCustomerByName returns the customer with exactly this name, or nil.
func (s *Store) GetCustomerByName(ctx context.Context, name string) (*models.Customer, error) {
	return customerByName(s.db.WithContext(ctx), strings.TrimSpace(name))
}

func customerByName(tx *gorm.DB, name string) (*models.Customer, error) {
	var c models.Customer
	err := tx.Where("name = ?", name).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertCustomer inserts or replaces a customer by id. A missing id is generated.
func (s *Store) UpsertCustomer(ctx context.Context, c *models.Customer) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return ErrMissingField
	}
	if c.ID == "" {
		c.ID = s.newID()
	}
	now := s.timestamp()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	return s.tx(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "email", "phone", "address", "updated_at"}),
		}).Create(c).Error
	})
}

// FindOrCreateCustomer returns the customer named name, creating it when missing.
// Lookup and insert share one transaction so a name maps to at most one row.
// An email is recorded on an existing customer only when it has none yet.
func (s *Store) FindOrCreateCustomer(ctx context.Context, name, email string) (*models.Customer, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return nil, ErrMissingField
	}
	var out *models.Customer
	err := s.tx(ctx, func(tx *gorm.DB) error {
		c, err := customerByName(tx, name)
		if err != nil {
			return err
		}
		now := s.timestamp()
		if c != nil {
			if c.Email == "" && email != "" {
				c.Email = email
				c.UpdatedAt = now
				if err := tx.Model(c).Updates(map[string]any{"email": email, "updated_at": now}).Error; err != nil {
					return err
				}
			}
			out = c
			return nil
		}
		c = &models.Customer{ID: s.newID(), Name: name, Email: email, CreatedAt: now, UpdatedAt: now}
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
