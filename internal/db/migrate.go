package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/diewo77/fairscanner/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies the embedded SQL migrations with golang-migrate.
// The migrate instance is not closed: closing it would close gdb's pool.
func Migrate(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	driver, err := sqlite3.WithInstance(sqlDB, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("migrate driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sql migrations failed: %w", err)
	}
	version, dirty, verr := m.Version()
	if verr == nil {
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("database schema up to date")
	}
	return nil
}

// AutoMigrate is the development fallback used when SQL migrations are disabled.
func AutoMigrate(gdb *gorm.DB) error {
	modelsToMigrate := []interface{}{
		&models.Product{}, &models.Customer{}, &models.Order{}, &models.OrderItem{},
	}
	for _, m := range modelsToMigrate {
		if err := gdb.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

// Prepare brings the schema up to date, via SQL migrations or AutoMigrate,
// and checks that the core tables exist.
func Prepare(gdb *gorm.DB, useSQL bool) error {
	if useSQL {
		if err := Migrate(gdb); err != nil {
			return err
		}
	} else if err := AutoMigrate(gdb); err != nil {
		return err
	}
	for _, table := range []string{"products", "orders", "order_items", "customers"} {
		if !gdb.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}
