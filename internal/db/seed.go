package db

import (
	"errors"
	"time"

	"github.com/diewo77/fairscanner/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// demoCatalog is the sample catalog loaded by SeedDemoCatalog.
var demoCatalog = []models.Product{
	{EAN: "4007817327320", SKU: "SKU001", Name: "Industrial Pump 2000", Price: 150.00},
	{EAN: "4007817327321", SKU: "SKU002", Name: "Hydraulic Valve Set", Price: 85.00},
	{EAN: "4007817327322", SKU: "SKU003", Name: "Steel Pipe 2m", Price: 12.00},
	{EAN: "4007817327323", SKU: "SKU004", Name: "Control Panel Basic", Price: 250.00},
	{EAN: "4007817327324", SKU: "SKU005", Name: "Solenoid Actuator", Price: 32.00},
	{EAN: "4007817327325", SKU: "SKU006", Name: "Pressure Sensor", Price: 18.00},
	{EAN: "4007817327326", SKU: "SKU007", Name: "Flow Meter Digital", Price: 42.00},
	{EAN: "4007817327327", SKU: "SKU008", Name: "Motor Mount Bracket", Price: 9.50},
	{EAN: "4007817327328", SKU: "SKU009", Name: "Seal Kit Standard", Price: 7.50},
	{EAN: "4007817327329", SKU: "SKU010", Name: "Filter Element 10μm", Price: 4.50},
	{EAN: "4007817327330", SKU: "SKU011", Name: "Gearbox Assembly", Price: 150.00},
	{EAN: "4007817327331", SKU: "SKU012", Name: "Coupling Flexible", Price: 28.00},
	{EAN: "4007817327332", SKU: "SKU013", Name: "Bearing Set", Price: 12.00},
	{EAN: "4007817327333", SKU: "SKU014", Name: "Shaft Extension", Price: 8.50},
	{EAN: "4007817327334", SKU: "SKU015", Name: "Mounting Plate", Price: 6.50},
	{EAN: "4007817327335", SKU: "SKU016", Name: "Electrical Connector", Price: 3.50},
	{EAN: "4007817327336", SKU: "SKU017", Name: "Cable Gland", Price: 1.80},
	{EAN: "4007817327337", SKU: "SKU018", Name: "Terminal Block", Price: 4.20},
	{EAN: "4007817327338", SKU: "SKU019", Name: "LED Indicator", Price: 1.20},
	{EAN: "4007817327339", SKU: "SKU020", Name: "Push Button", Price: 0.95},
}

// SeedDemoCatalog inserts the sample catalog, skipping EANs already present.
// It returns the number of products created.
//
// Seeded rows carry the zero watermark (epoch) as updated_at so the next
// incremental product sync still fetches the full remote catalog over them.
func SeedDemoCatalog(gdb *gorm.DB) (int, error) {
	epoch := time.Unix(0, 0).UTC()
	created := 0
	err := gdb.Transaction(func(tx *gorm.DB) error {
		for _, p := range demoCatalog {
			var existing models.Product
			err := tx.Where("ean = ?", p.EAN).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			p.ID = uuid.NewString()
			p.Active = true
			p.CreatedAt = epoch
			p.UpdatedAt = epoch
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
