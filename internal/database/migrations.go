package database

import (
	"fmt"

	"homescope/server/internal/models"
)

func (d *Database) RunMigrations() error {
	if err := d.db.AutoMigrate(&models.Property{}); err != nil {
		return fmt.Errorf("failed to migrate properties table: %w", err)
	}

	// Bedroom band lookups run alongside the city/price index
	err := d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_properties_status_bedrooms
		ON properties(status, bedrooms);
	`).Error
	if err != nil {
		return err
	}

	// Create spatial index on coordinates
	err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_properties_coordinates
		ON properties(latitude, longitude);
	`).Error
	if err != nil {
		return err
	}

	d.logger.Info("Database migrations completed")
	return nil
}
