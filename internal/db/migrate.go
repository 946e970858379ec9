/**
 * @description
 * Schema bootstrap via GORM AutoMigrate.
 * Parents first so foreign keys resolve; history tables carry cascade deletes
 * back to their product.
 *
 * @dependencies
 * - gorm.io/gorm
 * - backend/internal/models
 */

package db

import (
	"github.com/asinwatch-project/backend/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the catalog schema
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Platform{},
		&models.Category{},
		&models.Product{},
		&models.PriceHistory{},
		&models.RatingHistory{},
		&models.SalesRankHistory{},
	)
}
