/**
 * @description
 * API Route definitions.
 * Sets up the router groups and assigns handlers.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/api/handlers
 * - backend/internal/services
 */

package api

import (
	"github.com/asinwatch-project/backend/internal/api/handlers"
	"github.com/asinwatch-project/backend/internal/config"
	"github.com/asinwatch-project/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, db *gorm.DB, rdb *redis.Client, cfg *config.Config) {
	// 1. Initialize Services
	catalogService := services.NewCatalogService(db, rdb, cfg.Sync.PlatformName)

	// 2. Initialize Handlers
	productHandler := handlers.NewProductHandler(catalogService)

	// 3. Define Routes
	api := app.Group("/api")
	v1 := api.Group("/v1")

	v1.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	products := v1.Group("/products")
	products.Get("/", productHandler.ListProducts)
	products.Get("/:asin", productHandler.GetProduct)
	products.Get("/:asin/history", productHandler.GetProductHistory)
}
