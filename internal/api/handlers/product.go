/**
 * @description
 * Product API Handlers.
 * Exposes the read path: filtered/sorted/paginated product list, single
 * product detail, and time-series history.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 */

package handlers

import (
	"strconv"

	"github.com/asinwatch-project/backend/internal/asins"
	"github.com/asinwatch-project/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	Service *services.CatalogService
}

func NewProductHandler(service *services.CatalogService) *ProductHandler {
	return &ProductHandler{Service: service}
}

// ListProducts returns a filtered, sorted, paginated product page
// GET /api/v1/products
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	ctx := c.Context()

	sort := c.Query("sort")
	if sort != "rating" && sort != "price" && sort != "rank" {
		sort = ""
	}
	order := c.Query("order", "asc")
	if order != "asc" && order != "desc" {
		order = "asc"
	}

	params := services.ListProductsParams{
		MinRating: queryFloat(c, "min_rating"),
		MaxPrice:  queryFloat(c, "max_price"),
		Category:  c.Query("category"),
		Sort:      sort,
		Order:     order,
		Page:      c.QueryInt("page", 1),
		PageSize:  c.QueryInt("page_size", 0),
	}

	page, err := h.Service.ListProductsCached(ctx, params)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list products",
		})
	}
	return c.JSON(page)
}

// GetProduct returns the latest record for one ASIN
// GET /api/v1/products/:asin
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	asin := c.Params("asin")
	if !asins.Valid(asin) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid asin",
		})
	}

	item, err := h.Service.GetProduct(c.Context(), asin)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch product",
		})
	}
	if item == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Product not found",
		})
	}
	return c.JSON(item)
}

// GetProductHistory returns the price/rating/rank time series for one ASIN
// GET /api/v1/products/:asin/history
func (h *ProductHandler) GetProductHistory(c *fiber.Ctx) error {
	asin := c.Params("asin")
	if !asins.Valid(asin) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid asin",
		})
	}

	history, err := h.Service.GetProductHistory(c.Context(), asin)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch product history",
		})
	}
	if history == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Product not found",
		})
	}
	return c.JSON(history)
}

func queryFloat(c *fiber.Ctx, key string) float64 {
	v, err := strconv.ParseFloat(c.Query(key), 64)
	if err != nil {
		return 0
	}
	return v
}
