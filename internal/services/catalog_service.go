/**
 * @description
 * Service layer for the product read path.
 * Serves filtered, sorted, paginated queries over the latest-record table,
 * falling back to the most recent history rows when a product column is
 * empty, plus detail and time-series history lookups.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/redis/go-redis/v9: short-TTL cache for the default listing
 * - backend/internal/models
 */

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/asinwatch-project/backend/internal/logger"
	"github.com/asinwatch-project/backend/internal/models"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	CacheKeyDefaultProductList = "products:list:default"
	productListCacheTTL        = 5 * time.Minute

	defaultPageSize = 20
	maxPageSize     = 100
	historyLimit    = 2000
)

// Latest-value subqueries: newest history row per product, used to backfill
// product columns the last sync left empty.
const (
	latestPriceSQL = `SELECT p1.product_id, p1.price
FROM prices p1
JOIN (SELECT product_id, MAX(ts) AS ts FROM prices GROUP BY product_id) p2
  ON p1.product_id = p2.product_id AND p1.ts = p2.ts`

	latestRatingSQL = `SELECT r1.product_id, r1.rating, r1.review_count
FROM ratings r1
JOIN (SELECT product_id, MAX(ts) AS ts FROM ratings GROUP BY product_id) r2
  ON r1.product_id = r2.product_id AND r1.ts = r2.ts`

	latestRankSQL = `SELECT s1.product_id, MIN(s1.rank) AS rank
FROM sales_rank_history s1
JOIN (SELECT product_id, MAX(ts) AS ts FROM sales_rank_history GROUP BY product_id) s2
  ON s1.product_id = s2.product_id AND s1.ts = s2.ts
GROUP BY s1.product_id`
)

type CatalogService struct {
	DB           *gorm.DB
	Redis        *redis.Client
	PlatformName string
}

func NewCatalogService(db *gorm.DB, rdb *redis.Client, platformName string) *CatalogService {
	return &CatalogService{
		DB:           db,
		Redis:        rdb,
		PlatformName: platformName,
	}
}

// ListProductsParams holds filters, sort and pagination for the list endpoint
type ListProductsParams struct {
	MinRating float64
	MaxPrice  float64
	Category  string
	Sort      string // "rating", "price" or "rank"
	Order     string // "asc" or "desc"
	Page      int
	PageSize  int
}

// IsDefault reports whether the query is the plain first page, the only
// variant worth caching.
func (p ListProductsParams) IsDefault() bool {
	return p.MinRating <= 0 && p.MaxPrice <= 0 && p.Category == "" &&
		p.Sort == "" && p.Page <= 1 && (p.PageSize <= 0 || p.PageSize == defaultPageSize)
}

// ProductListItem is one row of the list/detail responses
type ProductListItem struct {
	ASIN        string     `gorm:"column:asin" json:"asin"`
	Title       string     `gorm:"column:title" json:"title"`
	Brand       string     `gorm:"column:brand" json:"brand"`
	Category    string     `gorm:"column:category" json:"category"`
	ImageURL    string     `gorm:"column:image_url" json:"image"`
	ProductURL  string     `gorm:"column:product_url" json:"link"`
	Platform    string     `gorm:"column:platform" json:"platform"`
	Price       *float64   `gorm:"column:price" json:"price"`
	Rating      *float64   `gorm:"column:rating" json:"rating"`
	ReviewCount *int       `gorm:"column:review_count" json:"review_count"`
	SalesRank   *int       `gorm:"column:sales_rank" json:"sales_rank"`
	UpdatedAt   *time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// ProductPage is a paginated list response
type ProductPage struct {
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Total    int64             `json:"total"`
	Items    []ProductListItem `json:"items"`
}

// ListProducts runs a filtered, sorted, paginated query over the latest
// records for the service's platform.
func (s *CatalogService) ListProducts(ctx context.Context, params ListProductsParams) (*ProductPage, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	var total int64
	if err := s.listQuery(ctx, params).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	items := make([]ProductListItem, 0, pageSize)
	err := s.listQuery(ctx, params).
		Select(`pr.asin, pr.title, pr.brand, pr.category, pr.image_url, pr.product_url,
			pl.name AS platform,
			COALESCE(pr.price, lp.price) AS price,
			COALESCE(pr.review_rating, lr.rating) AS rating,
			COALESCE(pr.review_count, lr.review_count) AS review_count,
			lk.rank AS sales_rank,
			pr.updated_at`).
		Order(orderClause(params.Sort, params.Order)).
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return &ProductPage{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		Items:    items,
	}, nil
}

// ListProductsCached serves the default listing from Redis when possible.
// Cache failures degrade to the DB silently.
func (s *CatalogService) ListProductsCached(ctx context.Context, params ListProductsParams) (*ProductPage, error) {
	if s.Redis == nil || !params.IsDefault() {
		return s.ListProducts(ctx, params)
	}

	if val, err := s.Redis.Get(ctx, CacheKeyDefaultProductList).Result(); err == nil {
		var page ProductPage
		if err := json.Unmarshal([]byte(val), &page); err == nil {
			return &page, nil
		}
		// Corrupt cache entry; fall through to DB
	}

	page, err := s.ListProducts(ctx, params)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(page); err == nil {
		if err := s.Redis.Set(ctx, CacheKeyDefaultProductList, data, productListCacheTTL).Err(); err != nil {
			logger.Error("Failed to cache default product list: %v", err)
		}
	}

	return page, nil
}

// GetProduct returns the latest record for one ASIN, nil when absent
func (s *CatalogService) GetProduct(ctx context.Context, asin string) (*ProductListItem, error) {
	var item ProductListItem
	err := s.baseQuery(ctx).
		Select(`pr.asin, pr.title, pr.brand, pr.category, pr.image_url, pr.product_url,
			pl.name AS platform,
			COALESCE(pr.price, lp.price) AS price,
			COALESCE(pr.review_rating, lr.rating) AS rating,
			COALESCE(pr.review_count, lr.review_count) AS review_count,
			lk.rank AS sales_rank,
			pr.updated_at`).
		Where("pr.asin = ?", asin).
		Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product %s: %w", asin, err)
	}
	return &item, nil
}

// PricePoint is one price history observation
type PricePoint struct {
	Timestamp   time.Time `json:"ts"`
	Price       *float64  `json:"price"`
	BuyboxPrice *float64  `json:"buybox_price"`
	Currency    string    `json:"currency"`
}

// RatingPoint is one rating history observation
type RatingPoint struct {
	Timestamp   time.Time `json:"ts"`
	Rating      *float64  `json:"rating"`
	ReviewCount *int      `json:"review_count"`
}

// RankPoint is one sales rank history observation
type RankPoint struct {
	Timestamp time.Time `json:"ts"`
	Category  string    `json:"category"`
	Rank      int       `json:"rank"`
}

// ProductHistory bundles the time series for one product
type ProductHistory struct {
	ASIN      string        `json:"asin"`
	UpdatedAt time.Time     `json:"updated_at"`
	Prices    []PricePoint  `json:"price_history"`
	Ratings   []RatingPoint `json:"rating_history"`
	Ranks     []RankPoint   `json:"ranking_history"`
}

// GetProductHistory returns the append-only series for one ASIN, nil when
// the product is absent.
func (s *CatalogService) GetProductHistory(ctx context.Context, asin string) (*ProductHistory, error) {
	var product models.Product
	err := s.DB.WithContext(ctx).
		Joins("JOIN platforms pl ON products.platform_id = pl.id").
		Where("pl.name = ? AND products.asin = ?", s.PlatformName, asin).
		Take(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve product %s: %w", asin, err)
	}

	history := &ProductHistory{
		ASIN:      asin,
		UpdatedAt: product.UpdatedAt,
		Prices:    []PricePoint{},
		Ratings:   []RatingPoint{},
		Ranks:     []RankPoint{},
	}

	var priceRows []models.PriceHistory
	if err := s.DB.WithContext(ctx).
		Where("product_id = ?", product.ID).
		Order("ts ASC").
		Limit(historyLimit).
		Find(&priceRows).Error; err != nil {
		return nil, fmt.Errorf("failed to load price history: %w", err)
	}
	for _, row := range priceRows {
		history.Prices = append(history.Prices, PricePoint{
			Timestamp:   row.Timestamp,
			Price:       row.Price,
			BuyboxPrice: row.BuyboxPrice,
			Currency:    row.Currency,
		})
	}

	var ratingRows []models.RatingHistory
	if err := s.DB.WithContext(ctx).
		Where("product_id = ?", product.ID).
		Order("ts ASC").
		Limit(historyLimit).
		Find(&ratingRows).Error; err != nil {
		return nil, fmt.Errorf("failed to load rating history: %w", err)
	}
	for _, row := range ratingRows {
		history.Ratings = append(history.Ratings, RatingPoint{
			Timestamp:   row.Timestamp,
			Rating:      row.Rating,
			ReviewCount: row.ReviewCount,
		})
	}

	var rankRows []models.SalesRankHistory
	if err := s.DB.WithContext(ctx).
		Where("product_id = ?", product.ID).
		Order("ts ASC").
		Limit(historyLimit).
		Find(&rankRows).Error; err != nil {
		return nil, fmt.Errorf("failed to load rank history: %w", err)
	}
	for _, row := range rankRows {
		history.Ranks = append(history.Ranks, RankPoint{
			Timestamp: row.Timestamp,
			Category:  row.Category,
			Rank:      row.Rank,
		})
	}

	return history, nil
}

// baseQuery joins products with platform and latest-history values
func (s *CatalogService) baseQuery(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).
		Table("products AS pr").
		Joins("JOIN platforms pl ON pr.platform_id = pl.id").
		Joins("LEFT JOIN (" + latestPriceSQL + ") lp ON lp.product_id = pr.id").
		Joins("LEFT JOIN (" + latestRatingSQL + ") lr ON lr.product_id = pr.id").
		Joins("LEFT JOIN (" + latestRankSQL + ") lk ON lk.product_id = pr.id").
		Where("pl.name = ?", s.PlatformName)
}

func (s *CatalogService) listQuery(ctx context.Context, params ListProductsParams) *gorm.DB {
	q := s.baseQuery(ctx)

	if params.MinRating > 0 {
		q = q.Where("COALESCE(pr.review_rating, lr.rating) IS NOT NULL AND COALESCE(pr.review_rating, lr.rating) >= ?", params.MinRating)
	}
	if params.MaxPrice > 0 {
		q = q.Where("COALESCE(pr.price, lp.price) IS NOT NULL AND COALESCE(pr.price, lp.price) <= ?", params.MaxPrice)
	}
	if params.Category != "" {
		q = q.Where("pr.category = ?", params.Category)
	}

	return q
}

// orderClause builds the ORDER BY for a validated sort key. The id tiebreak
// keeps pagination stable.
func orderClause(sort, order string) string {
	dir := "ASC"
	if order == "desc" {
		dir = "DESC"
	}

	switch sort {
	case "rating":
		return fmt.Sprintf("COALESCE(pr.review_rating, lr.rating) %s NULLS LAST, pr.id ASC", dir)
	case "price":
		return fmt.Sprintf("COALESCE(pr.price, lp.price) %s NULLS LAST, pr.id ASC", dir)
	case "rank":
		return fmt.Sprintf("lk.rank %s NULLS LAST, pr.id ASC", dir)
	default:
		return "pr.id ASC"
	}
}
