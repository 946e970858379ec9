/**
 * @description
 * Product database model: the mutable "latest record" per catalog item.
 * Maps to the 'products' table in PostgreSQL.
 * Exactly one row exists per (platform_id, asin); snapshot-bearing fields are
 * overwritten on every successful reconciliation (last write wins).
 *
 * @dependencies
 * - gorm.io/gorm
 *
 * @notes
 * - Nullable snapshot fields use pointers so "provider sent nothing" survives the round trip.
 * - Deleting a product cascades into all three history tables.
 */

package models

import "time"

// Product represents the latest known snapshot of a catalog item
type Product struct {
	ID         uint  `gorm:"primaryKey;autoIncrement" json:"id"`
	PlatformID uint  `gorm:"column:platform_id;not null;uniqueIndex:idx_products_platform_asin" json:"platform_id"`
	CategoryID *uint `gorm:"column:category_id" json:"category_id,omitempty"`

	ASIN  string `gorm:"column:asin;not null;uniqueIndex:idx_products_platform_asin" json:"asin"`
	Title string `gorm:"column:title" json:"title"`
	Brand string `gorm:"column:brand" json:"brand"`
	// Denormalized category label; CategoryID points at the canonical row.
	Category   string `gorm:"column:category" json:"category"`
	ImageURL   string `gorm:"column:image_url" json:"image_url"`
	ProductURL string `gorm:"column:product_url" json:"product_url"`

	ReviewCount  *int     `gorm:"column:review_count" json:"review_count"`
	ReviewRating *float64 `gorm:"column:review_rating;type:numeric(3,2)" json:"review_rating"`
	Price        *float64 `gorm:"column:price;type:numeric(10,2)" json:"price"`
	BuyboxPrice  *float64 `gorm:"column:buybox_price;type:numeric(10,2)" json:"buybox_price"`

	Platform    Platform  `gorm:"foreignKey:PlatformID" json:"-"`
	CategoryRef *Category `gorm:"foreignKey:CategoryID" json:"-"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides the table name used by Product to `products`
func (Product) TableName() string {
	return "products"
}
