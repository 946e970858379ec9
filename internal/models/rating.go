/**
 * @description
 * Rating History database model.
 * Maps to the 'ratings' table in PostgreSQL. Append-only: one row per
 * (product_id, ts); rating and review count come from the same snapshot.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import "time"

// RatingHistory represents one observed rating/review-count point for a product
type RatingHistory struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   uint      `gorm:"column:product_id;not null;uniqueIndex:idx_ratings_product_ts" json:"product_id"`
	Timestamp   time.Time `gorm:"column:ts;not null;uniqueIndex:idx_ratings_product_ts" json:"ts"`
	Rating      *float64  `gorm:"column:rating;type:numeric(3,2)" json:"rating"`
	ReviewCount *int      `gorm:"column:review_count" json:"review_count"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	Product Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name used by RatingHistory to `ratings`
func (RatingHistory) TableName() string {
	return "ratings"
}
