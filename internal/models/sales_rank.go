/**
 * @description
 * Sales Rank History database model.
 * Maps to the 'sales_rank_history' table in PostgreSQL. Append-only: one row
 * per (product_id, ts, category). The category dimension defaults to the
 * sentinel "default" when the provider returns an un-categorized rank, so the
 * uniqueness key never has a nullable component.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import "time"

// DefaultRankCategory is the sentinel category for un-categorized sales ranks
const DefaultRankCategory = "default"

// SalesRankHistory represents one observed sales rank point for a product
type SalesRankHistory struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uint      `gorm:"column:product_id;not null;uniqueIndex:idx_ranks_product_ts_category" json:"product_id"`
	Timestamp time.Time `gorm:"column:ts;not null;uniqueIndex:idx_ranks_product_ts_category" json:"ts"`
	Category  string    `gorm:"column:category;not null;default:'default';uniqueIndex:idx_ranks_product_ts_category" json:"category"`
	Rank      int       `gorm:"column:rank;not null" json:"rank"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	Product Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name used by SalesRankHistory to `sales_rank_history`
func (SalesRankHistory) TableName() string {
	return "sales_rank_history"
}
