/**
 * @description
 * Price History database model.
 * Maps to the 'prices' table in PostgreSQL. Append-only: one row per
 * (product_id, ts), inserted with ON CONFLICT DO NOTHING so replays are no-ops.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import "time"

// PriceHistory represents one observed price point for a product
type PriceHistory struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   uint      `gorm:"column:product_id;not null;uniqueIndex:idx_prices_product_ts" json:"product_id"`
	Timestamp   time.Time `gorm:"column:ts;not null;uniqueIndex:idx_prices_product_ts" json:"ts"`
	Price       *float64  `gorm:"column:price;type:numeric(10,2)" json:"price"`
	BuyboxPrice *float64  `gorm:"column:buybox_price;type:numeric(10,2)" json:"buybox_price"`
	Currency    string    `gorm:"column:currency;default:'USD'" json:"currency"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	Product Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name used by PriceHistory to `prices`
func (PriceHistory) TableName() string {
	return "prices"
}
