/**
 * @description
 * Category database model.
 * Maps to the 'categories' table. Rows are created on first observation of a
 * new category name and never mutated afterwards.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import "time"

// Category represents a product category dimension
type Category struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName overrides the table name used by Category to `categories`
func (Category) TableName() string {
	return "categories"
}
