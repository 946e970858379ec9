/**
 * @description
 * Platform database model.
 * Maps to the 'platforms' table in PostgreSQL (one row per marketplace, e.g. amazon_us).
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import "time"

// Platform represents a named marketplace source
type Platform struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName overrides the table name used by Platform to `platforms`
func (Platform) TableName() string {
	return "platforms"
}
