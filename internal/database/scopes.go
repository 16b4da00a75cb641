package database

import (
	"gorm.io/gorm"
)

// Paginate applies a page window to a GORM query. Callers pass
// already-clamped values.
func Paginate(page, pageSize int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}
}
