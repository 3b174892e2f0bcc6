package database

import (
	"gorm.io/gorm"

	"github.com/harishghasolia07/NLogin-Devices/internal/models"
)

// AutoMigrate creates or updates the database schema. The sessions table
// carries the idx_sessions_active_device composite unique index that backs
// the conditional-insert admission primitive.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Session{},
	)
}
