package database

import (
	"gorm.io/gorm"

	"github.com/fieldserve/pingate/internal/domain"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Session{},
		&domain.PinAttempt{},
	)
}
