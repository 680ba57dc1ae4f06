package db

import (
	"github.com/obviyus/pg-backloggd/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Game{},
		&models.UserRating{},
		&models.CrawlState{},
	)
}
