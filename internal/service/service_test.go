package service

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/obviyus/pg-backloggd/internal/models"
	"github.com/obviyus/pg-backloggd/internal/repository"
	gormrepository "github.com/obviyus/pg-backloggd/internal/repository/gorm"
)

func newTestStore(t *testing.T) repository.LibraryRepository {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := gdb.AutoMigrate(&models.Game{}, &models.UserRating{}, &models.CrawlState{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gormrepository.New(gdb)
}

func seedGame(t *testing.T, store repository.LibraryRepository, game models.Game, ratings ...models.UserRating) {
	t.Helper()
	err := store.InTx(context.Background(), func(tx *gorm.DB) error {
		if err := store.InsertGamesTx(context.Background(), tx, []models.Game{game}); err != nil {
			return err
		}
		return store.UpsertUserRatingsTx(context.Background(), tx, ratings)
	})
	if err != nil {
		t.Fatalf("seed game %s: %v", game.GameID, err)
	}
}

func intPtr(v int) *int { return &v }

func rating(username, gameID string, score int, status models.Status) models.UserRating {
	return models.UserRating{
		Username: username,
		GameID:   gameID,
		Rating:   intPtr(score),
		Status:   status,
	}
}

func unrated(username, gameID string, status models.Status) models.UserRating {
	return models.UserRating{
		Username: username,
		GameID:   gameID,
		Status:   status,
	}
}
