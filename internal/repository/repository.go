package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/obviyus/pg-backloggd/internal/models"
)

// GameRatings is one game together with every user rating recorded for it,
// the unit the report builder consumes.
type GameRatings struct {
	Game    models.Game
	Ratings []models.UserRating
}

type LibraryRepository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// InsertGamesTx inserts games that are not yet known; existing rows are
	// left untouched so names and enrichment fields are never overwritten.
	InsertGamesTx(ctx context.Context, tx *gorm.DB, items []models.Game) error

	// UpsertUserRatingsTx inserts or replaces ratings by (username, game_id);
	// rating, status and the journal dates always take the latest value.
	UpsertUserRatingsTx(ctx context.Context, tx *gorm.DB, items []models.UserRating) error

	GetGame(ctx context.Context, gameID string) (*models.Game, error)
	ListUnenrichedGames(ctx context.Context) ([]models.Game, error)

	// SetGameEnrichment fills the enrichment fields of one game. The update
	// only applies while igdb_url is still NULL, so a second enrichment pass
	// never overwrites what an earlier one wrote.
	SetGameEnrichment(ctx context.Context, gameID string, igdbURL string, firstReleaseDate *int64, steamURL *string) error

	ListUserRatings(ctx context.Context, username string) ([]models.UserRating, error)
	ListGameRatings(ctx context.Context) ([]GameRatings, error)

	GetCrawlState(ctx context.Context, username string) (*models.CrawlState, error)
	SaveCrawlState(ctx context.Context, state *models.CrawlState) error

	// SaveCrawlFailure records a failed attempt without touching the last
	// successful crawl's timestamp or stats.
	SaveCrawlFailure(ctx context.Context, username string, attemptAt time.Time, message string) error

	ListCrawlStates(ctx context.Context) ([]models.CrawlState, error)
}
