package gormrepository

import (
	"context"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/obviyus/pg-backloggd/internal/models"
)

func newTestStore(t *testing.T) *Store {
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
	return New(gdb)
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func int64Ptr(v int64) *int64 { return &v }

func ingestGames(t *testing.T, store *Store, games ...models.Game) {
	t.Helper()
	err := store.InTx(context.Background(), func(tx *gorm.DB) error {
		return store.InsertGamesTx(context.Background(), tx, games)
	})
	if err != nil {
		t.Fatalf("insert games: %v", err)
	}
}

func ingestRatings(t *testing.T, store *Store, ratings ...models.UserRating) {
	t.Helper()
	err := store.InTx(context.Background(), func(tx *gorm.DB) error {
		return store.UpsertUserRatingsTx(context.Background(), tx, ratings)
	})
	if err != nil {
		t.Fatalf("upsert ratings: %v", err)
	}
}

func TestInsertGamesKeepsExistingName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ingestGames(t, store, models.Game{GameID: "1", GameName: "Outer Wilds"})
	ingestGames(t, store, models.Game{GameID: "1", GameName: "Renamed"})

	game, err := store.GetGame(ctx, "1")
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if game == nil || game.GameName != "Outer Wilds" {
		t.Fatalf("game = %+v, want original name", game)
	}
}

func TestUpsertUserRatingsLastWriteWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ingestGames(t, store, models.Game{GameID: "1", GameName: "Hades"})
	ingestRatings(t, store, models.UserRating{
		Username: "alice", GameID: "1", Rating: intPtr(5), Status: models.StatusPlaying,
	})
	ingestRatings(t, store, models.UserRating{
		Username: "alice", GameID: "1", Rating: intPtr(9), Status: models.StatusPlayed,
		StartDate: strPtr("Jan 05, 2024"), FinishDate: strPtr("Feb 01, 2024"),
	})

	ratings, err := store.ListUserRatings(ctx, "alice")
	if err != nil {
		t.Fatalf("ListUserRatings: %v", err)
	}
	if len(ratings) != 1 {
		t.Fatalf("ratings = %d, want 1", len(ratings))
	}
	r := ratings[0]
	if r.Rating == nil || *r.Rating != 9 {
		t.Fatalf("rating = %v, want 9", r.Rating)
	}
	if r.Status != models.StatusPlayed {
		t.Fatalf("status = %v", r.Status)
	}
	if r.StartDate == nil || *r.StartDate != "Jan 05, 2024" {
		t.Fatalf("start date = %v", r.StartDate)
	}
}

func TestSetGameEnrichmentFillsOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ingestGames(t, store, models.Game{GameID: "1", GameName: "Tunic"})

	if err := store.SetGameEnrichment(ctx, "1", "https://www.igdb.com/games/tunic", int64Ptr(1647475200), strPtr("https://store.steampowered.com/app/553420")); err != nil {
		t.Fatalf("SetGameEnrichment: %v", err)
	}
	// A second pass must not overwrite what the first one wrote.
	if err := store.SetGameEnrichment(ctx, "1", "https://other.example", nil, nil); err != nil {
		t.Fatalf("SetGameEnrichment second: %v", err)
	}

	game, err := store.GetGame(ctx, "1")
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if game.IGDBURL == nil || *game.IGDBURL != "https://www.igdb.com/games/tunic" {
		t.Fatalf("igdb url = %v", game.IGDBURL)
	}
	if game.FirstReleaseDate == nil || *game.FirstReleaseDate != 1647475200 {
		t.Fatalf("release date = %v", game.FirstReleaseDate)
	}
	if game.SteamURL == nil {
		t.Fatalf("steam url lost on second pass")
	}
}

func TestListUnenrichedGames(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ingestGames(t, store,
		models.Game{GameID: "1", GameName: "Enriched"},
		models.Game{GameID: "2", GameName: "Pending"},
	)
	if err := store.SetGameEnrichment(ctx, "1", "https://www.igdb.com/games/x", nil, nil); err != nil {
		t.Fatalf("SetGameEnrichment: %v", err)
	}

	games, err := store.ListUnenrichedGames(ctx)
	if err != nil {
		t.Fatalf("ListUnenrichedGames: %v", err)
	}
	if len(games) != 1 || games[0].GameID != "2" {
		t.Fatalf("games = %+v, want only id 2", games)
	}
}

func TestListGameRatingsGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ingestGames(t, store,
		models.Game{GameID: "1", GameName: "Bastion"},
		models.Game{GameID: "2", GameName: "Anodyne"},
	)
	ingestRatings(t, store,
		models.UserRating{Username: "alice", GameID: "1", Rating: intPtr(9), Status: models.StatusPlayed},
		models.UserRating{Username: "bob", GameID: "1", Rating: intPtr(6), Status: models.StatusPlayed},
		models.UserRating{Username: "alice", GameID: "2", Status: models.StatusWishlist},
	)

	groups, err := store.ListGameRatings(ctx)
	if err != nil {
		t.Fatalf("ListGameRatings: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	// Sorted by game name.
	if groups[0].Game.GameName != "Anodyne" || groups[1].Game.GameName != "Bastion" {
		t.Fatalf("order = %q, %q", groups[0].Game.GameName, groups[1].Game.GameName)
	}
	if len(groups[1].Ratings) != 2 {
		t.Fatalf("Bastion ratings = %d, want 2", len(groups[1].Ratings))
	}
}

func TestCrawlStateFailureKeepsLastSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	succeededAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	stats := datatypes.JSON(`{"entries":42}`)
	if err := store.SaveCrawlState(ctx, &models.CrawlState{
		Username:      "alice",
		LastSuccessAt: &succeededAt,
		LastAttemptAt: &succeededAt,
		StatsJSON:     stats,
	}); err != nil {
		t.Fatalf("SaveCrawlState: %v", err)
	}

	failedAt := succeededAt.Add(24 * time.Hour)
	if err := store.SaveCrawlFailure(ctx, "alice", failedAt, "journal fetch failed"); err != nil {
		t.Fatalf("SaveCrawlFailure: %v", err)
	}

	state, err := store.GetCrawlState(ctx, "alice")
	if err != nil {
		t.Fatalf("GetCrawlState: %v", err)
	}
	if state == nil {
		t.Fatalf("state missing")
	}
	if state.LastSuccessAt == nil || !state.LastSuccessAt.Equal(succeededAt) {
		t.Fatalf("last success = %v, want kept across failure", state.LastSuccessAt)
	}
	if string(state.StatsJSON) != string(stats) {
		t.Fatalf("stats = %s, want kept across failure", state.StatsJSON)
	}
	if state.LastAttemptAt == nil || !state.LastAttemptAt.Equal(failedAt) {
		t.Fatalf("last attempt = %v, want failure time", state.LastAttemptAt)
	}
	if state.LastError == nil || *state.LastError != "journal fetch failed" {
		t.Fatalf("last error = %v", state.LastError)
	}

	// The next successful crawl clears the error.
	recoveredAt := failedAt.Add(time.Hour)
	if err := store.SaveCrawlState(ctx, &models.CrawlState{
		Username:      "alice",
		LastSuccessAt: &recoveredAt,
		LastAttemptAt: &recoveredAt,
	}); err != nil {
		t.Fatalf("SaveCrawlState recovery: %v", err)
	}
	state, err = store.GetCrawlState(ctx, "alice")
	if err != nil {
		t.Fatalf("GetCrawlState: %v", err)
	}
	if state.LastError != nil {
		t.Fatalf("last error = %v, want cleared by success", *state.LastError)
	}

	states, err := store.ListCrawlStates(ctx)
	if err != nil {
		t.Fatalf("ListCrawlStates: %v", err)
	}
	if len(states) != 1 {
		t.Fatalf("states = %d, want 1", len(states))
	}
}
