package gormrepository

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/obviyus/pg-backloggd/internal/models"
	"github.com/obviyus/pg-backloggd/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *Store) InsertGamesTx(ctx context.Context, tx *gorm.DB, items []models.Game) error {
	if tx == nil || len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_id"}},
		DoNothing: true,
	}).Create(items).Error
}

func (s *Store) UpsertUserRatingsTx(ctx context.Context, tx *gorm.DB, items []models.UserRating) error {
	if tx == nil || len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "username"}, {Name: "game_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"rating",
			"status",
			"start_date",
			"finish_date",
		}),
	}).Create(items).Error
}

func (s *Store) GetGame(ctx context.Context, gameID string) (*models.Game, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Game
	err := s.db.WithContext(ctx).First(&item, "game_id = ?", gameID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListUnenrichedGames(ctx context.Context) ([]models.Game, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Game
	if err := s.db.WithContext(ctx).
		Where("igdb_url IS NULL").
		Order("game_id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SetGameEnrichment(ctx context.Context, gameID string, igdbURL string, firstReleaseDate *int64, steamURL *string) error {
	if s == nil || s.db == nil || gameID == "" || igdbURL == "" {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Game{}).
		Where("game_id = ? AND igdb_url IS NULL", gameID).
		Updates(map[string]any{
			"igdb_url":           igdbURL,
			"first_release_date": firstReleaseDate,
			"steam_url":          steamURL,
		}).Error
}

func (s *Store) ListUserRatings(ctx context.Context, username string) ([]models.UserRating, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.UserRating
	if err := s.db.WithContext(ctx).
		Where("username = ?", username).
		Order("game_id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListGameRatings(ctx context.Context) ([]repository.GameRatings, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var ratings []models.UserRating
	if err := s.db.WithContext(ctx).
		Order("game_id asc, username asc").
		Find(&ratings).Error; err != nil {
		return nil, err
	}
	if len(ratings) == 0 {
		return nil, nil
	}

	byGame := make(map[string][]models.UserRating)
	for _, r := range ratings {
		byGame[r.GameID] = append(byGame[r.GameID], r)
	}
	ids := make([]string, 0, len(byGame))
	for id := range byGame {
		ids = append(ids, id)
	}

	var games []models.Game
	if err := s.db.WithContext(ctx).
		Where("game_id IN ?", ids).
		Find(&games).Error; err != nil {
		return nil, err
	}

	items := make([]repository.GameRatings, 0, len(games))
	for _, g := range games {
		items = append(items, repository.GameRatings{
			Game:    g,
			Ratings: byGame[g.GameID],
		})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Game.GameName < items[j].Game.GameName
	})
	return items, nil
}

func (s *Store) GetCrawlState(ctx context.Context, username string) (*models.CrawlState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var state models.CrawlState
	err := s.db.WithContext(ctx).First(&state, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *Store) SaveCrawlState(ctx context.Context, state *models.CrawlState) error {
	if s == nil || s.db == nil || state == nil || state.Username == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"last_success_at",
			"last_attempt_at",
			"last_error",
			"stats_json",
		}),
	}).Create(state).Error
}

// SaveCrawlFailure upserts only the attempt columns so a transient crawl
// failure never erases the last successful crawl's timestamp or stats.
func (s *Store) SaveCrawlFailure(ctx context.Context, username string, attemptAt time.Time, message string) error {
	if s == nil || s.db == nil || username == "" {
		return nil
	}
	state := &models.CrawlState{
		Username:      username,
		LastAttemptAt: &attemptAt,
		LastError:     &message,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"last_attempt_at",
			"last_error",
		}),
	}).Create(state).Error
}

func (s *Store) ListCrawlStates(ctx context.Context) ([]models.CrawlState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.CrawlState
	if err := s.db.WithContext(ctx).
		Order("username asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
