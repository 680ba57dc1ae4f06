package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/obviyus/pg-backloggd/internal/crawler/backloggd"
	"github.com/obviyus/pg-backloggd/internal/export"
	"github.com/obviyus/pg-backloggd/internal/models"
	"github.com/obviyus/pg-backloggd/internal/repository"
)

// CrawlSyncService crawls one user's profile, ingests the merged records in
// a single transaction and writes the per-user CSV export.
type CrawlSyncService struct {
	Store     repository.LibraryRepository
	Crawler   *backloggd.Crawler
	ExportDir string
	Logger    *zap.Logger
}

type SyncResult struct {
	Username    string         `json:"username"`
	Entries     int            `json:"entries"`
	ByStatus    map[string]int `json:"by_status"`
	JournalHits int            `json:"journal_hits"`
	ExportPath  string         `json:"export_path,omitempty"`
	Error       string         `json:"error,omitempty"`
}

func (s *CrawlSyncService) SyncUser(ctx context.Context, username string) (SyncResult, error) {
	result := SyncResult{Username: username}

	entries, err := s.Crawler.Profile(ctx, username)
	if err != nil {
		s.writeCrawlError(ctx, username, err)
		result.Error = err.Error()
		return result, err
	}

	if err := s.Ingest(ctx, entries); err != nil {
		s.writeCrawlError(ctx, username, err)
		result.Error = err.Error()
		return result, err
	}

	result.Entries = len(entries)
	result.ByStatus = make(map[string]int)
	for _, entry := range entries {
		result.ByStatus[string(entry.Status)]++
		if entry.StartDate != nil || entry.FinishDate != nil {
			result.JournalHits++
		}
	}

	if s.ExportDir != "" {
		path, err := export.WriteUserExport(s.ExportDir, username, entries)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("user export failed", zap.String("username", username), zap.Error(err))
			}
		} else {
			result.ExportPath = path
		}
	}

	now := time.Now().UTC()
	state := &models.CrawlState{
		Username:      username,
		LastAttemptAt: &now,
		LastSuccessAt: &now,
		StatsJSON:     statsJSON(result),
	}
	if err := s.Store.SaveCrawlState(ctx, state); err != nil && s.Logger != nil {
		s.Logger.Warn("crawl state save failed", zap.String("username", username), zap.Error(err))
	}

	return result, nil
}

// SyncAll crawls every configured username; one user's failure is recorded
// and does not stop the rest.
func (s *CrawlSyncService) SyncAll(ctx context.Context, usernames []string) []SyncResult {
	results := make([]SyncResult, 0, len(usernames))
	for _, username := range usernames {
		result, err := s.SyncUser(ctx, username)
		if err != nil && s.Logger != nil {
			s.Logger.Warn("user sync failed", zap.String("username", username), zap.Error(err))
		}
		results = append(results, result)
		if ctx.Err() != nil {
			break
		}
	}
	return results
}

// Ingest upserts merged crawl records: games insert-if-absent, ratings
// last-write-wins, all inside one transaction so a crash never leaves a
// half-ingested user visible.
func (s *CrawlSyncService) Ingest(ctx context.Context, entries []backloggd.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(entries))
	games := make([]models.Game, 0, len(entries))
	ratings := make([]models.UserRating, 0, len(entries))
	for _, entry := range entries {
		if !seen[entry.GameID] {
			seen[entry.GameID] = true
			games = append(games, models.Game{
				GameID:   entry.GameID,
				GameName: entry.Game,
			})
		}
		ratings = append(ratings, models.UserRating{
			Username:   entry.Username,
			GameID:     entry.GameID,
			Rating:     entry.Rating,
			Status:     entry.Status,
			StartDate:  entry.StartDate,
			FinishDate: entry.FinishDate,
		})
	}

	return s.Store.InTx(ctx, func(tx *gorm.DB) error {
		if err := s.Store.InsertGamesTx(ctx, tx, games); err != nil {
			return err
		}
		return s.Store.UpsertUserRatingsTx(ctx, tx, ratings)
	})
}

// ImportDir ingests previously written per-user exports, one transaction
// per file.
func (s *CrawlSyncService) ImportDir(ctx context.Context, dir string) (int, error) {
	paths, err := export.ListUserExports(dir)
	if err != nil {
		return 0, err
	}
	imported := 0
	for _, path := range paths {
		entries, err := export.ReadUserExport(path)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("export import failed", zap.String("path", path), zap.Error(err))
			}
			continue
		}
		if err := s.Ingest(ctx, entries); err != nil {
			if s.Logger != nil {
				s.Logger.Warn("export ingest failed", zap.String("path", path), zap.Error(err))
			}
			continue
		}
		imported++
	}
	return imported, nil
}

func (s *CrawlSyncService) writeCrawlError(ctx context.Context, username string, err error) {
	if s.Logger != nil {
		s.Logger.Warn("crawl failed", zap.String("username", username), zap.Error(err))
	}
	_ = s.Store.SaveCrawlFailure(ctx, username, time.Now().UTC(), err.Error())
}

func statsJSON(result SyncResult) datatypes.JSON {
	raw, err := json.Marshal(map[string]any{
		"entries":      result.Entries,
		"by_status":    result.ByStatus,
		"journal_hits": result.JournalHits,
	})
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
