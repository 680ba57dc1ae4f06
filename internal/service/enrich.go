package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/obviyus/pg-backloggd/internal/client/igdb"
	"github.com/obviyus/pg-backloggd/internal/client/twitch"
	"github.com/obviyus/pg-backloggd/internal/repository"
)

// EnrichService fills the IGDB metadata of games that have none yet. Each
// successful lookup is committed on its own, so a crash mid-run loses at
// most the in-flight item. Items are paced through the limiter to stay
// inside the provider's implicit rate budget even without 429 responses.
type EnrichService struct {
	Store  repository.LibraryRepository
	Tokens *twitch.Client
	IGDB   *igdb.Client
	Pace   *rate.Limiter
	Logger *zap.Logger
}

type EnrichResult struct {
	Candidates int `json:"candidates"`
	Enriched   int `json:"enriched"`
	NotFound   int `json:"not_found"`
	Errors     int `json:"errors"`
}

func (s *EnrichService) Run(ctx context.Context) (EnrichResult, error) {
	result := EnrichResult{}
	if s.Tokens == nil || s.IGDB == nil {
		return result, fmt.Errorf("enrichment clients not configured")
	}

	// Auth failure is fatal for the whole run: no token, no enrichment.
	token, err := s.Tokens.Token(ctx)
	if err != nil {
		return result, fmt.Errorf("enrichment aborted: %w", err)
	}

	games, err := s.Store.ListUnenrichedGames(ctx)
	if err != nil {
		return result, err
	}
	result.Candidates = len(games)

	for _, game := range games {
		if s.Pace != nil {
			if err := s.Pace.Wait(ctx); err != nil {
				return result, err
			}
		}

		info, err := s.IGDB.GameInfo(ctx, game.GameID, token)
		if err != nil {
			result.Errors++
			if s.Logger != nil {
				if errors.Is(err, igdb.ErrMaxRetries) {
					s.Logger.Warn("max retries reached",
						zap.String("game_id", game.GameID))
				} else {
					s.Logger.Warn("lookup failed, skipping game",
						zap.String("game_id", game.GameID),
						zap.Error(err))
				}
			}
			continue
		}

		if info.IGDBURL == "" {
			result.NotFound++
			if s.Logger != nil {
				s.Logger.Debug("no catalog record", zap.String("game_id", game.GameID))
			}
			continue
		}

		if err := s.Store.SetGameEnrichment(ctx, game.GameID, info.IGDBURL, info.FirstReleaseDate, info.SteamURL); err != nil {
			result.Errors++
			if s.Logger != nil {
				s.Logger.Warn("enrichment write failed",
					zap.String("game_id", game.GameID),
					zap.Error(err))
			}
			continue
		}
		result.Enriched++
	}

	return result, nil
}
