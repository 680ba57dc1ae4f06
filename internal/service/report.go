package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/obviyus/pg-backloggd/internal/export"
	"github.com/obviyus/pg-backloggd/internal/models"
	"github.com/obviyus/pg-backloggd/internal/repository"
)

const (
	recommendThreshold = 8
	dislikeThreshold   = 4
)

// ReportService builds the cross-user recommendation dataset. Only games
// somebody rated highly make the cut; the report answers "what should I
// play next", not "what does everyone own".
type ReportService struct {
	Store             repository.LibraryRepository
	NameSubstitutions map[string]string
}

type ReportRow struct {
	Title         string          `json:"title"`
	RecommendedBy []string        `json:"recommended_by"`
	DislikedBy    []string        `json:"disliked_by"`
	AvgScore      decimal.Decimal `json:"avg_score"`
	WantsToPlay   []string        `json:"wants_to_play"`
	PlayedBy      []string        `json:"played_by"`
	ReleaseDate   string          `json:"release_date,omitempty"`
	IGDBURL       string          `json:"igdb_url,omitempty"`
	SteamURL      string          `json:"steam_url,omitempty"`
}

func (s *ReportService) Build(ctx context.Context) ([]ReportRow, error) {
	groups, err := s.Store.ListGameRatings(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]ReportRow, 0, len(groups))
	for _, group := range groups {
		var recommended, disliked, wants, played []string
		sum := 0
		count := 0
		for _, r := range group.Ratings {
			if r.Rating != nil {
				sum += *r.Rating
				count++
				if *r.Rating >= recommendThreshold {
					recommended = append(recommended, r.Username)
				}
				if *r.Rating <= dislikeThreshold {
					disliked = append(disliked, r.Username)
				}
			}
			switch r.Status {
			case models.StatusWishlist:
				wants = append(wants, r.Username)
			case models.StatusPlayed:
				played = append(played, r.Username)
			}
		}
		if len(recommended) == 0 {
			continue
		}

		row := ReportRow{
			Title:         group.Game.GameName,
			RecommendedBy: s.displayNames(recommended),
			DislikedBy:    s.displayNames(disliked),
			AvgScore:      decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(count))).Round(2),
			WantsToPlay:   s.displayNames(wants),
			PlayedBy:      s.displayNames(played),
		}
		if group.Game.FirstReleaseDate != nil {
			row.ReleaseDate = time.Unix(*group.Game.FirstReleaseDate, 0).UTC().Format("2006-01-02")
		}
		if group.Game.IGDBURL != nil {
			row.IGDBURL = *group.Game.IGDBURL
		}
		if group.Game.SteamURL != nil {
			row.SteamURL = *group.Game.SteamURL
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteCSV renders the report to the recommendation export file.
func (s *ReportService) WriteCSV(ctx context.Context, path string) (int, error) {
	rows, err := s.Build(ctx)
	if err != nil {
		return 0, err
	}

	records := make([]export.RecommendationRow, 0, len(rows))
	for _, row := range rows {
		records = append(records, export.RecommendationRow{
			Title:         row.Title,
			RecommendedBy: strings.Join(row.RecommendedBy, ", "),
			DislikedBy:    strings.Join(row.DislikedBy, ", "),
			AvgScore:      row.AvgScore.String(),
			WantsToPlay:   strings.Join(row.WantsToPlay, ", "),
			PlayedBy:      strings.Join(row.PlayedBy, ", "),
			ReleaseDate:   row.ReleaseDate,
			IGDBURL:       row.IGDBURL,
			SteamURL:      row.SteamURL,
		})
	}
	if err := export.WriteRecommendations(path, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// displayNames substitutes preferred names and de-duplicates while keeping
// first-seen order; two usernames mapping to one display name collapse.
func (s *ReportService) displayNames(usernames []string) []string {
	if len(usernames) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(usernames))
	out := make([]string, 0, len(usernames))
	for _, username := range usernames {
		name := username
		if preferred, ok := s.NameSubstitutions[username]; ok {
			name = preferred
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
