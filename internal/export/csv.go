package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/obviyus/pg-backloggd/internal/crawler/backloggd"
	"github.com/obviyus/pg-backloggd/internal/models"
)

var userExportHeader = []string{
	"Username", "Game", "Status", "Rating", "Game ID", "Start date", "Finish date",
}

var recommendationHeader = []string{
	"Title", "Recommended By", "Disliked By", "Avg Score",
	"Wants To Play", "Played By", "Release Date", "IGDB URL", "Steam URL",
}

// RecommendationRow is one rendered line of the recommendation export.
type RecommendationRow struct {
	Title         string
	RecommendedBy string
	DislikedBy    string
	AvgScore      string
	WantsToPlay   string
	PlayedBy      string
	ReleaseDate   string
	IGDBURL       string
	SteamURL      string
}

// WriteUserExport writes one user's merged crawl records to
// <dir>/<username>.csv. Optional fields are written empty.
func WriteUserExport(dir, username string, entries []backloggd.Entry) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}
	path := filepath.Join(dir, username+".csv")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(userExportHeader); err != nil {
		return "", err
	}
	for _, entry := range entries {
		record := []string{
			entry.Username,
			entry.Game,
			string(entry.Status),
			intField(entry.Rating),
			entry.GameID,
			strField(entry.StartDate),
			strField(entry.FinishDate),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	return path, w.Error()
}

// ReadUserExport reads a per-user export back into crawl records so a
// previously exported file can seed a fresh store.
func ReadUserExport(path string) ([]backloggd.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read export file: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range userExportHeader[:5] {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("export file missing column %q", required)
		}
	}

	entries := make([]backloggd.Entry, 0, len(records)-1)
	for _, record := range records[1:] {
		entry := backloggd.Entry{
			Username: field(record, col, "Username"),
			Game:     field(record, col, "Game"),
			Status:   models.Status(field(record, col, "Status")),
			GameID:   field(record, col, "Game ID"),
		}
		if entry.Game == "" || entry.GameID == "" {
			continue
		}
		if raw := field(record, col, "Rating"); raw != "" {
			if rating, err := strconv.Atoi(raw); err == nil {
				entry.Rating = &rating
			}
		}
		if v := field(record, col, "Start date"); v != "" {
			entry.StartDate = &v
		}
		if v := field(record, col, "Finish date"); v != "" {
			entry.FinishDate = &v
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ListUserExports returns the per-user export files under dir.
func ListUserExports(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// WriteRecommendations writes the cross-user recommendation export.
func WriteRecommendations(path string, rows []RecommendationRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create recommendations file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(recommendationHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.Title,
			row.RecommendedBy,
			row.DislikedBy,
			row.AvgScore,
			row.WantsToPlay,
			row.PlayedBy,
			row.ReleaseDate,
			row.IGDBURL,
			row.SteamURL,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func field(record []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func intField(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func strField(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
