package backloggd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/obviyus/pg-backloggd/internal/models"
)

const DefaultBaseURL = "https://www.backloggd.com"

var categoryStatuses = []models.Status{
	models.StatusPlayed,
	models.StatusPlaying,
	models.StatusBacklog,
	models.StatusWishlist,
}

type Crawler struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func New(httpClient *http.Client, baseURL string, logger *zap.Logger) *Crawler {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Profile walks the four category listings and the journal for one username
// and returns the merged records, sorted by (status, title). A page fetch
// failure ends that branch early; the other branches still run.
func (c *Crawler) Profile(ctx context.Context, username string) ([]Entry, error) {
	if strings.TrimSpace(username) == "" {
		return nil, fmt.Errorf("username is required")
	}

	sess := &session{
		username: username,
		journal:  make(map[string]journalRecord),
	}

	for _, status := range categoryStatuses {
		c.walkCategory(ctx, sess, status)
	}
	c.walkJournal(ctx, sess)

	return sess.merge(), nil
}

func (c *Crawler) walkCategory(ctx context.Context, sess *session, status models.Status) {
	pageURL := fmt.Sprintf("%s/u/%s/games/added/type:%s/",
		c.baseURL, url.PathEscape(sess.username), strings.ToLower(string(status)))

	for pageURL != "" {
		doc, err := c.fetchDoc(ctx, pageURL)
		if err != nil {
			c.logger.Warn("category page fetch failed, ending branch",
				zap.String("status", string(status)),
				zap.String("url", pageURL),
				zap.Error(err))
			return
		}

		doc.Find("div.card.mx-auto.game-cover").Each(func(_ int, card *goquery.Selection) {
			entry, ok := parseCard(card, status)
			if !ok {
				c.logger.Debug("skipping malformed card", zap.String("url", pageURL))
				return
			}
			sess.categories = append(sess.categories, entry)
		})

		pageURL = nextPageURL(doc, pageURL)
	}
}

func parseCard(card *goquery.Selection, status models.Status) (categoryEntry, bool) {
	title := strings.TrimSpace(card.Find("div.game-text-centered").First().Text())
	gameID, _ := card.Attr("game_id")
	if title == "" || gameID == "" {
		return categoryEntry{}, false
	}

	entry := categoryEntry{
		Game:   title,
		Status: status,
		GameID: gameID,
	}
	if raw, ok := card.Attr("data-rating"); ok {
		if rating, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			entry.Rating = &rating
		}
	}
	return entry, true
}

func nextPageURL(doc *goquery.Document, current string) string {
	href, ok := doc.Find(`a[rel="next"]`).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return ""
	}
	base, err := url.Parse(current)
	if err != nil {
		return ""
	}
	next, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(next).String()
}

func (c *Crawler) fetchDoc(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return doc, nil
}

// merge attaches journal dates to category entries by exact title match.
// Journal-only games are dropped; category-only games keep nil dates.
func (s *session) merge() []Entry {
	entries := make([]Entry, 0, len(s.categories))
	for _, cat := range s.categories {
		entry := Entry{
			Username: s.username,
			Game:     cat.Game,
			Status:   cat.Status,
			Rating:   cat.Rating,
			GameID:   cat.GameID,
		}
		if rec, ok := s.journal[cat.Game]; ok {
			entry.StartDate = rec.StartedOn
			entry.FinishDate = rec.FinishedOn
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Status != entries[j].Status {
			return entries[i].Status < entries[j].Status
		}
		return entries[i].Game < entries[j].Game
	})
	return entries
}
