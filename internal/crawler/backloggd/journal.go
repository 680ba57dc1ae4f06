package backloggd

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

var slugPattern = regexp.MustCompile(`[^a-zA-Z0-9]`)

// walkJournal reads the single journal listing page and, for each distinct
// game, visits its log page to recover the play window. The journal lists
// the most recent status change first, so the first occurrence of a title
// wins and later ones are skipped.
func (c *Crawler) walkJournal(ctx context.Context, sess *session) {
	journalURL := fmt.Sprintf("%s/u/%s/journal/", c.baseURL, url.PathEscape(sess.username))
	doc, err := c.fetchDoc(ctx, journalURL)
	if err != nil {
		c.logger.Warn("journal fetch failed, skipping journal branch",
			zap.String("url", journalURL),
			zap.Error(err))
		return
	}

	seen := make(map[string]bool)
	doc.Find("div.journal_entry").Each(func(_ int, entry *goquery.Selection) {
		title := strings.TrimSpace(entry.Find("div.game-name a").First().Text())
		if title == "" {
			return
		}

		cleaned := cleanTitle(title)
		if seen[cleaned] {
			return
		}
		seen[cleaned] = true

		logURL := fmt.Sprintf("%s/u/%s/logs/%s/",
			c.baseURL, url.PathEscape(sess.username), titleSlug(cleaned))
		logDoc, err := c.fetchDoc(ctx, logURL)
		if err != nil {
			c.logger.Warn("log page fetch failed, skipping game",
				zap.String("game", title),
				zap.String("url", logURL),
				zap.Error(err))
			return
		}

		started, finished := playedDates(logDoc)
		sess.journal[title] = journalRecord{
			Game:       title,
			StartedOn:  started,
			FinishedOn: finished,
		}
	})
}

// cleanTitle strips characters that are unsafe for log URL construction;
// the site drops colons from its slugs.
func cleanTitle(title string) string {
	return strings.ReplaceAll(title, ":", "")
}

func titleSlug(cleaned string) string {
	return slugPattern.ReplaceAllString(strings.ToLower(cleaned), "-")
}

// playedDates recovers the first/last played dates from a log page. The
// page structure is external and varies; this is a best-effort heuristic,
// not a guaranteed parse:
//
//   - the first labeled date block sets the first played date and records
//     whether its label said "started", "finished", or both
//   - any later date block becomes the last played date
//   - with no second block, an alternate page region may hold a single date
//   - if both labels matched in the first pass the game was started and
//     finished in one session, so the last date collapses onto the first
func playedDates(doc *goquery.Document) (*string, *string) {
	var firstDate, lastDate string
	var startedFound, finishedFound bool

	doc.Find("div.col.mt-2.mt-lg-0").Each(func(_ int, candidate *goquery.Selection) {
		dateElem := candidate.Find("p.date-tooltip.right-tooltip").First()
		if dateElem.Length() == 0 {
			return
		}
		date := strings.TrimSpace(dateElem.Text())
		if date == "" {
			return
		}

		if firstDate == "" {
			label := strings.ToLower(statusLabel(candidate))
			hasStarted := strings.Contains(label, "started")
			hasFinished := strings.Contains(label, "finished")
			if hasStarted || hasFinished {
				firstDate = date
				startedFound = hasStarted
				finishedFound = hasFinished
			}
			return
		}
		lastDate = date
	})

	if lastDate == "" {
		fallback := doc.Find("div.col.mt-2.mt-sm-0").First().
			Find("p.date-tooltip.right-tooltip").First()
		lastDate = strings.TrimSpace(fallback.Text())
	}

	if startedFound && finishedFound {
		lastDate = firstDate
	}

	return optional(firstDate), optional(lastDate)
}

// statusLabel finds the status text paired with a date block: the next
// matching sibling first, then anywhere under the shared row.
func statusLabel(candidate *goquery.Selection) string {
	label := candidate.NextAllFiltered("div.order-md-last").First()
	if label.Length() == 0 {
		label = candidate.Parent().Find("div.order-md-last").First()
	}
	return strings.TrimSpace(label.Text())
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
