package backloggd

import (
	"github.com/obviyus/pg-backloggd/internal/models"
)

// Entry is one merged crawl record: a category listing row with the
// journal-derived play window attached when the journal had one.
type Entry struct {
	Username   string
	Game       string
	Status     models.Status
	Rating     *int
	GameID     string
	StartDate  *string
	FinishDate *string
}

type categoryEntry struct {
	Game   string
	Status models.Status
	Rating *int
	GameID string
}

type journalRecord struct {
	Game       string
	StartedOn  *string
	FinishedOn *string
}

// session owns the accumulators for one crawl; it exists only for the
// duration of a Profile call, so no state leaks across users.
type session struct {
	username   string
	categories []categoryEntry
	journal    map[string]journalRecord
}
