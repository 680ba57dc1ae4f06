package igdb

// GameInfo is the enrichment result for one game. A zero IGDBURL means the
// catalog had no record for the id (terminal not-found, not an error).
type GameInfo struct {
	IGDBURL          string
	FirstReleaseDate *int64
	SteamURL         *string
}

type gameRecord struct {
	URL              string    `json:"url"`
	FirstReleaseDate *int64    `json:"first_release_date"`
	Websites         []website `json:"websites"`
}

type website struct {
	URL string `json:"url"`
}
