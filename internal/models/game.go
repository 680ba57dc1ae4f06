package models

type Game struct {
	GameID   string `gorm:"primaryKey;column:game_id;type:text"`
	GameName string `gorm:"column:game_name;type:text;not null"`

	// Enrichment fields filled once by the IGDB pass; NULL until then.
	IGDBURL          *string `gorm:"column:igdb_url;type:text"`
	FirstReleaseDate *int64  `gorm:"column:first_release_date"`
	SteamURL         *string `gorm:"column:steam_url;type:text"`
}

func (Game) TableName() string {
	return "games"
}

func (g *Game) Enriched() bool {
	return g != nil && g.IGDBURL != nil
}
