package models

type Status string

const (
	StatusPlayed   Status = "Played"
	StatusPlaying  Status = "Playing"
	StatusBacklog  Status = "Backlog"
	StatusWishlist Status = "Wishlist"
	StatusUnknown  Status = "Unknown"
)

type UserRating struct {
	Username string `gorm:"primaryKey;type:text"`
	GameID   string `gorm:"primaryKey;column:game_id;type:text;index"`
	Rating   *int   `gorm:"column:rating"`
	Status   Status `gorm:"type:text;not null"`

	// Journal-derived play window, kept as the site renders it
	// (e.g. "Feb 20, 2024"); NULL when the journal had no entry.
	StartDate  *string `gorm:"column:start_date;type:text"`
	FinishDate *string `gorm:"column:finish_date;type:text"`
}

func (UserRating) TableName() string {
	return "user_ratings"
}
