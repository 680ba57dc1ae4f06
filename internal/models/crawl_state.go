package models

import (
	"time"

	"gorm.io/datatypes"
)

type CrawlState struct {
	Username      string         `gorm:"primaryKey;type:text"`
	LastSuccessAt *time.Time     `gorm:"column:last_success_at"`
	LastAttemptAt *time.Time     `gorm:"column:last_attempt_at"`
	LastError     *string        `gorm:"column:last_error;type:text"`
	StatsJSON     datatypes.JSON `gorm:"column:stats_json"`
}

func (CrawlState) TableName() string {
	return "crawl_state"
}
