package ingest

import (
	"time"
)

// IngestionCursor is the per-player bookmark recording how far ingestion has
// progressed. last_match_id is the newest id of the most recent successful
// run (provider ordering), so a later run can decide to skip already-seen
// matches.
type IngestionCursor struct {
	PUUID              string    `gorm:"column:puuid;primaryKey" json:"puuid"`
	LastMatchID        *string   `gorm:"column:last_match_id" json:"last_match_id,omitempty"`
	LastMatchTimestamp *int64    `gorm:"column:last_match_timestamp" json:"last_match_timestamp,omitempty"`
	LastFetchedCount   int       `gorm:"column:last_fetched_count;not null;default:0" json:"last_fetched_count"`
	CreatedAt          time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (IngestionCursor) TableName() string { return "ingestion_cursor" }
