package ingest

import (
	"time"
)

// Summoner is a tracked player, keyed by the provider-global puuid.
// Rows are only ever upserted by the pipeline, never deleted.
type Summoner struct {
	PUUID        string    `gorm:"column:puuid;primaryKey" json:"puuid"`
	SummonerName string    `gorm:"column:summoner_name;index" json:"summoner_name"`
	TagLine      string    `gorm:"column:tag_line" json:"tag_line,omitempty"`
	CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Summoner) TableName() string { return "summoner" }
