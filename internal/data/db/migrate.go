package db

import (
	types "github.com/yungbote/fitlol-ingest/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Match-history data
		&types.Summoner{},
		&types.Match{},
		&types.MatchParticipant{},
		&types.IngestionCursor{},

		// Job queue
		&types.JobRun{},
		&types.JobRunEvent{},
	)
}
