package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/fitlol-ingest/internal/data/repos"
	jobsrepo "github.com/yungbote/fitlol-ingest/internal/data/repos/jobs"
	"github.com/yungbote/fitlol-ingest/internal/platform/logger"
)

type Repos struct {
	Summoner    repos.SummonerRepo
	Match       repos.MatchRepo
	Cursor      repos.IngestionCursorRepo
	JobRun      jobsrepo.JobRunRepo
	JobRunEvent jobsrepo.JobRunEventRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Summoner:    repos.NewSummonerRepo(db, log),
		Match:       repos.NewMatchRepo(db, log),
		Cursor:      repos.NewIngestionCursorRepo(db, log),
		JobRun:      jobsrepo.NewJobRunRepo(db, log),
		JobRunEvent: jobsrepo.NewJobRunEventRepo(db, log),
	}
}
