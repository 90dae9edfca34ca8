package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/fitlol-ingest/internal/clients/riot"
	"github.com/yungbote/fitlol-ingest/internal/jobs/ingest"
	"github.com/yungbote/fitlol-ingest/internal/jobs/runtime"
	"github.com/yungbote/fitlol-ingest/internal/jobs/worker"
	"github.com/yungbote/fitlol-ingest/internal/platform/logger"
	"github.com/yungbote/fitlol-ingest/internal/realtime"
	"github.com/yungbote/fitlol-ingest/internal/realtime/bus"
	"github.com/yungbote/fitlol-ingest/internal/services"
)

type Services struct {
	Bus       bus.Bus
	Notifier  services.JobNotifier
	Persist   services.PersistService
	Jobs      services.JobService
	Ingestion services.IngestionService
	Registry  *runtime.Registry
	Worker    *worker.Worker
	Janitor   *worker.Janitor
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, hub *realtime.SSEHub) (Services, error) {
	log.Info("Wiring services...")

	sseBus, err := bus.NewRedisBus(log)
	if err != nil {
		log.Info("SSE bus disabled", "reason", err.Error())
		sseBus = nil
	}
	notifier := services.NewJobNotifier(hub, sseBus, log)

	persist := services.NewPersistService(db, log, r.Summoner, r.Match, r.Cursor)
	jobSvc := services.NewJobService(db, log, cfg.Queue, r.JobRun, r.JobRunEvent, notifier)

	workerOpts := worker.OptionsFromEnv(cfg.Queue)
	ingestion := services.NewIngestionService(log, services.IngestionConfig{
		Queue:        cfg.Queue,
		Concurrency:  workerOpts.Concurrency,
		DefaultCount: cfg.IngestionDefaultCount,
		MaxPerRun:    cfg.IngestionMaxPerRun,
	}, jobSvc)

	riotCfg := riot.ConfigFromEnv()
	if riotCfg.APIKey == "" {
		log.Warn("RIOT_API_KEY not set, ingestion runs will fail at the upstream API")
	}
	riotClient := riot.New(riotCfg, log)

	registry := runtime.NewRegistry()
	if err := registry.Register(ingest.NewLatestHandler(log, riotClient, persist, cfg.IngestionDefaultCount)); err != nil {
		return Services{}, err
	}

	return Services{
		Bus:       sseBus,
		Notifier:  notifier,
		Persist:   persist,
		Jobs:      jobSvc,
		Ingestion: ingestion,
		Registry:  registry,
		Worker:    worker.NewWorker(db, log, workerOpts, r.JobRun, r.JobRunEvent, registry, notifier),
		Janitor:   worker.NewJanitor(log, worker.JanitorOptionsFromEnv(cfg.Queue), r.JobRun),
	}, nil
}
