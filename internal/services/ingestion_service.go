package services

import (
	"fmt"
	"net/http"
	"time"

	types "github.com/yungbote/fitlol-ingest/internal/domain"
	"github.com/yungbote/fitlol-ingest/internal/platform/apierr"
	"github.com/yungbote/fitlol-ingest/internal/platform/ctxutil"
	"github.com/yungbote/fitlol-ingest/internal/platform/dbctx"
	"github.com/yungbote/fitlol-ingest/internal/platform/logger"
)

// JobTypeIngestLatest pulls the newest matches for one summoner.
const JobTypeIngestLatest = "ingest.summoner.latest"

// IngestionSubmission is the request to ingest a summoner's latest matches.
type IngestionSubmission struct {
	SummonerName string `json:"summonerName"`
	Tag          string `json:"tag"`
	Count        int    `json:"count"`
	Force        bool   `json:"force"`
	DelaySeconds int    `json:"delaySeconds"`
}

// IngestionConfig is the operational surface echoed on /ingestion/config.
type IngestionConfig struct {
	Queue        string
	Concurrency  int
	DefaultCount int
	MaxPerRun    int
}

type IngestionService interface {
	Submit(dbc dbctx.Context, sub IngestionSubmission) (*types.JobRun, error)
	Summary(dbc dbctx.Context) (map[string]int64, error)
	Config() map[string]any
}

type ingestionService struct {
	log  *logger.Logger
	cfg  IngestionConfig
	jobs JobService
}

func NewIngestionService(baseLog *logger.Logger, cfg IngestionConfig, jobs JobService) IngestionService {
	if cfg.DefaultCount <= 0 {
		cfg.DefaultCount = 10
	}
	if cfg.MaxPerRun <= 0 {
		cfg.MaxPerRun = cfg.DefaultCount
	}
	return &ingestionService{
		log:  baseLog.With("service", "IngestionService"),
		cfg:  cfg,
		jobs: jobs,
	}
}

func (s *ingestionService) Submit(dbc dbctx.Context, sub IngestionSubmission) (*types.JobRun, error) {
	if sub.SummonerName == "" || sub.Tag == "" {
		return nil, apierr.New(http.StatusBadRequest, apierr.CodeInvalidInput,
			fmt.Errorf("summonerName and tag are required"))
	}
	count := sub.Count
	if count <= 0 {
		count = s.cfg.DefaultCount
	}
	if count > s.cfg.MaxPerRun {
		count = s.cfg.MaxPerRun
	}

	requestedBy := "system"
	if rd := ctxutil.GetRequestData(dbc.Ctx); rd != nil && rd.Subject != "" {
		requestedBy = rd.Subject
	}

	payload := map[string]any{
		"summonerName": sub.SummonerName,
		"tag":          sub.Tag,
		"count":        count,
		"force":        sub.Force,
		"requestedBy":  requestedBy,
	}
	opts := EnqueueOptions{}
	if sub.DelaySeconds > 0 {
		opts.Delay = time.Duration(sub.DelaySeconds) * time.Second
	}
	return s.jobs.Enqueue(dbc, JobTypeIngestLatest, requestedBy, payload, opts)
}

func (s *ingestionService) Summary(dbc dbctx.Context) (map[string]int64, error) {
	return s.jobs.Counts(dbc)
}

// Config exposes the non-secret knobs so operators can verify a deployment
// without shelling into it.
func (s *ingestionService) Config() map[string]any {
	return map[string]any{
		"QUEUE_PREFIX":                  s.cfg.Queue,
		"WORKER_CONCURRENCY":            s.cfg.Concurrency,
		"INGESTION_DEFAULT_COUNT":       s.cfg.DefaultCount,
		"INGESTION_MAX_MATCHES_PER_RUN": s.cfg.MaxPerRun,
	}
}
