package worker

import (
	"context"
	"time"

	jobsrepo "github.com/yungbote/fitlol-ingest/internal/data/repos/jobs"
	types "github.com/yungbote/fitlol-ingest/internal/domain"
	"github.com/yungbote/fitlol-ingest/internal/platform/dbctx"
	"github.com/yungbote/fitlol-ingest/internal/platform/envutil"
	"github.com/yungbote/fitlol-ingest/internal/platform/logger"
)

type JanitorOptions struct {
	Queue              string
	Interval           time.Duration
	CompletedRetention time.Duration
	FailedRetention    time.Duration
}

func JanitorOptionsFromEnv(queue string) JanitorOptions {
	return JanitorOptions{
		Queue:              queue,
		Interval:           envutil.Duration("JOB_GC_INTERVAL", 5*time.Minute),
		CompletedRetention: envutil.Duration("JOB_COMPLETED_RETENTION", time.Hour),
		FailedRetention:    envutil.Duration("JOB_FAILED_RETENTION", 24*time.Hour),
	}
}

// Janitor prunes terminal job rows (and their event ledgers) once they age
// out of their retention window. Failed rows are kept longer than succeeded
// ones so operators can still read the failure reason.
type Janitor struct {
	log  *logger.Logger
	opts JanitorOptions
	repo jobsrepo.JobRunRepo
}

func NewJanitor(baseLog *logger.Logger, opts JanitorOptions, repo jobsrepo.JobRunRepo) *Janitor {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.CompletedRetention <= 0 {
		opts.CompletedRetention = time.Hour
	}
	if opts.FailedRetention <= 0 {
		opts.FailedRetention = 24 * time.Hour
	}
	return &Janitor{
		log:  baseLog.With("component", "JobJanitor"),
		opts: opts,
		repo: repo,
	}
}

func (j *Janitor) Start(ctx context.Context) {
	go j.runLoop(ctx)
}

func (j *Janitor) runLoop(ctx context.Context) {
	ticker := time.NewTicker(j.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info("Janitor stopped")
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs one retention pass.
func (j *Janitor) Sweep(ctx context.Context) {
	now := time.Now()
	dbc := dbctx.Context{Ctx: ctx}

	if n, err := j.repo.PruneTerminalBefore(dbc, j.opts.Queue, types.JobStatusSucceeded, now.Add(-j.opts.CompletedRetention)); err != nil {
		j.log.Warn("Prune succeeded jobs failed", "error", err)
	} else if n > 0 {
		j.log.Info("Pruned succeeded jobs", "count", n)
	}

	if n, err := j.repo.PruneTerminalBefore(dbc, j.opts.Queue, types.JobStatusFailed, now.Add(-j.opts.FailedRetention)); err != nil {
		j.log.Warn("Prune failed jobs failed", "error", err)
	} else if n > 0 {
		j.log.Info("Pruned failed jobs", "count", n)
	}
}
