package worker

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	jobsrepo "github.com/yungbote/fitlol-ingest/internal/data/repos/jobs"
	types "github.com/yungbote/fitlol-ingest/internal/domain"
	"github.com/yungbote/fitlol-ingest/internal/jobs/runtime"
	"github.com/yungbote/fitlol-ingest/internal/platform/dbctx"
	"github.com/yungbote/fitlol-ingest/internal/platform/envutil"
	"github.com/yungbote/fitlol-ingest/internal/platform/logger"
	"github.com/yungbote/fitlol-ingest/internal/services"
)

type Options struct {
	Queue        string
	Concurrency  int
	PollInterval time.Duration
	MaxAttempts  int
	RetryDelay   time.Duration
	StaleRunning time.Duration
	Heartbeat    time.Duration
}

func OptionsFromEnv(queue string) Options {
	return Options{
		Queue:        queue,
		Concurrency:  envutil.Int("WORKER_CONCURRENCY", 5),
		PollInterval: envutil.Duration("WORKER_POLL_INTERVAL", time.Second),
		MaxAttempts:  envutil.Int("JOB_MAX_ATTEMPTS", 5),
		RetryDelay:   envutil.Duration("JOB_RETRY_DELAY", 30*time.Second),
		StaleRunning: envutil.Duration("JOB_STALE_RUNNING", 30*time.Minute),
		Heartbeat:    envutil.Duration("JOB_HEARTBEAT_INTERVAL", 30*time.Second),
	}
}

func (o *Options) normalize() {
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 1
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 30 * time.Second
	}
	if o.StaleRunning <= 0 {
		o.StaleRunning = 30 * time.Minute
	}
	if o.Heartbeat <= 0 {
		o.Heartbeat = 30 * time.Second
	}
}

// Worker polls the queue from a fixed pool of goroutines and dispatches
// claimed jobs to registered handlers.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	opts     Options
	repo     jobsrepo.JobRunRepo
	events   jobsrepo.JobRunEventRepo
	registry *runtime.Registry
	notify   services.JobNotifier
}

func NewWorker(
	db *gorm.DB,
	baseLog *logger.Logger,
	opts Options,
	repo jobsrepo.JobRunRepo,
	events jobsrepo.JobRunEventRepo,
	registry *runtime.Registry,
	notify services.JobNotifier,
) *Worker {
	opts.normalize()
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "JobWorker"),
		opts:     opts,
		repo:     repo,
		events:   events,
		registry: registry,
		notify:   notify,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting job worker pool",
		"queue", w.opts.Queue,
		"concurrency", w.opts.Concurrency,
		"job_types", w.registry.Types(),
	)
	for i := 0; i < w.opts.Concurrency; i++ {
		workerID := i + 1
		go w.runLoop(ctx, workerID)
	}
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			job, err := w.repo.ClaimNextRunnable(
				dbctx.Context{Ctx: ctx},
				w.opts.Queue,
				w.registry.Types(),
				w.opts.MaxAttempts,
				w.opts.RetryDelay,
				w.opts.StaleRunning,
			)
			if err != nil {
				w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
				continue
			}
			if job == nil {
				continue
			}
			w.execute(ctx, workerID, job)
		}
	}
}

func (w *Worker) execute(ctx context.Context, workerID int, job *types.JobRun) {
	h, ok := w.registry.Get(job.JobType)
	jc := runtime.NewContext(ctx, w.db, job, w.repo, w.events, w.notify)

	if !ok {
		w.log.Warn("No handler registered for job_type",
			"worker_id", workerID,
			"job_type", job.JobType,
			"job_id", job.ID,
		)
		jc.Fail("dispatch", &missingHandlerError{JobType: job.JobType})
		return
	}

	// Keep the lease alive even when the handler goes a long time between
	// Progress calls (a rate-limit backoff can stall a run for minutes).
	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	go w.heartbeatLoop(hbCtx, job)
	defer stopHeartbeat()

	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Job handler panic",
				"worker_id", workerID,
				"job_id", job.ID,
				"job_type", job.JobType,
				"panic", r,
			)
			jc.Fail("panic", errFromRecover(r))
		}
	}()

	if runErr := h.Run(jc); runErr != nil {
		// Most processors call jc.Fail themselves; this is a safety net.
		jc.Fail("run", runErr)
	}
}

func (w *Worker) heartbeatLoop(ctx context.Context, job *types.JobRun) {
	ticker := time.NewTicker(w.opts.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.repo.Heartbeat(dbctx.Context{Ctx: ctx}, job.ID); err != nil {
				w.log.Warn("Heartbeat failed", "job_id", job.ID, "error", err)
			}
		}
	}
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string { return "no handler registered for job_type=" + e.JobType }

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
