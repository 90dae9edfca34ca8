package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/fitlol-ingest/internal/domain"
	jobsrepo "github.com/yungbote/fitlol-ingest/internal/data/repos/jobs"
	"github.com/yungbote/fitlol-ingest/internal/platform/apierr"
	"github.com/yungbote/fitlol-ingest/internal/platform/ctxutil"
	"github.com/yungbote/fitlol-ingest/internal/platform/dbctx"
	"github.com/yungbote/fitlol-ingest/internal/platform/logger"
)

// Wire states reported by the status surface. Internal statuses stay on the
// row; these are the names clients already speak.
const (
	WireStateWaiting   = "waiting"
	WireStateActive    = "active"
	WireStateCompleted = "completed"
	WireStateFailed    = "failed"
	WireStateDelayed   = "delayed"
)

// WireState maps an internal job status onto its wire name.
func WireState(status string) string {
	switch status {
	case types.JobStatusQueued:
		return WireStateWaiting
	case types.JobStatusRunning:
		return WireStateActive
	case types.JobStatusSucceeded:
		return WireStateCompleted
	case types.JobStatusFailed:
		return WireStateFailed
	case types.JobStatusDelayed:
		return WireStateDelayed
	default:
		return status
	}
}

type EnqueueOptions struct {
	// Delay holds the job out of the runnable set until now+Delay.
	Delay time.Duration
}

// JobStatus is the client-facing view of one job run.
type JobStatus struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	State        string          `json:"state"`
	Progress     int             `json:"progress"`
	AttemptsMade int             `json:"attemptsMade"`
	FailedReason *string         `json:"failedReason"`
	Result       json.RawMessage `json:"result,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type JobService interface {
	Enqueue(dbc dbctx.Context, jobType string, requestedBy string, payload map[string]any, opts EnqueueOptions) (*types.JobRun, error)
	GetByID(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
	Status(dbc dbctx.Context, jobID uuid.UUID) (*JobStatus, error)
	Counts(dbc dbctx.Context) (map[string]int64, error)
	Events(dbc dbctx.Context, jobID uuid.UUID, limit int) ([]*types.JobRunEvent, error)
}

type jobService struct {
	db     *gorm.DB
	log    *logger.Logger
	queue  string
	repo   jobsrepo.JobRunRepo
	events jobsrepo.JobRunEventRepo
	notify JobNotifier
}

func NewJobService(
	db *gorm.DB,
	baseLog *logger.Logger,
	queue string,
	repo jobsrepo.JobRunRepo,
	events jobsrepo.JobRunEventRepo,
	notify JobNotifier,
) JobService {
	return &jobService{
		db:     db,
		log:    baseLog.With("service", "JobService"),
		queue:  queue,
		repo:   repo,
		events: events,
		notify: notify,
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, jobType string, requestedBy string, payload map[string]any, opts EnqueueOptions) (*types.JobRun, error) {
	if jobType == "" {
		return nil, fmt.Errorf("missing job_type")
	}
	if requestedBy == "" {
		requestedBy = "system"
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if td := ctxutil.GetTraceData(dbc.Ctx); td != nil {
		if td.TraceID != "" {
			if _, ok := payload["trace_id"]; !ok {
				payload["trace_id"] = td.TraceID
			}
		}
		if td.RequestID != "" {
			if _, ok := payload["request_id"]; !ok {
				payload["request_id"] = td.RequestID
			}
		}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	now := time.Now()
	job := &types.JobRun{
		ID:          uuid.New(),
		Queue:       s.queue,
		JobType:     jobType,
		RequestedBy: requestedBy,
		Status:      types.JobStatusQueued,
		Stage:       "queued",
		Progress:    0,
		Attempts:    0,
		Message:     "Queued",
		Payload:     datatypes.JSON(payloadJSON),
		Result:      datatypes.JSON([]byte(`{}`)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if opts.Delay > 0 {
		runAt := now.Add(opts.Delay)
		job.Status = types.JobStatusDelayed
		job.Stage = "delayed"
		job.Message = "Delayed"
		job.RunAt = &runAt
	}
	if _, err := s.repo.Create(dbc, []*types.JobRun{job}); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if err := s.events.Append(dbc, []*types.JobRunEvent{{
		JobID:    job.ID,
		JobType:  job.JobType,
		Kind:     types.JobEventCreated,
		Stage:    job.Stage,
		Progress: job.Progress,
		Message:  job.Message,
	}}); err != nil {
		s.log.Warn("append created event failed", "job_id", job.ID, "error", err)
	}
	s.notify.JobCreated(job)
	s.log.Info("job enqueued", "job_id", job.ID, "job_type", jobType, "requested_by", requestedBy, "delayed", opts.Delay > 0)
	return job, nil
}

func (s *jobService) GetByID(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	job, err := s.repo.GetByID(dbc, jobID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if job == nil {
		return nil, apierr.New(http.StatusNotFound, apierr.CodeJobNotFound, fmt.Errorf("job %s not found", jobID))
	}
	return job, nil
}

func (s *jobService) Status(dbc dbctx.Context, jobID uuid.UUID) (*JobStatus, error) {
	job, err := s.GetByID(dbc, jobID)
	if err != nil {
		return nil, err
	}
	st := &JobStatus{
		ID:           job.ID,
		Name:         job.JobType,
		State:        WireState(job.Status),
		Progress:     job.Progress,
		AttemptsMade: job.Attempts,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
	if job.Status == types.JobStatusFailed && job.Error != "" {
		reason := job.Error
		st.FailedReason = &reason
	}
	if job.Status == types.JobStatusSucceeded && len(job.Result) > 0 {
		st.Result = json.RawMessage(job.Result)
	}
	return st, nil
}

// CountKeyWaiting is the queued bucket's name on the summary surface. The
// wire reports counts under "wait" while the per-job state says "waiting".
const CountKeyWaiting = "wait"

func countKey(status string) string {
	if ws := WireState(status); ws != WireStateWaiting {
		return ws
	}
	return CountKeyWaiting
}

func wireCounts(byStatus map[string]int64) map[string]int64 {
	counts := map[string]int64{
		CountKeyWaiting:    0,
		WireStateActive:    0,
		WireStateCompleted: 0,
		WireStateFailed:    0,
		WireStateDelayed:   0,
	}
	for status, n := range byStatus {
		counts[countKey(status)] += n
	}
	return counts
}

// Counts reports wire counts for the queue, with every bucket present even
// when zero.
func (s *jobService) Counts(dbc dbctx.Context) (map[string]int64, error) {
	byStatus, err := s.repo.CountByStatus(dbc, s.queue)
	if err != nil {
		return nil, err
	}
	return wireCounts(byStatus), nil
}

func (s *jobService) Events(dbc dbctx.Context, jobID uuid.UUID, limit int) ([]*types.JobRunEvent, error) {
	if _, err := s.GetByID(dbc, jobID); err != nil {
		return nil, err
	}
	return s.events.ListByJob(dbc, jobID, limit)
}
