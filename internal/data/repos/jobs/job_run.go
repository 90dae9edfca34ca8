package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/fitlol-ingest/internal/domain"
	"github.com/yungbote/fitlol-ingest/internal/platform/dbctx"
	"github.com/yungbote/fitlol-ingest/internal/platform/logger"
)

type JobRunRepo interface {
	Create(dbc dbctx.Context, jobs []*types.JobRun) ([]*types.JobRun, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error)
	ClaimNextRunnable(dbc dbctx.Context, queue string, jobTypes []string, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.JobRun, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error)
	Heartbeat(dbc dbctx.Context, id uuid.UUID) error
	CountByStatus(dbc dbctx.Context, queue string) (map[string]int64, error)
	PruneTerminalBefore(dbc dbctx.Context, queue string, status string, cutoff time.Time) (int64, error)
}

type jobRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return &jobRunRepo{
		db:  db,
		log: baseLog.With("repo", "JobRunRepo"),
	}
}

func (r *jobRunRepo) Create(dbc dbctx.Context, jobs []*types.JobRun) ([]*types.JobRun, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(jobs) == 0 {
		return []*types.JobRun{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var job types.JobRun
	if err := t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&job).Error; err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

// ClaimNextRunnable leases the oldest eligible job for the given queue and
// job types. Eligible rows are: queued, delayed whose run_at has passed,
// failed with remaining attempts past the retry delay, and running rows whose
// heartbeat went stale (the worker that held the lease disappeared). The
// SKIP LOCKED select plus the status flip inside one transaction is what
// keeps a leased job from being delivered to a second worker.
func (r *jobRunRepo) ClaimNextRunnable(dbc dbctx.Context, queue string, jobTypes []string, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.JobRun, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	now := time.Now()
	retryCutoff := now.Add(-retryDelay)
	staleCutoff := now.Add(-staleRunning)
	var claimed *types.JobRun
	err := t.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var job types.JobRun
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("queue = ?", queue).
			Where(`
        (
          status = ?
          OR (
            status = ?
            AND (run_at IS NULL OR run_at <= ?)
          )
          OR (
            status = ?
            AND attempts < ?
            AND (last_error_at IS NULL OR last_error_at < ?)
          )
          OR (
            status = ?
            AND heartbeat_at IS NOT NULL
            AND heartbeat_at < ?
          )
        )
      `, types.JobStatusQueued,
				types.JobStatusDelayed, now,
				types.JobStatusFailed, maxAttempts, retryCutoff,
				types.JobStatusRunning, staleCutoff).
			Order("created_at ASC")
		if len(jobTypes) > 0 {
			q = q.Where("job_type IN ?", jobTypes)
		}
		qErr := q.First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.JobRun{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":       types.JobStatusRunning,
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}
		job.Status = types.JobStatusRunning
		job.Attempts++
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.JobRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *jobRunRepo) UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}

	q := t.WithContext(dbc.Ctx).
		Model(&types.JobRun{}).
		Where("id = ?", id)
	if len(disallowedStatuses) == 1 {
		q = q.Where("status <> ?", disallowedStatuses[0])
	} else if len(disallowedStatuses) > 1 {
		q = q.Where("status NOT IN ?", disallowedStatuses)
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *jobRunRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return t.WithContext(dbc.Ctx).
		Model(&types.JobRun{}).
		Where("id = ? AND status = ?", id, types.JobStatusRunning).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}

func (r *jobRunRepo) CountByStatus(dbc dbctx.Context, queue string) (map[string]int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	if err := t.WithContext(dbc.Ctx).
		Model(&types.JobRun{}).
		Select("status, COUNT(*) AS n").
		Where("queue = ?", queue).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

// PruneTerminalBefore hard-deletes terminal rows (and their event ledger)
// whose last update is older than the cutoff. Retention windows differ for
// succeeded and failed jobs, so the status is a parameter.
func (r *jobRunRepo) PruneTerminalBefore(dbc dbctx.Context, queue string, status string, cutoff time.Time) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if status != types.JobStatusSucceeded && status != types.JobStatusFailed {
		return 0, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Exec(`DELETE FROM job_run_event WHERE job_id IN (
            SELECT id FROM job_run WHERE queue = ? AND status = ? AND updated_at < ?
          )`, queue, status, cutoff).Error; err != nil {
		return 0, err
	}
	res := t.WithContext(dbc.Ctx).
		Where("queue = ? AND status = ? AND updated_at < ?", queue, status, cutoff).
		Delete(&types.JobRun{})
	return res.RowsAffected, res.Error
}
