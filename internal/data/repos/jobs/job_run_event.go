package jobs

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/fitlol-ingest/internal/domain"
	"github.com/yungbote/fitlol-ingest/internal/platform/dbctx"
	"github.com/yungbote/fitlol-ingest/internal/platform/logger"
)

type JobRunEventRepo interface {
	Append(dbc dbctx.Context, events []*types.JobRunEvent) error
	ListByJob(dbc dbctx.Context, jobID uuid.UUID, limit int) ([]*types.JobRunEvent, error)
}

type jobRunEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRunEventRepo(db *gorm.DB, baseLog *logger.Logger) JobRunEventRepo {
	return &jobRunEventRepo{db: db, log: baseLog.With("repo", "JobRunEventRepo")}
}

func (r *jobRunEventRepo) Append(dbc dbctx.Context, events []*types.JobRunEvent) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(events) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).Create(&events).Error
}

func (r *jobRunEventRepo) ListByJob(dbc dbctx.Context, jobID uuid.UUID, limit int) ([]*types.JobRunEvent, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.JobRunEvent
	if jobID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 100
	}
	if err := t.WithContext(dbc.Ctx).
		Where("job_id = ?", jobID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
