package repos

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/fitlol-ingest/internal/domain"
	"github.com/yungbote/fitlol-ingest/internal/platform/dbctx"
	"github.com/yungbote/fitlol-ingest/internal/platform/logger"
)

type IngestionCursorRepo interface {
	Upsert(dbc dbctx.Context, puuid string, lastMatchID *string, lastMatchTimestamp *int64, fetchedCount int) error
	GetByPUUID(dbc dbctx.Context, puuid string) (*types.IngestionCursor, error)
}

type ingestionCursorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIngestionCursorRepo(db *gorm.DB, baseLog *logger.Logger) IngestionCursorRepo {
	return &ingestionCursorRepo{db: db, log: baseLog.With("repo", "IngestionCursorRepo")}
}

func (r *ingestionCursorRepo) Upsert(dbc dbctx.Context, puuid string, lastMatchID *string, lastMatchTimestamp *int64, fetchedCount int) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if puuid == "" {
		return nil
	}
	now := time.Now().UTC()
	row := &types.IngestionCursor{
		PUUID:              puuid,
		LastMatchID:        lastMatchID,
		LastMatchTimestamp: lastMatchTimestamp,
		LastFetchedCount:   fetchedCount,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "puuid"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"last_match_id", "last_match_timestamp", "last_fetched_count", "updated_at",
			}),
		}).
		Create(row).Error
}

func (r *ingestionCursorRepo) GetByPUUID(dbc dbctx.Context, puuid string) (*types.IngestionCursor, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if puuid == "" {
		return nil, nil
	}
	var row types.IngestionCursor
	if err := t.WithContext(dbc.Ctx).
		Where("puuid = ?", puuid).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.PUUID == "" {
		return nil, nil
	}
	return &row, nil
}
