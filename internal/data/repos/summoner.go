package repos

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/fitlol-ingest/internal/domain"
	"github.com/yungbote/fitlol-ingest/internal/platform/dbctx"
	"github.com/yungbote/fitlol-ingest/internal/platform/logger"
)

type SummonerRepo interface {
	Upsert(dbc dbctx.Context, puuid, summonerName, tagLine string) error
	GetByPUUID(dbc dbctx.Context, puuid string) (*types.Summoner, error)
}

type summonerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSummonerRepo(db *gorm.DB, baseLog *logger.Logger) SummonerRepo {
	return &summonerRepo{db: db, log: baseLog.With("repo", "SummonerRepo")}
}

func (r *summonerRepo) Upsert(dbc dbctx.Context, puuid, summonerName, tagLine string) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if puuid == "" {
		return nil
	}
	now := time.Now().UTC()
	row := &types.Summoner{
		PUUID:        puuid,
		SummonerName: summonerName,
		TagLine:      tagLine,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "puuid"}},
			DoUpdates: clause.AssignmentColumns([]string{"summoner_name", "tag_line", "updated_at"}),
		}).
		Create(row).Error
}

func (r *summonerRepo) GetByPUUID(dbc dbctx.Context, puuid string) (*types.Summoner, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if puuid == "" {
		return nil, nil
	}
	var row types.Summoner
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
