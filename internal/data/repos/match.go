package repos

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/fitlol-ingest/internal/domain"
	"github.com/yungbote/fitlol-ingest/internal/platform/dbctx"
	"github.com/yungbote/fitlol-ingest/internal/platform/logger"
)

type MatchRepo interface {
	UpsertMatch(dbc dbctx.Context, match *types.Match) error
	UpsertParticipants(dbc dbctx.Context, parts []*types.MatchParticipant) error
	GetByID(dbc dbctx.Context, matchID string) (*types.Match, error)
	ListParticipants(dbc dbctx.Context, matchID string) ([]*types.MatchParticipant, error)
	CountParticipants(dbc dbctx.Context, matchID string) (int64, error)
}

type matchRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMatchRepo(db *gorm.DB, baseLog *logger.Logger) MatchRepo {
	return &matchRepo{db: db, log: baseLog.With("repo", "MatchRepo")}
}

func (r *matchRepo) UpsertMatch(dbc dbctx.Context, match *types.Match) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if match == nil || match.MatchID == "" {
		return nil
	}
	now := time.Now().UTC()
	match.CreatedAt = now
	match.UpdatedAt = now
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "match_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"game_start_timestamp", "game_duration", "queue_id", "payload", "updated_at",
			}),
		}).
		Create(match).Error
}

func (r *matchRepo) UpsertParticipants(dbc dbctx.Context, parts []*types.MatchParticipant) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(parts) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, p := range parts {
		p.CreatedAt = now
		p.UpdatedAt = now
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "match_id"}, {Name: "puuid"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"riot_id_name", "riot_id_tagline",
				"kills", "deaths", "assists", "kda",
				"champion_name", "win",
				"total_damage_dealt_to_champions", "gold_earned",
				"total_minions_killed", "vision_score",
				"team_position", "lane", "updated_at",
			}),
		}).
		Create(&parts).Error
}

func (r *matchRepo) GetByID(dbc dbctx.Context, matchID string) (*types.Match, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if matchID == "" {
		return nil, nil
	}
	var row types.Match
	if err := t.WithContext(dbc.Ctx).
		Where("match_id = ?", matchID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.MatchID == "" {
		return nil, nil
	}
	return &row, nil
}

func (r *matchRepo) ListParticipants(dbc dbctx.Context, matchID string) ([]*types.MatchParticipant, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.MatchParticipant
	if matchID == "" {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("match_id = ?", matchID).
		Order("puuid ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *matchRepo) CountParticipants(dbc dbctx.Context, matchID string) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var count int64
	err := t.WithContext(dbc.Ctx).
		Model(&types.MatchParticipant{}).
		Where("match_id = ?", matchID).
		Count(&count).Error
	return count, err
}
