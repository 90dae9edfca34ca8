package ingest

import (
	"time"

	"gorm.io/datatypes"
)

// Match is one recorded game, keyed by the provider-assigned match id.
// The full provider payload is retained as an opaque blob for downstream
// replay; re-ingestion overwrites in place.
type Match struct {
	MatchID            string         `gorm:"column:match_id;primaryKey" json:"match_id"`
	GameStartTimestamp *int64         `gorm:"column:game_start_timestamp;index" json:"game_start_timestamp,omitempty"`
	GameDuration       *int           `gorm:"column:game_duration" json:"game_duration,omitempty"`
	QueueID            *int           `gorm:"column:queue_id;index" json:"queue_id,omitempty"`
	Payload            datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload,omitempty"`
	CreatedAt          time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Match) TableName() string { return "match" }

// MatchParticipant is one player's line in one match. The composite primary
// key (match_id, puuid) is the uniqueness invariant: at most one row per
// player per match.
type MatchParticipant struct {
	MatchID                     string    `gorm:"column:match_id;primaryKey" json:"match_id"`
	PUUID                       string    `gorm:"column:puuid;primaryKey;index" json:"puuid"`
	RiotIDName                  string    `gorm:"column:riot_id_name" json:"riot_id_name,omitempty"`
	RiotIDTagline               string    `gorm:"column:riot_id_tagline" json:"riot_id_tagline,omitempty"`
	Kills                       *int      `gorm:"column:kills" json:"kills,omitempty"`
	Deaths                      *int      `gorm:"column:deaths" json:"deaths,omitempty"`
	Assists                     *int      `gorm:"column:assists" json:"assists,omitempty"`
	KDA                         string    `gorm:"column:kda" json:"kda,omitempty"`
	ChampionName                string    `gorm:"column:champion_name;index" json:"champion_name,omitempty"`
	Win                         *bool     `gorm:"column:win" json:"win,omitempty"`
	TotalDamageDealtToChampions *int      `gorm:"column:total_damage_dealt_to_champions" json:"total_damage_dealt_to_champions,omitempty"`
	GoldEarned                  *int      `gorm:"column:gold_earned" json:"gold_earned,omitempty"`
	TotalMinionsKilled          *int      `gorm:"column:total_minions_killed" json:"total_minions_killed,omitempty"`
	VisionScore                 *int      `gorm:"column:vision_score" json:"vision_score,omitempty"`
	TeamPosition                string    `gorm:"column:team_position" json:"team_position,omitempty"`
	Lane                        string    `gorm:"column:lane" json:"lane,omitempty"`
	CreatedAt                   time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt                   time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (MatchParticipant) TableName() string { return "match_participant" }
