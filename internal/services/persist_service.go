package services

import (
	"fmt"
	"net/http"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/fitlol-ingest/internal/clients/riot"
	"github.com/yungbote/fitlol-ingest/internal/data/repos"
	types "github.com/yungbote/fitlol-ingest/internal/domain"
	"github.com/yungbote/fitlol-ingest/internal/platform/apierr"
	"github.com/yungbote/fitlol-ingest/internal/platform/dbctx"
	"github.com/yungbote/fitlol-ingest/internal/platform/logger"
)

// PersistService maps provider match payloads onto the relational model.
// Every write is an idempotent upsert so re-ingesting a match the store
// already holds changes nothing.
type PersistService interface {
	UpsertSummoner(dbc dbctx.Context, puuid, summonerName, tagLine string) error
	HasMatch(dbc dbctx.Context, matchID string) (bool, error)
	PersistMatch(dbc dbctx.Context, detail *riot.MatchDetail) error
	UpdateCursor(dbc dbctx.Context, puuid string, lastMatchID *string, lastMatchTimestamp *int64, fetchedCount int) error
}

type persistService struct {
	db       *gorm.DB
	log      *logger.Logger
	summoner repos.SummonerRepo
	matches  repos.MatchRepo
	cursors  repos.IngestionCursorRepo
}

func NewPersistService(
	db *gorm.DB,
	baseLog *logger.Logger,
	summoner repos.SummonerRepo,
	matches repos.MatchRepo,
	cursors repos.IngestionCursorRepo,
) PersistService {
	return &persistService{
		db:       db,
		log:      baseLog.With("service", "PersistService"),
		summoner: summoner,
		matches:  matches,
		cursors:  cursors,
	}
}

func (s *persistService) UpsertSummoner(dbc dbctx.Context, puuid, summonerName, tagLine string) error {
	if puuid == "" {
		return apierr.New(http.StatusUnprocessableEntity, apierr.CodePersistenceError, fmt.Errorf("missing puuid"))
	}
	return s.summoner.Upsert(dbc, puuid, summonerName, tagLine)
}

// HasMatch reports whether the match header is already stored.
func (s *persistService) HasMatch(dbc dbctx.Context, matchID string) (bool, error) {
	if matchID == "" {
		return false, nil
	}
	m, err := s.matches.GetByID(dbc, matchID)
	if err != nil {
		return false, err
	}
	return m != nil, nil
}

// PersistMatch writes the match header and all participant rows in one
// transaction, so a match is either fully present or absent.
func (s *persistService) PersistMatch(dbc dbctx.Context, detail *riot.MatchDetail) error {
	if detail == nil || detail.Metadata.MatchID == "" {
		return apierr.New(http.StatusUnprocessableEntity, apierr.CodePersistenceError, fmt.Errorf("matchId missing in detail"))
	}
	matchID := detail.Metadata.MatchID

	match := &types.Match{
		MatchID: matchID,
		Payload: datatypes.JSON(detail.Raw),
	}
	if detail.Info.GameStartTimestamp != 0 {
		ts := detail.Info.GameStartTimestamp
		match.GameStartTimestamp = &ts
	}
	if detail.Info.GameDuration != 0 {
		d := detail.Info.GameDuration
		match.GameDuration = &d
	}
	if detail.Info.QueueID != 0 {
		q := detail.Info.QueueID
		match.QueueID = &q
	}

	parts := make([]*types.MatchParticipant, 0, len(detail.Info.Participants))
	for _, p := range detail.Info.Participants {
		parts = append(parts, participantRow(matchID, p))
	}

	run := func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		if err := s.matches.UpsertMatch(txc, match); err != nil {
			return fmt.Errorf("upsert match %s: %w", matchID, err)
		}
		if err := s.matches.UpsertParticipants(txc, parts); err != nil {
			return fmt.Errorf("upsert participants %s: %w", matchID, err)
		}
		return nil
	}
	if dbc.Tx != nil {
		return run(dbc.Tx)
	}
	return s.db.WithContext(dbc.Ctx).Transaction(run)
}

func participantRow(matchID string, p riot.Participant) *types.MatchParticipant {
	puuid := p.PUUID
	if puuid == "" {
		// Older payloads omit the puuid; fall back to the riot id so the
		// composite key stays stable across re-ingestion.
		puuid = p.RiotIDGameName + "#" + p.RiotIDTagline
	}
	kills, deaths, assists := p.Kills, p.Deaths, p.Assists
	win := p.Win
	damage, gold, cs, vision := p.TotalDamageDealtToChampions, p.GoldEarned, p.TotalMinionsKilled, p.VisionScore
	return &types.MatchParticipant{
		MatchID:                     matchID,
		PUUID:                       puuid,
		RiotIDName:                  p.RiotIDGameName,
		RiotIDTagline:               p.RiotIDTagline,
		Kills:                       &kills,
		Deaths:                      &deaths,
		Assists:                     &assists,
		KDA:                         fmt.Sprintf("%d/%d/%d", kills, deaths, assists),
		ChampionName:                p.ChampionName,
		Win:                         &win,
		TotalDamageDealtToChampions: &damage,
		GoldEarned:                  &gold,
		TotalMinionsKilled:          &cs,
		VisionScore:                 &vision,
		TeamPosition:                p.TeamPosition,
		Lane:                        p.Lane,
	}
}

func (s *persistService) UpdateCursor(dbc dbctx.Context, puuid string, lastMatchID *string, lastMatchTimestamp *int64, fetchedCount int) error {
	if puuid == "" {
		return apierr.New(http.StatusUnprocessableEntity, apierr.CodePersistenceError, fmt.Errorf("missing puuid"))
	}
	return s.cursors.Upsert(dbc, puuid, lastMatchID, lastMatchTimestamp, fetchedCount)
}
