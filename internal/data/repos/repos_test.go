package repos

import (
	"context"
	"testing"

	"github.com/yungbote/fitlol-ingest/internal/data/repos/testutil"
	types "github.com/yungbote/fitlol-ingest/internal/domain"
	"github.com/yungbote/fitlol-ingest/internal/platform/dbctx"
)

func testDBC(t *testing.T) dbctx.Context {
	t.Helper()
	db := testutil.DB(t)
	return dbctx.Context{Ctx: context.Background(), Tx: testutil.Tx(t, db)}
}

func TestSummonerUpsertIsIdempotent(t *testing.T) {
	dbc := testDBC(t)
	repo := NewSummonerRepo(testutil.DB(t), testutil.Logger(t))

	if err := repo.Upsert(dbc, "puuid-1", "Hide on bush", "KR1"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.Upsert(dbc, "puuid-1", "Faker", "KR1"); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	got, err := repo.GetByPUUID(dbc, "puuid-1")
	if err != nil {
		t.Fatalf("GetByPUUID: %v", err)
	}
	if got == nil || got.SummonerName != "Faker" {
		t.Fatalf("summoner = %+v, want latest name", got)
	}

	var n int64
	if err := dbc.Tx.Model(&types.Summoner{}).Where("puuid = ?", "puuid-1").Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
}

func TestMatchUpsertIsIdempotent(t *testing.T) {
	dbc := testDBC(t)
	repo := NewMatchRepo(testutil.DB(t), testutil.Logger(t))

	ts := int64(1700000000000)
	duration := 1800
	queueID := 420
	match := &types.Match{
		MatchID:            "KR_100",
		GameStartTimestamp: &ts,
		GameDuration:       &duration,
		QueueID:            &queueID,
		Payload:            []byte(`{"metadata":{"matchId":"KR_100"}}`),
	}
	kills := 5
	parts := []*types.MatchParticipant{
		{MatchID: "KR_100", PUUID: "puuid-1", Kills: &kills, KDA: "5/0/0", ChampionName: "Ahri"},
		{MatchID: "KR_100", PUUID: "puuid-2", KDA: "0/0/0", ChampionName: "Garen"},
	}

	for i := 0; i < 2; i++ {
		if err := repo.UpsertMatch(dbc, match); err != nil {
			t.Fatalf("UpsertMatch #%d: %v", i+1, err)
		}
		if err := repo.UpsertParticipants(dbc, parts); err != nil {
			t.Fatalf("UpsertParticipants #%d: %v", i+1, err)
		}
	}

	n, err := repo.CountParticipants(dbc, "KR_100")
	if err != nil {
		t.Fatalf("CountParticipants: %v", err)
	}
	if n != 2 {
		t.Fatalf("participants = %d, want 2 after double upsert", n)
	}

	got, err := repo.GetByID(dbc, "KR_100")
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v / %v", got, err)
	}
	if got.GameStartTimestamp == nil || *got.GameStartTimestamp != ts {
		t.Fatalf("gameStartTimestamp = %v", got.GameStartTimestamp)
	}

	listed, err := repo.ListParticipants(dbc, "KR_100")
	if err != nil {
		t.Fatalf("ListParticipants: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("listed = %d", len(listed))
	}
}

func TestCursorUpsert(t *testing.T) {
	dbc := testDBC(t)
	repo := NewIngestionCursorRepo(testutil.DB(t), testutil.Logger(t))

	// First write: no timestamp known yet.
	id1 := "KR_1"
	if err := repo.Upsert(dbc, "puuid-1", &id1, nil, 3); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := repo.GetByPUUID(dbc, "puuid-1")
	if err != nil || got == nil {
		t.Fatalf("GetByPUUID: %v / %v", got, err)
	}
	if got.LastMatchID == nil || *got.LastMatchID != "KR_1" || got.LastMatchTimestamp != nil {
		t.Fatalf("cursor = %+v", got)
	}
	if got.LastFetchedCount != 3 {
		t.Fatalf("lastFetchedCount = %d", got.LastFetchedCount)
	}

	// Advance.
	id2 := "KR_2"
	ts := int64(1700000000000)
	if err := repo.Upsert(dbc, "puuid-1", &id2, &ts, 1); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	got, _ = repo.GetByPUUID(dbc, "puuid-1")
	if *got.LastMatchID != "KR_2" || got.LastMatchTimestamp == nil || *got.LastMatchTimestamp != ts {
		t.Fatalf("cursor after advance = %+v", got)
	}

	var n int64
	if err := dbc.Tx.Model(&types.IngestionCursor{}).Where("puuid = ?", "puuid-1").Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("cursor rows = %d, want 1", n)
	}
}
