package ingest

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"github.com/yungbote/fitlol-ingest/internal/clients/riot"
	"github.com/yungbote/fitlol-ingest/internal/jobs/runtime"
	"github.com/yungbote/fitlol-ingest/internal/platform/apierr"
	"github.com/yungbote/fitlol-ingest/internal/platform/dbctx"
	"github.com/yungbote/fitlol-ingest/internal/platform/logger"
	"github.com/yungbote/fitlol-ingest/internal/services"
)

// RiotAPI is the slice of the provider client the processor needs.
type RiotAPI interface {
	ResolveAccount(ctx context.Context, gameName, tagLine string) (*riot.AccountResponse, error)
	MatchIDs(ctx context.Context, puuid string, count int) ([]string, error)
	MatchDetail(ctx context.Context, matchID string) (*riot.MatchDetail, error)
}

// LatestResult is the terminal result stored on the job row.
type LatestResult struct {
	PUUID              string  `json:"puuid"`
	Total              int     `json:"total"`
	Processed          int     `json:"processed"`
	LastMatchID        *string `json:"lastMatchId"`
	LastMatchTimestamp *int64  `json:"lastMatchTimestamp"`
}

// LatestHandler ingests the newest matches for one summoner. A match that
// fails to fetch or persist is logged and skipped; the run only fails
// outright when the identity cannot be resolved, the match list cannot be
// fetched, or the cursor cannot be written.
type LatestHandler struct {
	log          *logger.Logger
	client       RiotAPI
	persist      services.PersistService
	defaultCount int
}

func NewLatestHandler(baseLog *logger.Logger, client RiotAPI, persist services.PersistService, defaultCount int) *LatestHandler {
	if defaultCount <= 0 {
		defaultCount = 10
	}
	return &LatestHandler{
		log:          baseLog.With("handler", services.JobTypeIngestLatest),
		client:       client,
		persist:      persist,
		defaultCount: defaultCount,
	}
}

func (h *LatestHandler) Type() string { return services.JobTypeIngestLatest }

func (h *LatestHandler) Run(jc *runtime.Context) error {
	summonerName, ok := jc.PayloadString("summonerName")
	if !ok {
		jc.Fail("validate", fmt.Errorf("summonerName and tag are required"))
		return nil
	}
	tag, ok := jc.PayloadString("tag")
	if !ok {
		jc.Fail("validate", fmt.Errorf("summonerName and tag are required"))
		return nil
	}
	count, ok := jc.PayloadInt("count")
	if !ok || count <= 0 {
		count = h.defaultCount
	}
	force, _ := jc.PayloadBool("force")

	dbc := dbctx.Context{Ctx: jc.Ctx}

	jc.Progress("resolve", 1, fmt.Sprintf("Resolving %s#%s", summonerName, tag))
	acct, err := h.client.ResolveAccount(jc.Ctx, summonerName, tag)
	if err != nil {
		jc.Fail("resolve", resolveError(err))
		return nil
	}
	if acct.PUUID == "" {
		jc.Fail("resolve", apierr.New(http.StatusNotFound, apierr.CodeIdentityNotFound,
			fmt.Errorf("%s: puuid not found for %s#%s", apierr.CodeIdentityNotFound, summonerName, tag)))
		return nil
	}
	if err := h.persist.UpsertSummoner(dbc, acct.PUUID, summonerName, tag); err != nil {
		jc.Fail("resolve", err)
		return nil
	}

	jc.Progress("list", 5, "Listing latest matches")
	matchIDs, err := h.client.MatchIDs(jc.Ctx, acct.PUUID, count)
	if err != nil {
		jc.Fail("list", upstreamError(err))
		return nil
	}

	total := len(matchIDs)
	processed := 0
	timestamps := make(map[string]*int64, total)

	for i, id := range matchIDs {
		if !force {
			have, checkErr := h.persist.HasMatch(dbc, id)
			if checkErr == nil && have {
				jc.Log(fmt.Sprintf("Skipping match %s (already stored)", id))
				jc.Progress("fetch", fetchProgress(i+1, total), fmt.Sprintf("Skipped match %d/%d", i+1, total))
				continue
			}
		}

		detail, fetchErr := h.client.MatchDetail(jc.Ctx, id)
		if fetchErr == nil {
			fetchErr = h.persist.PersistMatch(dbc, detail)
		}
		if fetchErr != nil {
			// Per-match failures never fail the run; the next run picks the
			// match up again.
			jc.Log(fmt.Sprintf("Failed to fetch match %s: %v", id, fetchErr))
		} else {
			ts := detail.Info.GameStartTimestamp
			if ts != 0 {
				timestamps[id] = &ts
			}
			jc.Log(fmt.Sprintf("Fetched match %s (duration=%d, queueId=%d)", id, detail.Info.GameDuration, detail.Info.QueueID))
			processed++
		}
		jc.Progress("fetch", fetchProgress(i+1, total), fmt.Sprintf("Processed match %d/%d", i+1, total))
	}

	var lastMatchID *string
	var lastTs *int64
	if total > 0 {
		id := matchIDs[0]
		lastMatchID = &id
		lastTs = timestamps[id]
		if lastTs == nil {
			// Best effort: the cursor timestamp is informational, so a fetch
			// failure here leaves it null rather than failing the run.
			if d, tsErr := h.client.MatchDetail(jc.Ctx, id); tsErr == nil && d.Info.GameStartTimestamp != 0 {
				ts := d.Info.GameStartTimestamp
				lastTs = &ts
			}
		}
	}
	if err := h.persist.UpdateCursor(dbc, acct.PUUID, lastMatchID, lastTs, processed); err != nil {
		jc.Fail("cursor", err)
		return nil
	}

	jc.Succeed("done", LatestResult{
		PUUID:              acct.PUUID,
		Total:              total,
		Processed:          processed,
		LastMatchID:        lastMatchID,
		LastMatchTimestamp: lastTs,
	})
	return nil
}

// resolveError tags an identity lookup failure so the job's failedReason
// carries the API error kind. An unknown name#tag is the caller's mistake;
// everything else is the upstream's.
func resolveError(err error) error {
	if riot.IsKind(err, riot.KindNotFound) {
		return apierr.New(http.StatusNotFound, apierr.CodeIdentityNotFound,
			fmt.Errorf("%s: %w", apierr.CodeIdentityNotFound, err))
	}
	return upstreamError(err)
}

// upstreamError maps provider failures onto the API error codes.
func upstreamError(err error) error {
	code := apierr.CodeUpstreamUnavailable
	status := http.StatusBadGateway
	if riot.IsKind(err, riot.KindRateLimited) {
		code = apierr.CodeRateLimited
		status = http.StatusTooManyRequests
	}
	return apierr.New(status, code, fmt.Errorf("%s: %w", code, err))
}

// fetchProgress maps per-match completion onto the 5..100 band, after the
// fixed resolve (1) and list (5) checkpoints.
func fetchProgress(done, total int) int {
	if total < 1 {
		total = 1
	}
	return 5 + int(math.Round(float64(done)/float64(total)*95))
}
