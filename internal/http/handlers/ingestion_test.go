package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/fitlol-ingest/internal/domain"
	"github.com/yungbote/fitlol-ingest/internal/platform/apierr"
	"github.com/yungbote/fitlol-ingest/internal/platform/dbctx"
	"github.com/yungbote/fitlol-ingest/internal/platform/logger"
	"github.com/yungbote/fitlol-ingest/internal/services"
)

type fakeIngestionService struct {
	submitted *services.IngestionSubmission
	job       *types.JobRun
	err       error
	counts    map[string]int64
}

func (f *fakeIngestionService) Submit(_ dbctx.Context, sub services.IngestionSubmission) (*types.JobRun, error) {
	f.submitted = &sub
	if f.err != nil {
		return nil, f.err
	}
	return f.job, nil
}

func (f *fakeIngestionService) Summary(dbctx.Context) (map[string]int64, error) {
	return f.counts, nil
}

func (f *fakeIngestionService) Config() map[string]any {
	return map[string]any{"QUEUE_PREFIX": "fitlol"}
}

type fakeJobService struct {
	statuses map[uuid.UUID]*services.JobStatus
	events   map[uuid.UUID][]*types.JobRunEvent
}

func (f *fakeJobService) Enqueue(dbctx.Context, string, string, map[string]any, services.EnqueueOptions) (*types.JobRun, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeJobService) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeJobService) Status(_ dbctx.Context, id uuid.UUID) (*services.JobStatus, error) {
	st, ok := f.statuses[id]
	if !ok {
		return nil, apierr.New(http.StatusNotFound, apierr.CodeJobNotFound, fmt.Errorf("job %s not found", id))
	}
	return st, nil
}

func (f *fakeJobService) Counts(dbctx.Context) (map[string]int64, error) {
	return nil, nil
}

func (f *fakeJobService) Events(_ dbctx.Context, id uuid.UUID, _ int) ([]*types.JobRunEvent, error) {
	evts, ok := f.events[id]
	if !ok {
		return nil, apierr.New(http.StatusNotFound, apierr.CodeJobNotFound, fmt.Errorf("job %s not found", id))
	}
	return evts, nil
}

func newTestRouter(t *testing.T, ingestion services.IngestionService, jobs services.JobService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	t.Cleanup(log.Sync)

	h := NewIngestionHandler(log, ingestion, jobs)
	r := gin.New()
	r.POST("/api/ingestion/summoner/latest", h.SubmitLatest)
	r.GET("/api/ingestion/jobs/:id", h.GetJob)
	r.GET("/api/ingestion/jobs/:id/events", h.GetJobEvents)
	r.GET("/api/ingestion/summary", h.Summary)
	r.GET("/api/ingestion/config", h.Config)
	return r
}

func TestSubmitLatestAccepted(t *testing.T) {
	jobID := uuid.New()
	ing := &fakeIngestionService{job: &types.JobRun{ID: jobID, JobType: services.JobTypeIngestLatest}}
	r := newTestRouter(t, ing, &fakeJobService{})

	body := `{"summonerName":"Hide on bush","tag":"KR1","count":5}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ingestion/summoner/latest", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (%s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		JobID uuid.UUID `json:"jobId"`
		Type  string    `json:"type"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.JobID != jobID || resp.Type != services.JobTypeIngestLatest {
		t.Fatalf("resp = %+v", resp)
	}
	if ing.submitted == nil || ing.submitted.SummonerName != "Hide on bush" || ing.submitted.Count != 5 {
		t.Fatalf("submission = %+v", ing.submitted)
	}
}

func TestSubmitLatestInvalidInput(t *testing.T) {
	ing := &fakeIngestionService{
		err: apierr.New(http.StatusBadRequest, apierr.CodeInvalidInput, fmt.Errorf("summonerName and tag are required")),
	}
	r := newTestRouter(t, ing, &fakeJobService{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ingestion/summoner/latest", strings.NewReader(`{"tag":"KR1"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != apierr.CodeInvalidInput {
		t.Fatalf("code = %q, want %q", env.Error.Code, apierr.CodeInvalidInput)
	}
}

func TestGetJobStatus(t *testing.T) {
	jobID := uuid.New()
	reason := "upstream unavailable"
	jobs := &fakeJobService{statuses: map[uuid.UUID]*services.JobStatus{
		jobID: {
			ID:           jobID,
			Name:         services.JobTypeIngestLatest,
			State:        services.WireStateFailed,
			Progress:     42,
			AttemptsMade: 3,
			FailedReason: &reason,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		},
	}}
	r := newTestRouter(t, &fakeIngestionService{}, jobs)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ingestion/jobs/"+jobID.String(), nil)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	var st services.JobStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.State != "failed" || st.AttemptsMade != 3 || st.FailedReason == nil || *st.FailedReason != reason {
		t.Fatalf("status = %+v", st)
	}
}

func TestGetJobNotFound(t *testing.T) {
	r := newTestRouter(t, &fakeIngestionService{}, &fakeJobService{statuses: map[uuid.UUID]*services.JobStatus{}})

	for _, path := range []string{
		"/api/ingestion/jobs/not-a-uuid",
		"/api/ingestion/jobs/" + uuid.NewString(),
	} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: status = %d, want 404", path, rec.Code)
		}
		var env struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env.Error.Code != apierr.CodeJobNotFound {
			t.Fatalf("%s: code = %q", path, env.Error.Code)
		}
	}
}

func TestGetJobEvents(t *testing.T) {
	jobID := uuid.New()
	jobs := &fakeJobService{events: map[uuid.UUID][]*types.JobRunEvent{
		jobID: {
			{JobID: jobID, Kind: types.JobEventLog, Message: "Fetched match KR_1"},
			{JobID: jobID, Kind: types.JobEventLog, Message: "Fetched match KR_2"},
		},
	}}
	r := newTestRouter(t, &fakeIngestionService{}, jobs)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ingestion/jobs/"+jobID.String()+"/events?limit=10", nil)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Events []types.JobRunEvent `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Events) != 2 {
		t.Fatalf("events = %d", len(resp.Events))
	}
}

func TestSummaryReportsWireStateCounts(t *testing.T) {
	ing := &fakeIngestionService{counts: map[string]int64{
		"wait": 2, "active": 1, "completed": 7, "failed": 1, "delayed": 0,
	}}
	r := newTestRouter(t, ing, &fakeJobService{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ingestion/summary", nil)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Counts map[string]int64 `json:"counts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Counts["completed"] != 7 || resp.Counts["wait"] != 2 {
		t.Fatalf("counts = %v", resp.Counts)
	}
}

func TestConfigEcho(t *testing.T) {
	r := newTestRouter(t, &fakeIngestionService{}, &fakeJobService{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ingestion/config", nil)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var cfg map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg["QUEUE_PREFIX"] != "fitlol" {
		t.Fatalf("config = %v", cfg)
	}
}
