package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/fitlol-ingest/internal/data/repos/testutil"
	types "github.com/yungbote/fitlol-ingest/internal/domain"
	"github.com/yungbote/fitlol-ingest/internal/platform/dbctx"
)

const testJobType = "ingest.summoner.latest"

func newJobRunRepo(t *testing.T) (JobRunRepo, *gorm.DB, string) {
	t.Helper()
	db := testutil.DB(t)
	repo := NewJobRunRepo(db, testutil.Logger(t))
	// Claims run in their own transactions, so isolation comes from a
	// per-test queue name instead of a wrapping rollback.
	queue := "q-" + uuid.NewString()
	t.Cleanup(func() {
		db.Where("job_id IN (?)", db.Model(&types.JobRun{}).Select("id").Where("queue = ?", queue)).
			Delete(&types.JobRunEvent{})
		db.Where("queue = ?", queue).Delete(&types.JobRun{})
	})
	return repo, db, queue
}

func seedJob(t *testing.T, db *gorm.DB, queue string, mutate func(j *types.JobRun)) *types.JobRun {
	t.Helper()
	job := &types.JobRun{
		ID:        uuid.New(),
		Queue:     queue,
		JobType:   testJobType,
		Status:    types.JobStatusQueued,
		Stage:     "queued",
		Payload:   datatypes.JSON([]byte(`{}`)),
		Result:    datatypes.JSON([]byte(`{}`)),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if mutate != nil {
		mutate(job)
	}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}

func claim(t *testing.T, repo JobRunRepo, queue string) *types.JobRun {
	t.Helper()
	job, err := repo.ClaimNextRunnable(dbctx.Context{Ctx: context.Background()}, queue, []string{testJobType}, 5, 30*time.Second, 30*time.Minute)
	if err != nil {
		t.Fatalf("ClaimNextRunnable: %v", err)
	}
	return job
}

func TestClaimOrdersByCreationAndLeases(t *testing.T) {
	repo, db, queue := newJobRunRepo(t)

	older := seedJob(t, db, queue, func(j *types.JobRun) { j.CreatedAt = time.Now().Add(-2 * time.Minute) })
	newer := seedJob(t, db, queue, func(j *types.JobRun) { j.CreatedAt = time.Now().Add(-1 * time.Minute) })

	first := claim(t, repo, queue)
	if first == nil || first.ID != older.ID {
		t.Fatalf("first claim = %v, want oldest %s", first, older.ID)
	}
	if first.Status != types.JobStatusRunning || first.Attempts != 1 {
		t.Fatalf("claimed job status=%s attempts=%d", first.Status, first.Attempts)
	}

	second := claim(t, repo, queue)
	if second == nil || second.ID != newer.ID {
		t.Fatalf("second claim = %v, want %s", second, newer.ID)
	}

	if extra := claim(t, repo, queue); extra != nil {
		t.Fatalf("third claim should be empty, got %s", extra.ID)
	}
}

func TestClaimHonorsRunAt(t *testing.T) {
	repo, db, queue := newJobRunRepo(t)

	future := time.Now().Add(time.Hour)
	seedJob(t, db, queue, func(j *types.JobRun) {
		j.Status = types.JobStatusDelayed
		j.RunAt = &future
	})
	if got := claim(t, repo, queue); got != nil {
		t.Fatalf("delayed job claimed before run_at: %s", got.ID)
	}

	past := time.Now().Add(-time.Minute)
	due := seedJob(t, db, queue, func(j *types.JobRun) {
		j.Status = types.JobStatusDelayed
		j.RunAt = &past
	})
	got := claim(t, repo, queue)
	if got == nil || got.ID != due.ID {
		t.Fatalf("due delayed job not claimed, got %v", got)
	}
}

func TestClaimRetriesFailedAfterBackoff(t *testing.T) {
	repo, db, queue := newJobRunRepo(t)

	recent := time.Now()
	seedJob(t, db, queue, func(j *types.JobRun) {
		j.Status = types.JobStatusFailed
		j.Attempts = 1
		j.LastErrorAt = &recent
	})
	if got := claim(t, repo, queue); got != nil {
		t.Fatalf("failed job claimed inside backoff window: %s", got.ID)
	}

	old := time.Now().Add(-time.Minute)
	db.Model(&types.JobRun{}).Where("queue = ?", queue).Update("last_error_at", old)

	got := claim(t, repo, queue)
	if got == nil {
		t.Fatal("failed job not reclaimed after backoff")
	}
	if got.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", got.Attempts)
	}
}

func TestClaimStopsAtMaxAttempts(t *testing.T) {
	repo, db, queue := newJobRunRepo(t)

	old := time.Now().Add(-time.Hour)
	seedJob(t, db, queue, func(j *types.JobRun) {
		j.Status = types.JobStatusFailed
		j.Attempts = 5
		j.LastErrorAt = &old
	})
	if got := claim(t, repo, queue); got != nil {
		t.Fatalf("exhausted job claimed: %s", got.ID)
	}
}

func TestClaimReclaimsStaleRunning(t *testing.T) {
	repo, db, queue := newJobRunRepo(t)

	fresh := time.Now()
	seedJob(t, db, queue, func(j *types.JobRun) {
		j.Status = types.JobStatusRunning
		j.Attempts = 1
		j.HeartbeatAt = &fresh
	})
	if got := claim(t, repo, queue); got != nil {
		t.Fatalf("live running job reclaimed: %s", got.ID)
	}

	stale := time.Now().Add(-time.Hour)
	db.Model(&types.JobRun{}).Where("queue = ?", queue).Update("heartbeat_at", stale)

	got := claim(t, repo, queue)
	if got == nil {
		t.Fatal("stale running job not reclaimed")
	}
	if got.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2 after reclaim", got.Attempts)
	}
}

func TestClaimFiltersJobTypes(t *testing.T) {
	repo, db, queue := newJobRunRepo(t)

	seedJob(t, db, queue, func(j *types.JobRun) { j.JobType = "some.other.job" })
	if got := claim(t, repo, queue); got != nil {
		t.Fatalf("claimed job of unregistered type: %s", got.JobType)
	}
}

func TestUpdateFieldsUnlessStatusGuardsTerminal(t *testing.T) {
	repo, db, queue := newJobRunRepo(t)
	dbc := dbctx.Context{Ctx: context.Background()}

	job := seedJob(t, db, queue, func(j *types.JobRun) { j.Status = types.JobStatusSucceeded })

	ok, err := repo.UpdateFieldsUnlessStatus(dbc, job.ID,
		[]string{types.JobStatusSucceeded, types.JobStatusFailed},
		map[string]interface{}{"progress": 10})
	if err != nil {
		t.Fatalf("UpdateFieldsUnlessStatus: %v", err)
	}
	if ok {
		t.Fatal("terminal row must not be updated")
	}

	running := seedJob(t, db, queue, func(j *types.JobRun) { j.Status = types.JobStatusRunning })
	ok, err = repo.UpdateFieldsUnlessStatus(dbc, running.ID,
		[]string{types.JobStatusSucceeded, types.JobStatusFailed},
		map[string]interface{}{"progress": 42})
	if err != nil || !ok {
		t.Fatalf("running row update ok=%v err=%v", ok, err)
	}
	got, err := repo.GetByID(dbc, running.ID)
	if err != nil || got == nil || got.Progress != 42 {
		t.Fatalf("progress not persisted: %+v err=%v", got, err)
	}
}

func TestHeartbeatOnlyTouchesRunning(t *testing.T) {
	repo, db, queue := newJobRunRepo(t)
	dbc := dbctx.Context{Ctx: context.Background()}

	old := time.Now().Add(-time.Hour)
	running := seedJob(t, db, queue, func(j *types.JobRun) {
		j.Status = types.JobStatusRunning
		j.HeartbeatAt = &old
	})
	queued := seedJob(t, db, queue, nil)

	if err := repo.Heartbeat(dbc, running.ID); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if err := repo.Heartbeat(dbc, queued.ID); err != nil {
		t.Fatalf("Heartbeat queued: %v", err)
	}

	got, _ := repo.GetByID(dbc, running.ID)
	if got.HeartbeatAt == nil || !got.HeartbeatAt.After(old) {
		t.Fatal("running heartbeat not advanced")
	}
	gotQueued, _ := repo.GetByID(dbc, queued.ID)
	if gotQueued.HeartbeatAt != nil {
		t.Fatal("queued row must not receive a heartbeat")
	}
}

func TestCountByStatusAndPrune(t *testing.T) {
	repo, db, queue := newJobRunRepo(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	events := NewJobRunEventRepo(db, testutil.Logger(t))

	seedJob(t, db, queue, nil)
	oldDone := seedJob(t, db, queue, func(j *types.JobRun) {
		j.Status = types.JobStatusSucceeded
		j.UpdatedAt = time.Now().Add(-2 * time.Hour)
	})
	seedJob(t, db, queue, func(j *types.JobRun) { j.Status = types.JobStatusFailed })

	if err := events.Append(dbc, []*types.JobRunEvent{{
		JobID:   oldDone.ID,
		JobType: oldDone.JobType,
		Kind:    types.JobEventSucceeded,
	}}); err != nil {
		t.Fatalf("append event: %v", err)
	}

	counts, err := repo.CountByStatus(dbc, queue)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[types.JobStatusQueued] != 1 || counts[types.JobStatusSucceeded] != 1 || counts[types.JobStatusFailed] != 1 {
		t.Fatalf("counts = %v", counts)
	}

	n, err := repo.PruneTerminalBefore(dbc, queue, types.JobStatusSucceeded, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("PruneTerminalBefore: %v", err)
	}
	if n != 1 {
		t.Fatalf("pruned = %d, want 1", n)
	}
	if got, _ := repo.GetByID(dbc, oldDone.ID); got != nil {
		t.Fatal("pruned job still present")
	}
	evts, err := events.ListByJob(dbc, oldDone.ID, 10)
	if err != nil {
		t.Fatalf("ListByJob: %v", err)
	}
	if len(evts) != 0 {
		t.Fatalf("pruned job still has %d events", len(evts))
	}

	counts, _ = repo.CountByStatus(dbc, queue)
	if counts[types.JobStatusFailed] != 1 {
		t.Fatal("recent failed job must survive the succeeded prune")
	}
}
