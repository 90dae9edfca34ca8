package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	jobsrepo "github.com/yungbote/fitlol-ingest/internal/data/repos/jobs"
	types "github.com/yungbote/fitlol-ingest/internal/domain"
	"github.com/yungbote/fitlol-ingest/internal/platform/ctxutil"
	"github.com/yungbote/fitlol-ingest/internal/platform/dbctx"
	"github.com/yungbote/fitlol-ingest/internal/services"
)

/*
Context is the execution contract between the job system and all processor
code: a capability-scoped handle for a single claimed job run. It wraps the
mutable job_run row, the database handle, the event log, the notification
side-effects, and the only sanctioned ways to report progress or terminate
execution. Processors never touch job_run directly.

Terminal states are final: once a run is succeeded or failed, every further
write through this handle is rejected. That is what keeps a worker that lost
its lease to the stale-running reclaim from clobbering the retry's outcome.
*/
type Context struct {
	Ctx    context.Context
	DB     *gorm.DB
	Job    *types.JobRun
	Repo   jobsrepo.JobRunRepo
	Events jobsrepo.JobRunEventRepo
	Notify services.JobNotifier

	payload map[string]any
}

var terminalStatuses = []string{types.JobStatusSucceeded, types.JobStatusFailed}

/*
NewContext constructs a runtime.Context for a claimed job execution. It
eagerly decodes the payload JSON so handlers can read inputs via Payload()
and the typed accessors; a decode failure leaves an empty map and handlers
validate required fields themselves.
*/
func NewContext(ctx context.Context, db *gorm.DB, job *types.JobRun, repo jobsrepo.JobRunRepo, events jobsrepo.JobRunEventRepo, notify services.JobNotifier) *Context {
	c := &Context{
		Ctx:    ctx,
		DB:     db,
		Job:    job,
		Repo:   repo,
		Events: events,
		Notify: notify,
	}
	_ = c.decodePayload()
	c.applyTraceData()
	return c
}

func (c *Context) decodePayload() error {
	if c.Job == nil {
		return nil
	}
	if len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

func (c *Context) applyTraceData() {
	if c == nil || c.Ctx == nil {
		return
	}
	payload := c.Payload()
	traceID := stringField(payload, "trace_id")
	reqID := stringField(payload, "request_id")
	if traceID == "" && reqID == "" {
		return
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, &ctxutil.TraceData{
		TraceID:   traceID,
		RequestID: reqID,
	})
}

// Payload returns the decoded payload map; never nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

// PayloadString reads a payload field as a trimmed string; ("", false) when
// the key is missing or empty.
func (c *Context) PayloadString(key string) (string, bool) {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return "", false
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return "", false
	}
	return s, true
}

// PayloadInt reads a payload field as an int. JSON numbers decode as
// float64, so both forms are accepted.
func (c *Context) PayloadInt(key string) (int, bool) {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

// PayloadBool reads a payload field as a bool; (false, false) when missing
// or not a bool.
func (c *Context) PayloadBool(key string) (bool, bool) {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

/*
Update applies arbitrary field updates to the underlying job_run row,
guarded so terminal rows stay untouched. Intended for rare custom writes;
lifecycle transitions go through Progress/Fail/Succeed so their invariants
stay centralized.
*/
func (c *Context) Update(updates map[string]any) error {
	if c.Job == nil || c.Job.ID == uuid.Nil {
		return nil
	}
	_, err := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: c.Ctx}, c.Job.ID, terminalStatuses, updates)
	return err
}

/*
Progress publishes a non-terminal status update: persists stage/progress/
message plus a heartbeat into job_run, appends a progress event, mirrors the
fields onto the in-memory row, and notifies subscribers. A rejected guard
(terminal row) makes the whole call a no-op.
*/
func (c *Context) Progress(stage string, pct int, msg string) {
	if c == nil {
		return
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	now := time.Now()

	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, c.Job.ID, terminalStatuses, map[string]any{
			"stage":        stage,
			"progress":     pct,
			"message":      msg,
			"heartbeat_at": now,
			"updated_at":   now,
		})
		if !ok {
			return
		}
	}

	if c.Job != nil {
		c.Job.Stage = stage
		c.Job.Progress = pct
		c.Job.Message = msg
		c.Job.HeartbeatAt = &now
		c.Job.UpdatedAt = now
	}

	c.appendEvent(types.JobEventProgress, stage, pct, msg, nil)

	if c.Notify != nil && c.Job != nil {
		c.Notify.JobProgress(c.Job, stage, pct, msg)
	}
}

/*
Log records a free-form line on the job's event log and forwards it to
subscribers. The job_run row itself is untouched, so logs are cheap relative
to Progress.
*/
func (c *Context) Log(msg string) {
	if c == nil || c.Job == nil {
		return
	}
	c.appendEvent(types.JobEventLog, c.Job.Stage, c.Job.Progress, msg, nil)
	if c.Notify != nil {
		c.Notify.JobLog(c.Job, msg)
	}
}

/*
Fail marks this job run as failed: status=failed, stage, error text,
last_error_at=now, and locked_at cleared so the claim query can consider the
row for a retry once the backoff window passes. Guarded like Progress; a row
another worker already finished stays as it is.
*/
func (c *Context) Fail(stage string, err error) {
	if c == nil {
		return
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	now := time.Now()
	msg := ""
	if err != nil {
		msg = err.Error()
	}

	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, c.Job.ID, terminalStatuses, map[string]any{
			"status":        types.JobStatusFailed,
			"stage":         stage,
			"message":       "",
			"error":         msg,
			"last_error_at": now,
			"locked_at":     nil,
			"updated_at":    now,
		})
		if !ok {
			return
		}
	}

	if c.Job != nil {
		c.Job.Status = types.JobStatusFailed
		c.Job.Stage = stage
		c.Job.Message = ""
		c.Job.Error = msg
		c.Job.LastErrorAt = &now
		c.Job.LockedAt = nil
		c.Job.UpdatedAt = now
	}

	c.appendEvent(types.JobEventFailed, stage, c.jobProgress(), msg, nil)

	if c.Notify != nil && c.Job != nil {
		c.Notify.JobFailed(c.Job, stage, msg)
	}
}

/*
Succeed marks this job run as succeeded: progress=100, the serialized result
stored on job_run.result, error/message cleared, locked_at cleared. Guarded
like Fail so only the first terminal write wins.
*/
func (c *Context) Succeed(finalStage string, result any) {
	if c == nil {
		return
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	now := time.Now()
	var res datatypes.JSON
	if result != nil {
		b, _ := json.Marshal(result)
		res = datatypes.JSON(b)
	}

	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, c.Job.ID, terminalStatuses, map[string]any{
			"status":       types.JobStatusSucceeded,
			"stage":        finalStage,
			"progress":     100,
			"message":      "",
			"error":        "",
			"result":       res,
			"locked_at":    nil,
			"heartbeat_at": now,
			"updated_at":   now,
		})
		if !ok {
			return
		}
	}

	if c.Job != nil {
		c.Job.Status = types.JobStatusSucceeded
		c.Job.Stage = finalStage
		c.Job.Progress = 100
		c.Job.Message = ""
		c.Job.Error = ""
		c.Job.Result = res
		c.Job.LockedAt = nil
		c.Job.HeartbeatAt = &now
		c.Job.UpdatedAt = now
	}

	c.appendEvent(types.JobEventSucceeded, finalStage, 100, "", res)

	if c.Notify != nil && c.Job != nil {
		c.Notify.JobDone(c.Job)
	}
}

func (c *Context) appendEvent(kind types.JobEventKind, stage string, progress int, msg string, data datatypes.JSON) {
	if c.Events == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	_ = c.Events.Append(dbctx.Context{Ctx: ctx}, []*types.JobRunEvent{{
		JobID:    c.Job.ID,
		JobType:  c.Job.JobType,
		Kind:     kind,
		Stage:    stage,
		Progress: progress,
		Message:  msg,
		Data:     data,
	}})
}

func (c *Context) jobProgress() int {
	if c.Job == nil {
		return 0
	}
	return c.Job.Progress
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
