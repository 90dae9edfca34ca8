package runtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/fitlol-ingest/internal/domain"
)

type stubHandler struct {
	jobType string
	ran     bool
}

func (h *stubHandler) Type() string          { return h.jobType }
func (h *stubHandler) Run(jc *Context) error { h.ran = true; return nil }

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&stubHandler{jobType: "a"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&stubHandler{jobType: "a"}); err == nil {
		t.Fatal("duplicate registration must fail")
	}
	if err := r.Register(&stubHandler{}); err == nil {
		t.Fatal("empty job type must fail")
	}
	if err := r.Register(nil); err == nil {
		t.Fatal("nil handler must fail")
	}

	if _, ok := r.Get("a"); !ok {
		t.Fatal("registered handler not found")
	}
	if _, ok := r.Get("b"); ok {
		t.Fatal("unregistered handler found")
	}
	if got := r.Types(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("Types = %v", got)
	}
}

func TestContextPayloadAccessors(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{
		"summonerName": " Hide on bush ",
		"count":        float64(25),
		"force":        true,
		"empty":        "",
	})
	job := &types.JobRun{ID: uuid.New(), Payload: datatypes.JSON(raw)}
	jc := NewContext(context.Background(), nil, job, nil, nil, nil)

	if s, ok := jc.PayloadString("summonerName"); !ok || s != "Hide on bush" {
		t.Fatalf("PayloadString = %q/%v", s, ok)
	}
	if _, ok := jc.PayloadString("empty"); ok {
		t.Fatal("empty string field must report missing")
	}
	if n, ok := jc.PayloadInt("count"); !ok || n != 25 {
		t.Fatalf("PayloadInt = %d/%v", n, ok)
	}
	if _, ok := jc.PayloadInt("summonerName"); ok {
		t.Fatal("non-numeric field must report missing")
	}
	if b, ok := jc.PayloadBool("force"); !ok || !b {
		t.Fatalf("PayloadBool = %v/%v", b, ok)
	}
}

func TestContextTerminalStateIsFinalInMemory(t *testing.T) {
	job := &types.JobRun{ID: uuid.New(), Status: types.JobStatusRunning}
	jc := NewContext(context.Background(), nil, job, nil, nil, nil)

	jc.Succeed("done", map[string]any{"ok": true})
	if job.Status != types.JobStatusSucceeded || job.Progress != 100 {
		t.Fatalf("job = %+v", job)
	}
	if job.LockedAt != nil {
		t.Fatal("locked_at must clear on success")
	}
}
