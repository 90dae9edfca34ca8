package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Job lifecycle statuses as stored on job_run rows. The HTTP surface maps
// these onto the wire names (waiting/active/completed/failed/delayed).
const (
	StatusQueued    = "queued"
	StatusDelayed   = "delayed"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// JobRun is one durable unit of queued work. A row is runnable while queued
// (or delayed past run_at), leased while running (heartbeat_at is the
// liveness signal other workers check before reclaiming), and retained for a
// bounded window after reaching a terminal status.
type JobRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Queue       string         `gorm:"column:queue;not null;index" json:"queue"`
	JobType     string         `gorm:"column:job_type;not null;index" json:"job_type"`
	RequestedBy string         `gorm:"column:requested_by;index" json:"requested_by,omitempty"`
	Status      string         `gorm:"column:status;not null;index" json:"status"`
	Stage       string         `gorm:"column:stage;not null" json:"stage"`
	Progress    int            `gorm:"column:progress;not null;default:0" json:"progress"`
	Attempts    int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Message     string         `gorm:"column:message" json:"message,omitempty"`
	Error       string         `gorm:"column:error" json:"error,omitempty"`
	RunAt       *time.Time     `gorm:"column:run_at;index" json:"run_at,omitempty"`
	LockedAt    *time.Time     `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt *time.Time     `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	LastErrorAt *time.Time     `gorm:"column:last_error_at;index" json:"last_error_at,omitempty"`
	Payload     datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	Result      datatypes.JSON `gorm:"column:result;type:jsonb" json:"result"`
	CreatedAt   time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
}

func (JobRun) TableName() string { return "job_run" }
