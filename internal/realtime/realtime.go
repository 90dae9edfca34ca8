package realtime

type SSEEvent string

const (
	SSEEventJobCreated  SSEEvent = "JobCreated"
	SSEEventJobProgress SSEEvent = "JobProgress"
	SSEEventJobLog      SSEEvent = "JobLog"
	SSEEventJobFailed   SSEEvent = "JobFailed"
	SSEEventJobDone     SSEEvent = "JobDone"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// JobChannel is the per-job stream; every lifecycle event of one job run is
// published here.
func JobChannel(jobID string) string { return "jobs:" + jobID }

// RequesterChannel carries events for every job submitted by one caller.
func RequesterChannel(subject string) string { return "requester:" + subject }
