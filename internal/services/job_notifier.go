package services

import (
	"context"

	types "github.com/yungbote/fitlol-ingest/internal/domain"
	"github.com/yungbote/fitlol-ingest/internal/platform/logger"
	"github.com/yungbote/fitlol-ingest/internal/realtime"
	"github.com/yungbote/fitlol-ingest/internal/realtime/bus"
)

type JobNotifier interface {
	JobCreated(job *types.JobRun)
	JobProgress(job *types.JobRun, stage string, progress int, message string)
	JobLog(job *types.JobRun, message string)
	JobFailed(job *types.JobRun, stage string, errorMessage string)
	JobDone(job *types.JobRun)
}

type jobNotifier struct {
	hub *realtime.SSEHub
	bus bus.Bus
	log *logger.Logger
}

// NewJobNotifier broadcasts job lifecycle events to SSE subscribers. With a
// bus configured, events go through the bus and every replica's forwarder
// (this one included) delivers them to its local hub; without one they go to
// the hub directly. b may be nil.
func NewJobNotifier(hub *realtime.SSEHub, b bus.Bus, log *logger.Logger) JobNotifier {
	return &jobNotifier{hub: hub, bus: b, log: log.With("service", "JobNotifier")}
}

func (n *jobNotifier) publish(event realtime.SSEEvent, job *types.JobRun, data map[string]any) {
	if job == nil {
		return
	}
	channels := []string{realtime.JobChannel(job.ID.String())}
	if job.RequestedBy != "" {
		channels = append(channels, realtime.RequesterChannel(job.RequestedBy))
	}
	for _, ch := range channels {
		msg := realtime.SSEMessage{Channel: ch, Event: event, Data: data}
		if n.bus != nil {
			if err := n.bus.Publish(context.Background(), msg); err != nil {
				n.log.Warn("bus publish failed, delivering locally", "channel", ch, "event", event, "error", err)
				n.hub.Broadcast(msg)
			}
			continue
		}
		n.hub.Broadcast(msg)
	}
}

func (n *jobNotifier) JobCreated(job *types.JobRun) {
	n.publish(realtime.SSEEventJobCreated, job, map[string]any{"job": job})
}

func (n *jobNotifier) JobProgress(job *types.JobRun, stage string, progress int, message string) {
	n.publish(realtime.SSEEventJobProgress, job, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"stage":    stage,
		"progress": progress,
		"message":  message,
	})
}

func (n *jobNotifier) JobLog(job *types.JobRun, message string) {
	n.publish(realtime.SSEEventJobLog, job, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"message":  message,
	})
}

func (n *jobNotifier) JobFailed(job *types.JobRun, stage string, errorMessage string) {
	n.publish(realtime.SSEEventJobFailed, job, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"stage":    stage,
		"error":    errorMessage,
	})
}

func (n *jobNotifier) JobDone(job *types.JobRun) {
	n.publish(realtime.SSEEventJobDone, job, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"job":      job,
	})
}

// NopJobNotifier is used where realtime delivery is not wired, e.g. tests.
type NopJobNotifier struct{}

func (NopJobNotifier) JobCreated(*types.JobRun)                        {}
func (NopJobNotifier) JobProgress(*types.JobRun, string, int, string)  {}
func (NopJobNotifier) JobLog(*types.JobRun, string)                    {}
func (NopJobNotifier) JobFailed(*types.JobRun, string, string)         {}
func (NopJobNotifier) JobDone(*types.JobRun)                           {}
