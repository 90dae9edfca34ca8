package domain

import (
	"github.com/yungbote/fitlol-ingest/internal/domain/ingest"
	"github.com/yungbote/fitlol-ingest/internal/domain/jobs"
)

type Summoner = ingest.Summoner
type Match = ingest.Match
type MatchParticipant = ingest.MatchParticipant
type IngestionCursor = ingest.IngestionCursor

type JobRun = jobs.JobRun
type JobRunEvent = jobs.JobRunEvent
type JobEventKind = jobs.JobEventKind

const (
	JobStatusQueued    = jobs.StatusQueued
	JobStatusDelayed   = jobs.StatusDelayed
	JobStatusRunning   = jobs.StatusRunning
	JobStatusSucceeded = jobs.StatusSucceeded
	JobStatusFailed    = jobs.StatusFailed

	JobEventCreated   = jobs.JobEventCreated
	JobEventProgress  = jobs.JobEventProgress
	JobEventLog       = jobs.JobEventLog
	JobEventFailed    = jobs.JobEventFailed
	JobEventSucceeded = jobs.JobEventSucceeded
)
