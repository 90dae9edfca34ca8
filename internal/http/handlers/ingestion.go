package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/fitlol-ingest/internal/http/response"
	"github.com/yungbote/fitlol-ingest/internal/platform/apierr"
	"github.com/yungbote/fitlol-ingest/internal/platform/dbctx"
	"github.com/yungbote/fitlol-ingest/internal/platform/logger"
	"github.com/yungbote/fitlol-ingest/internal/services"
)

type IngestionHandler struct {
	log       *logger.Logger
	ingestion services.IngestionService
	jobs      services.JobService
}

func NewIngestionHandler(log *logger.Logger, ingestion services.IngestionService, jobs services.JobService) *IngestionHandler {
	return &IngestionHandler{
		log:       log.With("handler", "IngestionHandler"),
		ingestion: ingestion,
		jobs:      jobs,
	}
}

// SubmitLatest accepts an ingestion request and answers 202 with the job id;
// the work itself happens on the worker pool.
func (h *IngestionHandler) SubmitLatest(c *gin.Context) {
	var sub services.IngestionSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidInput, fmt.Errorf("invalid request body: %w", err))
		return
	}
	job, err := h.ingestion.Submit(dbctx.Context{Ctx: c.Request.Context()}, sub)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{
		"jobId": job.ID,
		"type":  job.JobType,
	})
}

func (h *IngestionHandler) GetJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusNotFound, apierr.CodeJobNotFound, fmt.Errorf("job not found"))
		return
	}
	status, err := h.jobs.Status(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, status)
}

func (h *IngestionHandler) GetJobEvents(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusNotFound, apierr.CodeJobNotFound, fmt.Errorf("job not found"))
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	events, err := h.jobs.Events(dbctx.Context{Ctx: c.Request.Context()}, id, limit)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"events": events})
}

func (h *IngestionHandler) Summary(c *gin.Context) {
	counts, err := h.ingestion.Summary(dbctx.Context{Ctx: c.Request.Context()})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"counts": counts})
}

func (h *IngestionHandler) Config(c *gin.Context) {
	response.RespondOK(c, h.ingestion.Config())
}
