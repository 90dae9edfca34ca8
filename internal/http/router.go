package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/yungbote/fitlol-ingest/internal/http/handlers"
	httpMW "github.com/yungbote/fitlol-ingest/internal/http/middleware"
	"github.com/yungbote/fitlol-ingest/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	AuthMiddleware   *httpMW.AuthMiddleware
	IngestionHandler *httpH.IngestionHandler
	RealtimeHandler  *httpH.RealtimeHandler
	HealthHandler    *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.CORS())
	if cfg.AuthMiddleware != nil {
		r.Use(cfg.AuthMiddleware.Identity())
	}
	r.Use(httpMW.RequestLogger(cfg.Log))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.IngestionHandler != nil {
			api.POST("/ingestion/summoner/latest", cfg.IngestionHandler.SubmitLatest)
			api.GET("/ingestion/jobs/:id", cfg.IngestionHandler.GetJob)
			api.GET("/ingestion/jobs/:id/events", cfg.IngestionHandler.GetJobEvents)
			api.GET("/ingestion/summary", cfg.IngestionHandler.Summary)
			api.GET("/ingestion/config", cfg.IngestionHandler.Config)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
		}
	}

	return r
}
