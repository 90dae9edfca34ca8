package app

import (
	apphttp "github.com/yungbote/fitlol-ingest/internal/http"
	httpH "github.com/yungbote/fitlol-ingest/internal/http/handlers"
	httpMW "github.com/yungbote/fitlol-ingest/internal/http/middleware"
	"github.com/yungbote/fitlol-ingest/internal/platform/logger"
	"github.com/yungbote/fitlol-ingest/internal/realtime"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health    *httpH.HealthHandler
	Ingestion *httpH.IngestionHandler
	Realtime  *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, services Services, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:    httpH.NewHealthHandler(),
		Ingestion: httpH.NewIngestionHandler(log, services.Ingestion, services.Jobs),
		Realtime:  httpH.NewRealtimeHandler(log, hub),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey),
	}
}

func wireServer(log *logger.Logger, handlers Handlers, middleware Middleware) *apphttp.Server {
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:              log,
		AuthMiddleware:   middleware.Auth,
		IngestionHandler: handlers.Ingestion,
		RealtimeHandler:  handlers.Realtime,
		HealthHandler:    handlers.Health,
	})
}
