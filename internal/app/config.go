package app

import (
	"github.com/yungbote/fitlol-ingest/internal/platform/envutil"
	"github.com/yungbote/fitlol-ingest/internal/platform/logger"
)

type Config struct {
	Port                  string
	JWTSecretKey          string
	Queue                 string
	IngestionDefaultCount int
	IngestionMaxPerRun    int
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:                  envutil.String("PORT", "8080"),
		JWTSecretKey:          envutil.String("JWT_SECRET_KEY", ""),
		Queue:                 envutil.String("QUEUE_PREFIX", "fitlol"),
		IngestionDefaultCount: envutil.Int("INGESTION_DEFAULT_COUNT", 10),
		IngestionMaxPerRun:    envutil.Int("INGESTION_MAX_MATCHES_PER_RUN", 10),
	}
	if cfg.JWTSecretKey == "" {
		log.Warn("JWT_SECRET_KEY not set, requests will run unauthenticated")
	}
	return cfg
}
