package app

import (
	"github.com/yungbote/dossier-backend/internal/http"
	httpH "github.com/yungbote/dossier-backend/internal/http/handlers"
	httpMW "github.com/yungbote/dossier-backend/internal/http/middleware"
	"github.com/yungbote/dossier-backend/internal/observability"
	"github.com/yungbote/dossier-backend/internal/platform/envutil"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/realtime"
)

const serviceName = "dossier-backend"

func baseRouterConfig(log *logger.Logger, cfg Config, metrics *observability.Metrics) http.RouterConfig {
	return http.RouterConfig{
		Log:         log,
		Metrics:     metrics,
		ServiceName: serviceName,
		Tracing:     envutil.Bool("OTEL_ENABLED", false),
		CORSOrigins: cfg.CORSOrigins,
		APIKey:      cfg.ServicePublicKey,
	}
}

// wireUnconfiguredServer serves health and metrics only; every /api route
// reports the missing keys.
func wireUnconfiguredServer(log *logger.Logger, cfg Config, metrics *observability.Metrics) *http.Server {
	rc := baseRouterConfig(log, cfg, metrics)
	rc.ConfigMissing = cfg.Missing
	rc.HealthHandler = httpH.NewHealthHandler(cfg.Missing.Keys, string(cfg.ObjectStorage.Mode))
	return http.NewServer(rc)
}

func wireServer(
	log *logger.Logger,
	cfg Config,
	metrics *observability.Metrics,
	serviceset Services,
	clients Clients,
	hub *realtime.SSEHub,
) *http.Server {
	log.Info("Wiring HTTP handlers...")

	rc := baseRouterConfig(log, cfg, metrics)
	rc.AuthHandler = httpH.NewAuthHandler(serviceset.Auth, serviceset.Registry)
	rc.AuthMiddleware = httpMW.NewAuthMiddleware(log, serviceset.Auth)
	rc.SessionHandler = httpH.NewSessionHandler(serviceset.Registry)
	rc.DossierHandler = httpH.NewDossierHandler(serviceset.Registry)
	rc.CompositionHandler = httpH.NewCompositionHandler(serviceset.Registry)
	rc.AttachmentHandler = httpH.NewAttachmentHandler(serviceset.Registry, cfg.MaxUploadBytes)
	rc.RealtimeHandler = httpH.NewRealtimeHandler(log, hub, metrics, cfg.OrgID)
	rc.HealthHandler = httpH.NewHealthHandler(nil, clients.Blobs.Provider())
	return http.NewServer(rc)
}
