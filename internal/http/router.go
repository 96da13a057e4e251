package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/dossier-backend/internal/http/handlers"
	httpMW "github.com/yungbote/dossier-backend/internal/http/middleware"
	"github.com/yungbote/dossier-backend/internal/observability"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	Tracing     bool
	CORSOrigins []string
	APIKey      string
	// ConfigMissing, when set, turns every /api route into a 503.
	ConfigMissing error

	AuthHandler        *httpH.AuthHandler
	AuthMiddleware     *httpMW.AuthMiddleware
	SessionHandler     *httpH.SessionHandler
	DossierHandler     *httpH.DossierHandler
	CompositionHandler *httpH.CompositionHandler
	AttachmentHandler  *httpH.AttachmentHandler
	RealtimeHandler    *httpH.RealtimeHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Tracing {
		name := cfg.ServiceName
		if name == "" {
			name = "dossier-backend"
		}
		r.Use(otelgin.Middleware(name))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	if cfg.ConfigMissing != nil {
		api.Any("/*path", httpMW.RequireConfigured(cfg.ConfigMissing))
		return r
	}

	// Magic link target; opened from email so it carries no api key.
	if cfg.AuthHandler != nil {
		api.GET("/auth/callback", cfg.AuthHandler.Callback)
	}

	keyed := api.Group("")
	keyed.Use(httpMW.RequireAPIKey(cfg.APIKey))
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			keyed.POST("/auth/sign-in", cfg.AuthHandler.SignIn)
			keyed.POST("/auth/refresh", cfg.AuthHandler.Refresh)
		}
	}

	protected := keyed.Group("")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.AuthHandler != nil {
			protected.POST("/auth/sign-out", cfg.AuthHandler.SignOut)
		}
		if cfg.SessionHandler != nil {
			protected.GET("/session", cfg.SessionHandler.GetSession)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/events", cfg.RealtimeHandler.SSEStream)
		}

		// Dossiers
		if cfg.DossierHandler != nil {
			protected.GET("/dossiers", cfg.DossierHandler.List)
			protected.POST("/dossiers", cfg.DossierHandler.Create)
			protected.POST("/dossiers/:id/select", cfg.DossierHandler.Select)
			protected.PATCH("/dossiers/:id", cfg.DossierHandler.Patch)
			protected.DELETE("/dossiers/:id", cfg.DossierHandler.Delete)
		}

		// Composition table
		if cfg.CompositionHandler != nil {
			protected.POST("/dossiers/:id/composition/rows", cfg.CompositionHandler.AddRow)
			protected.PATCH("/dossiers/:id/composition/rows/:index", cfg.CompositionHandler.UpdateRow)
			protected.DELETE("/dossiers/:id/composition/rows/:index", cfg.CompositionHandler.RemoveRow)
		}

		// Attachments
		if cfg.AttachmentHandler != nil {
			protected.PUT("/dossiers/:id/attachments/:slot", cfg.AttachmentHandler.Upload)
			protected.GET("/dossiers/:id/attachments/:slot", cfg.AttachmentHandler.Download)
			protected.DELETE("/dossiers/:id/attachments/:slot", cfg.AttachmentHandler.Remove)
		}
	}

	return r
}
