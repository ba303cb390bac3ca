package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/clearpath-backend/internal/http/handlers"
	httpMW "github.com/yungbote/clearpath-backend/internal/http/middleware"
	"github.com/yungbote/clearpath-backend/internal/observability"
	"github.com/yungbote/clearpath-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler    *httpH.HealthHandler
	UserHandler      *httpH.UserHandler
	ModuleHandler    *httpH.ModuleHandler
	ReadinessHandler *httpH.ReadinessHandler
	ToolStateHandler *httpH.ToolStateHandler
	RealtimeHandler  *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	protected := r.Group("/api")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// User (Me)
		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
		}

		// Modules, gating and progress
		if cfg.ModuleHandler != nil {
			protected.GET("/modules", cfg.ModuleHandler.ListModules)
			protected.GET("/modules/unlocked", cfg.ModuleHandler.ListUnlocked)
			protected.GET("/modules/:slug/gating", cfg.ModuleHandler.GetGating)
			protected.GET("/modules/:slug/prerequisites", cfg.ModuleHandler.GetPrerequisites)
			protected.GET("/modules/:slug/unlock-instructions", cfg.ModuleHandler.GetUnlockInstructions)
			protected.GET("/modules/:slug/safety", cfg.ModuleHandler.GetSafety)
			protected.POST("/modules/:slug/start", cfg.ModuleHandler.StartModule)
			protected.POST("/modules/:slug/complete", cfg.ModuleHandler.CompleteModule)
			protected.POST("/modules/:slug/lessons/:lessonId/complete", cfg.ModuleHandler.CompleteLesson)
			protected.GET("/progress", cfg.ModuleHandler.ListProgress)
		}

		// Drainage readiness
		if cfg.ReadinessHandler != nil {
			protected.PUT("/readiness/:date", cfg.ReadinessHandler.PutReadiness)
			protected.GET("/readiness", cfg.ReadinessHandler.ListReadiness)
		}

		// Tools
		if cfg.ToolStateHandler != nil {
			protected.PUT("/tools/binder-tolerance", cfg.ToolStateHandler.PutBinderTolerance)
			protected.GET("/tools/binder-tolerance", cfg.ToolStateHandler.GetBinderTolerance)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
		}
	}

	return r
}
