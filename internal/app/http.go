package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/clearpath-backend/internal/http"
	httpH "github.com/yungbote/clearpath-backend/internal/http/handlers"
	httpMW "github.com/yungbote/clearpath-backend/internal/http/middleware"
	"github.com/yungbote/clearpath-backend/internal/observability"
	"github.com/yungbote/clearpath-backend/internal/platform/logger"
	"github.com/yungbote/clearpath-backend/internal/realtime"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health    *httpH.HealthHandler
	User      *httpH.UserHandler
	Module    *httpH.ModuleHandler
	Readiness *httpH.ReadinessHandler
	ToolState *httpH.ToolStateHandler
	Realtime  *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services, sseHub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	var pinger httpH.Pinger
	if sqlDB, err := db.DB(); err == nil {
		pinger = sqlDB
	}
	return Handlers{
		Health:    httpH.NewHealthHandler(pinger),
		User:      httpH.NewUserHandler(services.User),
		Module:    httpH.NewModuleHandler(services.Gating, services.Progress),
		Readiness: httpH.NewReadinessHandler(services.Tracking),
		ToolState: httpH.NewToolStateHandler(services.ToolState),
		Realtime:  httpH.NewRealtimeHandler(log, sseHub),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *gin.Engine {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return http.NewRouter(http.RouterConfig{
		Log:              log,
		Metrics:          metrics,
		ServiceName:      serviceName,
		CORSOrigins:      cfg.CORSOrigins,
		AuthMiddleware:   middleware.Auth,
		HealthHandler:    handlers.Health,
		UserHandler:      handlers.User,
		ModuleHandler:    handlers.Module,
		ReadinessHandler: handlers.Readiness,
		ToolStateHandler: handlers.ToolState,
		RealtimeHandler:  handlers.Realtime,
	})
}
