package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/clearpath-backend/internal/gating"
	"github.com/yungbote/clearpath-backend/internal/observability"
	"github.com/yungbote/clearpath-backend/internal/platform/logger"
	"github.com/yungbote/clearpath-backend/internal/realtime/bus"
	"github.com/yungbote/clearpath-backend/internal/services"
)

type Services struct {
	Engine    *gating.Engine
	Notifier  services.ModuleNotifier
	User      services.UserService
	Auth      services.AuthService
	Gating    services.GatingService
	Progress  services.ProgressService
	Tracking  services.TrackingService
	ToolState services.ToolStateService
}

// wireEngine loads the gating config (embedded unless GATING_RULES_PATH is
// set) and builds the engine over the repos.
func wireEngine(log *logger.Logger, cfg Config, reposet Repos, metrics *observability.Metrics) (*gating.Engine, error) {
	gcfg, err := gating.LoadConfig(cfg.GatingRulesPath)
	if err != nil {
		return nil, fmt.Errorf("load gating config: %w", err)
	}
	store := services.NewGatingStore(reposet.User, reposet.ModuleProgress, reposet.Readiness, reposet.ToolState)
	opts := []gating.Option{
		gating.WithLogger(log),
		gating.WithFanout(cfg.GatingFanout),
	}
	if metrics != nil {
		opts = append(opts, gating.WithObserver(metrics))
	}
	engine, err := gating.NewEngine(store, gcfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("init gating engine: %w", err)
	}
	log.Info("gating engine ready", "modules", len(gcfg.Modules), "order", gcfg.TopologicalOrder())
	return engine, nil
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, sseBus bus.Bus, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")
	engine, err := wireEngine(log, cfg, reposet, metrics)
	if err != nil {
		return Services{}, err
	}
	notifier := services.WithMetrics(services.NewModuleNotifier(&services.BusEmitter{Bus: sseBus, Log: log}), metrics)
	userService := services.NewUserService(log, reposet.User)
	return Services{
		Engine:    engine,
		Notifier:  notifier,
		User:      userService,
		Auth:      services.NewAuthService(log, userService, cfg.JWTSecretKey),
		Gating:    services.NewGatingService(log, engine, reposet.ModuleProgress),
		Progress:  services.NewProgressService(db, log, reposet.ModuleProgress, engine, notifier),
		Tracking:  services.NewTrackingService(db, log, reposet.Readiness, engine, notifier),
		ToolState: services.NewToolStateService(log, reposet.ToolState, engine, notifier),
	}, nil
}
