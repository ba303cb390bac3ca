package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/clearpath-backend/internal/data/db"
	"github.com/yungbote/clearpath-backend/internal/gating"
	"github.com/yungbote/clearpath-backend/internal/http"
	"github.com/yungbote/clearpath-backend/internal/observability"
	"github.com/yungbote/clearpath-backend/internal/platform/logger"
	"github.com/yungbote/clearpath-backend/internal/realtime"
	"github.com/yungbote/clearpath-backend/internal/realtime/bus"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	SSEHub   *realtime.SSEHub
	Bus      bus.Bus
	Metrics  *observability.Metrics

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// New loads configuration from the environment and wires the API server.
func New() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a, err := Build(cfg, log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return a, nil
}

func openDB(cfg Config, log *logger.Logger) (*gorm.DB, error) {
	theDB, err := db.Open(cfg.DB, log)
	if err != nil {
		return nil, fmt.Errorf("init %s: %w", cfg.DB.Driver, err)
	}
	if err := db.AutoMigrateAll(theDB); err != nil {
		return nil, fmt.Errorf("%s automigrate: %w", cfg.DB.Driver, err)
	}
	return theDB, nil
}

func Build(cfg Config, log *logger.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strings.EqualFold(cfg.LogMode, "production") || strings.EqualFold(cfg.LogMode, "prod") {
		gin.SetMode(gin.ReleaseMode)
	}

	otelShutdown := observability.InitOTel(context.Background(), log, cfg.Otel)
	metrics := observability.Init(cfg.MetricsEnabled, log)

	theDB, err := openDB(cfg, log)
	if err != nil {
		return nil, err
	}

	closeDB := func() {
		if sqlDB, err := theDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	sseBus, err := bus.New(cfg.Bus, log)
	if err != nil {
		closeDB()
		return nil, fmt.Errorf("init sse bus: %w", err)
	}
	ssehub := realtime.NewSSEHub(log)

	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, sseBus, metrics)
	if err != nil {
		_ = sseBus.Close()
		closeDB()
		return nil, err
	}

	handlerset := wireHandlers(log, theDB, serviceset, ssehub)
	middleware := wireMiddleware(log, serviceset)
	router := wireRouter(log, cfg, metrics, handlerset, middleware)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		SSEHub:       ssehub,
		Bus:          sseBus,
		Metrics:      metrics,
		otelShutdown: otelShutdown,
	}, nil
}

// OpenEngine opens the database and builds only the gating engine. Used by
// offline tooling that evaluates gates without serving HTTP.
func OpenEngine(cfg Config, log *logger.Logger) (*gating.Engine, func() error, error) {
	theDB, err := openDB(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() error {
		sqlDB, err := theDB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	engine, err := wireEngine(log, cfg, wireRepos(theDB, log), nil)
	if err != nil {
		_ = closeDB()
		return nil, nil, err
	}
	return engine, closeDB, nil
}

// Start launches background workers: the bus forwarder feeding the SSE hub
// and the optional standalone metrics listener.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if err := a.Bus.StartForwarder(ctx, a.SSEHub.Broadcast); err != nil {
		cancel()
		a.cancel = nil
		return fmt.Errorf("start sse forwarder: %w", err)
	}
	a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
	return nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return errors.New("app not initialized")
	}
	a.Log.Info("listening", "addr", a.Cfg.Addr())
	return (&http.Server{Engine: a.Router}).Run(ctx, a.Cfg.Addr())
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Bus != nil {
		_ = a.Bus.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
