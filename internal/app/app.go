package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/dossier-backend/internal/data/db"
	"github.com/yungbote/dossier-backend/internal/data/repos"
	"github.com/yungbote/dossier-backend/internal/http"
	"github.com/yungbote/dossier-backend/internal/observability"
	"github.com/yungbote/dossier-backend/internal/platform/envutil"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *http.Server
	Cfg      Config
	Metrics  *observability.Metrics
	Repos    repos.Repos
	Clients  Clients
	Services Services
	SSEHub   *realtime.SSEHub

	dbService    *db.Service
	shutdownOtel func(context.Context) error
	cancel       context.CancelFunc
	closeOnce    sync.Once
}

// New builds the application. When required configuration is missing, or the
// CONFIG_FILE overlay cannot be read, the returned App only serves health,
// metrics and 503s on /api.
func New(ctx context.Context) (*App, error) {
	cfgPath, cfgErr := applyConfigFile()

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if cfgErr != nil {
		log.Error("Configuration file rejected", "path", cfgPath, "error", cfgErr)
	} else if cfgPath != "" {
		log.Info("Configuration file applied", "path", cfgPath)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)
	if cfgErr != nil {
		cfg.markMissing(configFileEnv)
	}

	shutdownOtel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: cfg.Env,
		Version:     cfg.Version,
	})
	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
	}

	a := &App{
		Log:          log,
		Cfg:          cfg,
		Metrics:      metrics,
		shutdownOtel: shutdownOtel,
	}

	if cfg.Missing != nil {
		a.Server = wireUnconfiguredServer(log, cfg, metrics)
		return a, nil
	}

	dbService, err := db.NewService(log, cfg.DB)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.dbService = dbService
	if err := db.AutoMigrateAll(dbService.DB()); err != nil {
		a.Close()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}
	a.DB = dbService.DB()

	clients, err := wireClients(ctx, log, cfg, metrics)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Clients = clients

	a.SSEHub = realtime.NewSSEHub(log)
	a.Repos = repos.New(a.DB, log)
	a.Services = wireServices(a.DB, log, cfg, a.Repos, clients, a.SSEHub, metrics)
	a.Server = wireServer(log, cfg, metrics, a.Services, clients, a.SSEHub)

	return a, nil
}

// Start launches background work: the bus forwarder feeding the hub and the
// expired link sweeper.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.Clients.Bus != nil {
		if err := a.Clients.Bus.StartForwarder(ctx, a.SSEHub.Broadcast); err != nil {
			return fmt.Errorf("start %T forwarder: %w", a.Clients.Bus, err)
		}
	}
	a.Services.LinkSweeper.Start(ctx)
	return nil
}

// Run starts background work and serves HTTP until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	if err := a.Start(ctx); err != nil {
		return err
	}
	addr := ":" + a.Cfg.Port
	a.Log.Info("Server listening", "addr", addr, "configured", a.Cfg.Missing == nil)
	return a.Server.Run(ctx, addr)
}

// Close releases everything New acquired. Safe to call more than once.
func (a *App) Close() {
	if a == nil {
		return
	}
	a.closeOnce.Do(a.close)
}

func (a *App) close() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.Registry != nil {
		a.Services.Registry.Close()
	}
	a.Clients.Close()
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil {
			a.Log.Warn("Database close failed", "error", err)
		}
	}
	if a.shutdownOtel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.shutdownOtel(ctx); err != nil {
			a.Log.Warn("Tracer shutdown failed", "error", err)
		}
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
