package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"

	fleetdb "github.com/yungbote/railfleet-backend/internal/data/db"
	"github.com/yungbote/railfleet-backend/internal/events"
	"github.com/yungbote/railfleet-backend/internal/observability"
	"github.com/yungbote/railfleet-backend/internal/pkg/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Services Services
	Bus      events.Bus
	Metrics  *observability.Metrics

	dbSvc        *fleetdb.Service
	redis        *events.RedisBus
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	logMode := strings.TrimSpace(os.Getenv("LOG_MODE"))
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return NewWithConfig(ctx, log, cfg)
}

// NewWithConfig wires the App from an already resolved Config.
func NewWithConfig(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)
	metrics := observability.Init(log, cfg.MetricsEnabled)

	dbSvc, err := fleetdb.Open(cfg.Database, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := dbSvc.AutoMigrateAll(); err != nil {
			_ = dbSvc.Close()
			log.Sync()
			return nil, fmt.Errorf("database automigrate: %w", err)
		}
	}
	theDB := dbSvc.DB()

	var (
		bus      events.Bus = events.NoopBus{}
		redisBus *events.RedisBus
	)
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		b, err := events.NewRedisBus(log, cfg.Redis)
		if err != nil {
			_ = dbSvc.Close()
			log.Sync()
			return nil, fmt.Errorf("init redis event bus: %w", err)
		}
		bus, redisBus = b, b
	}

	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, bus, metrics)
	if err != nil {
		_ = bus.Close()
		_ = dbSvc.Close()
		log.Sync()
		return nil, err
	}

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Bus:          bus,
		Metrics:      metrics,
		dbSvc:        dbSvc,
		redis:        redisBus,
		otelShutdown: otelShutdown,
	}, nil
}

// Migrate applies the schema and the workflow uniqueness indexes.
func (a *App) Migrate() error {
	if a == nil || a.dbSvc == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.dbSvc.AutoMigrateAll()
}

// Start launches the metrics endpoint and background collectors.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Metrics != nil {
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
		a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
		a.Metrics.StartWorkflowCollector(ctx, a.Log, a.DB)
		if a.redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, a.redis.Client())
		}
	}
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
		if err := a.Bus.Close(); err != nil {
			a.Log.Warn("event bus close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.dbSvc != nil {
		if err := a.dbSvc.Close(); err != nil {
			a.Log.Warn("database close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
