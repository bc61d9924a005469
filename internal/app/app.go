package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/himlearning/storyhub/internal/config"
	"github.com/himlearning/storyhub/internal/database"
	"github.com/himlearning/storyhub/internal/middleware"
	"github.com/himlearning/storyhub/internal/modules/storage/media"
	"github.com/himlearning/storyhub/internal/pkg/cron"
	pkgredis "github.com/himlearning/storyhub/internal/pkg/redis"
	"go.uber.org/zap"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *database.DB
	redis  *pkgredis.Client
	media  media.Provider
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *cron.Scheduler
}

// New initializes the application: settings → Mongo → Redis → media → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	applyRuntimeSettings(cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())

	db, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(ctx, cfg.RedisURL)
	if err != nil {
		cancel()
		_ = db.Close(context.Background())
		return nil, fmt.Errorf("redis: %w", err)
	}

	provider, err := newMediaProvider(cfg)
	if err != nil {
		cancel()
		_ = rc.Close()
		_ = db.Close(context.Background())
		return nil, fmt.Errorf("media: %w", err)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.MaxMultipartMemory = 32 << 20
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(corsConfig(cfg)))

	a := &App{
		cfg:    cfg,
		router: router,
		db:     db,
		redis:  rc,
		media:  provider,
		logger: logger,
		cancel: cancel,
		sched:  cron.New(logger),
	}
	a.registerRoutes()
	go a.sched.Start(ctx)

	return a, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background jobs and closes the stores.
func (a *App) Shutdown(ctx context.Context) {
	a.cancel()
	if err := a.redis.Close(); err != nil {
		a.logger.Warn("redis close", zap.Error(err))
	}
	if err := a.db.Close(ctx); err != nil {
		a.logger.Warn("mongo close", zap.Error(err))
	}
}
