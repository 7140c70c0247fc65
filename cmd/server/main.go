package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/visit-management/internal/config"
	"github.com/iliyamo/visit-management/internal/database"
	"github.com/iliyamo/visit-management/internal/handler"
	"github.com/iliyamo/visit-management/internal/lock"
	"github.com/iliyamo/visit-management/internal/metrics"
	"github.com/iliyamo/visit-management/internal/middleware"
	"github.com/iliyamo/visit-management/internal/model"
	"github.com/iliyamo/visit-management/internal/queue"
	"github.com/iliyamo/visit-management/internal/repository"
	"github.com/iliyamo/visit-management/internal/repository/memory"
	"github.com/iliyamo/visit-management/internal/router"
	"github.com/iliyamo/visit-management/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, closeStore, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeStore()

	rec := metrics.New()
	deps.Clock = service.SystemClock{Location: cfg.Location}
	deps.Logger = logger
	deps.Metrics = rec

	rdb := config.NewRedisClient(logger)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		deps.Locker = lock.NewSweepLock(rdb, lock.DefaultKey, cfg.SweepLockTTL, cfg.SweepWait, logger)
	}

	if cfg.QueueEnabled {
		pub := queue.NewPublisher(cfg.AMQPURL, cfg.AuditQueue, logger)
		defer pub.Close()
		deps.Events = pub
		consumer := queue.Consumer{URL: cfg.AMQPURL, Queue: cfg.AuditQueue, Dir: cfg.AuditLogDir, Log: logger}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}

	lc := service.NewLifecycle(deps)
	h := router.Handlers{
		Visits:    handler.NewVisitHandler(lc, service.NewHistory(deps), logger),
		Directory: handler.NewDirectoryHandler(service.NewDirectory(deps), logger),
		Catalog:   handler.NewCatalogHandler(service.NewCatalog(deps), logger),
	}
	opts := router.Options{
		JWTSecret: cfg.JWTSecret,
		Profiles:  deps.Profiles,
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger),
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger),
		Metrics:   rec.Handler(),
		Logger:    logger,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(requestLogger(logger))
	router.RegisterRoutes(e, opts)
	router.RegisterAPI(e, h, opts)

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("stopped")
}

// openStores builds the store ports for the configured driver.
func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (service.Deps, func(), error) {
	if cfg.StoreDriver == config.DriverMemory {
		s := memory.New()
		if cfg.MemoryAdminID != "" {
			if err := s.PutProfile(model.Profile{ID: cfg.MemoryAdminID, Email: cfg.MemoryAdminEmail, Role: model.RoleAdmin}); err != nil {
				return service.Deps{}, nil, err
			}
		}
		seedReference(s)
		logger.Warn("using in-memory store; data is lost on exit")
		return service.Deps{Profiles: s, Areas: s, Visits: s, Audit: s, Catalog: s}, func() {}, nil
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return service.Deps{}, nil, err
	}
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return service.Deps{}, nil, err
		}
		logger.Info("schema applied")
	}
	return service.Deps{
		Profiles: repository.NewProfileRepo(db),
		Areas:    repository.NewAreaRepo(db),
		Visits:   repository.NewVisitRepo(db),
		Audit:    repository.NewAuditRepo(db),
		Catalog:  repository.NewCatalogRepo(db),
	}, closer(db), nil
}

// seedReference loads the reference rows the MySQL deployment gets from
// its own provisioning, so the memory driver can schedule and cancel.
func seedReference(s *memory.Store) {
	for i, name := range []string{"BUSINESS", "FOLLOW_UP", "COLLECTION"} {
		s.PutVisitType(model.VisitType{ID: "vt-" + strconv.Itoa(i+1), Name: name})
	}
	for i, d := range []string{"Client unavailable", "Rescheduled", "Advisor unavailable"} {
		s.PutCancelReason(model.CancelReason{ID: "cr-" + strconv.Itoa(i+1), Description: d})
	}
	s.PutObjective(model.Objective{ID: "obj-1", Name: "Walk-in client", ObjectiveType: model.ObjectivePerson})
}

func closer(db *sql.DB) func() {
	return func() { _ = db.Close() }
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if a, ok := middleware.ActorFrom(c); ok {
				fields = append(fields, zap.String("actor_id", a.ID))
			}
			if v.Error != nil {
				logger.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	})
}
