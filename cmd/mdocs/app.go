package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/xxxsen/mdocs/internal/config"
	"github.com/xxxsen/mdocs/internal/db"
	"github.com/xxxsen/mdocs/internal/filestore"
	"github.com/xxxsen/mdocs/internal/handler"
	"github.com/xxxsen/mdocs/internal/job"
	"github.com/xxxsen/mdocs/internal/metrics"
	"github.com/xxxsen/mdocs/internal/middleware"
	"github.com/xxxsen/mdocs/internal/pkg/dbutil"
	"github.com/xxxsen/mdocs/internal/repo"
	"github.com/xxxsen/mdocs/internal/schedule"
	"github.com/xxxsen/mdocs/internal/service"
)

const shutdownTimeout = 10 * time.Second

type app struct {
	documents *service.DocumentService
	exports   *service.ExportService
	closers   []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	docs, err := a.openRepository(ctx, cfg.Database)
	if err != nil {
		a.Close()
		return nil, err
	}
	var store filestore.Store
	if cfg.FileStore.Type != "" {
		if store, err = filestore.New(cfg.FileStore); err != nil {
			a.Close()
			return nil, fmt.Errorf("init file store: %w", err)
		}
	} else {
		logutil.GetLogger(ctx).Info("no file store configured, backups disabled")
	}
	a.documents = service.NewDocumentService(docs, time.Duration(cfg.TrashRetentionHours)*time.Hour, cfg.ShareBaseURL)
	a.exports = service.NewExportService(docs, store, nil)
	return a, nil
}

func (a *app) openRepository(ctx context.Context, cfg config.DatabaseConfig) (service.DocumentRepository, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	logger := logutil.GetLogger(ctx).With(zap.String("driver", cfg.Driver))
	switch cfg.Driver {
	case dbutil.DriverPostgres, dbutil.DriverSQLite:
		conn, err := db.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		a.closers = append(a.closers, func() { _ = conn.Close() })
		if err := db.ApplyMigrations(conn); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		logger.Info("sql repository ready")
		return repo.NewDocumentRepo(conn, cfg.Driver, timeout), nil
	case "mongo":
		client, err := db.ConnectMongo(ctx, cfg.DSN, timeout)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Disconnect(context.Background()) })
		docs, err := repo.NewMongoDocumentRepo(ctx, mongoCollection(client, cfg.Database), timeout)
		if err != nil {
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		logger.Info("mongo repository ready", zap.String("database", cfg.Database))
		return docs, nil
	case "memory":
		logger.Warn("memory repository in use, documents are lost on restart")
		return repo.NewMemoryDocumentRepo(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

func mongoCollection(client *mongo.Client, database string) *mongo.Collection {
	return client.Database(database).Collection("documents")
}

func shareLimiter(cfg *config.Config) (gin.HandlerFunc, func(), error) {
	rl := cfg.RateLimit
	if cfg.Redis.Addr == "" {
		return middleware.RateLimit(rl.RPS, rl.Burst, rl.CacheSize, time.Duration(rl.TTLSeconds)*time.Second), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	window := time.Duration(cfg.Redis.WindowSeconds) * time.Second
	return middleware.RedisRateLimit(client, rl.RPS, rl.Burst, window), func() { _ = client.Close() }, nil
}

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := logutil.GetLogger(ctx)
	logger.Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("driver", cfg.Database.Driver),
		zap.String("file_store", cfg.FileStore.Type),
		zap.Int("trash_retention_hours", cfg.TrashRetentionHours),
	)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	limiter, closeLimiter, err := shareLimiter(cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	scheduler := schedule.NewCronScheduler()
	sweepJob := job.NewTrashSweepJob(a.documents)
	if err := scheduler.AddJob(sweepJob, cfg.SweepCron); err != nil {
		return fmt.Errorf("schedule trash sweep: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()
	scheduler.Trigger(sweepJob.Name())

	deps := handler.RouterDeps{
		Documents:    handler.NewDocumentHandler(a.documents),
		Trash:        handler.NewTrashHandler(a.documents),
		Shares:       handler.NewShareHandler(a.documents),
		Export:       handler.NewExportHandler(a.exports),
		JWTSecret:    []byte(cfg.JWTSecret),
		ShareLimiter: limiter,
	}
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	logger.Info("http server listening", zap.String("addr", addr))
	return serve(ctx, &http.Server{Handler: engine}, ln)
}

// serve runs srv until ctx is done, then drains in-flight requests before
// returning so callers can release backends afterwards.
func serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	logger := logutil.GetLogger(ctx)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("server stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
