package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/facility-admin-api/api/swagger"
	"github.com/noah-isme/facility-admin-api/internal/handler"
	"github.com/noah-isme/facility-admin-api/internal/realtime"
	"github.com/noah-isme/facility-admin-api/internal/repository"
	"github.com/noah-isme/facility-admin-api/internal/service"
	"github.com/noah-isme/facility-admin-api/pkg/cache"
	"github.com/noah-isme/facility-admin-api/pkg/config"
	"github.com/noah-isme/facility-admin-api/pkg/database"
	"github.com/noah-isme/facility-admin-api/pkg/export"
	"github.com/noah-isme/facility-admin-api/pkg/jobs"
	"github.com/noah-isme/facility-admin-api/pkg/logger"
	"github.com/noah-isme/facility-admin-api/pkg/storage"
)

// @title Facility Admin API
// @version 1.0.0
// @description Meeting room scheduling and work order administration
// @BasePath /api
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	checks := map[string]handler.Pinger{"database": db}

	var redisClient *redis.Client
	if client, err := cache.NewRedis(ctx, cfg.Redis); err != nil {
		logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
	} else {
		redisClient = client
		defer redisClient.Close()
		checks["redis"] = cache.Checker{Client: redisClient}
	}

	loc := cfg.Location()
	validate := validator.New()
	metrics := service.NewMetricsService()

	admins := repository.NewAdminRepository(db)
	rooms := repository.NewRoomRepository(db)
	bookings := repository.NewBookingRepository(db)
	technicians := repository.NewTechnicianRepository(db)
	categories := repository.NewCategoryRepository(db)
	workOrders := repository.NewWorkOrderRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	reportJobs := repository.NewReportJobRepository(db)

	cacheSvc := service.NewCacheService(nil, metrics, cfg.Dashboard.CacheTTL, logr, false)
	if redisClient != nil {
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Dashboard.CacheTTL, logr, true)
	}

	authSvc := service.NewAuthService(admins, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		ResetTokenExpiry:   cfg.JWT.ResetExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	bookingSvc := service.NewBookingService(bookings, rooms, admins, validate, metrics, logr, service.BookingServiceConfig{
		Location: loc,
	})
	roomSvc := service.NewRoomService(rooms, logr)
	technicianSvc := service.NewTechnicianService(technicians, admins, validate, logr)
	categorySvc := service.NewCategoryService(categories, validate, logr)
	workOrderSvc := service.NewWorkOrderService(workOrders, cacheSvc, admins, validate, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Repo:        dashboardRepo,
		Rooms:       rooms,
		Technicians: technicians,
		Categories:  categories,
		Admins:      admins,
		Cache:       cacheSvc,
		Logger:      logr,
		Config: service.DashboardServiceConfig{
			CacheTTL:         cfg.Dashboard.CacheTTL,
			DefaultRangeDays: cfg.Dashboard.DefaultRangeDays,
			Location:         loc,
		},
	})

	files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Fatal("report storage unavailable", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	csvOpts := []export.CSVOption{export.WithDelimiter(cfg.Reports.CSVDelimiter)}
	if cfg.Reports.CSVByteOrderMark {
		csvOpts = append(csvOpts, export.WithByteOrderMark())
	}
	exportSvc := service.NewExportService(workOrders, files, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
		Location:  loc,
		CSV:       csvOpts,
	}, logr)

	worker := service.NewReportWorker(reportJobs, exportSvc, metrics, cfg.Reports.WorkerRetries, logr)
	queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()

	reportSvc := service.NewReportService(reportJobs, queue, exportSvc, metrics, logr, service.ReportServiceConfig{
		ResultTTL: cfg.Reports.SignedURLTTL,
		Location:  loc,
	})
	reportSvc.RecoverPendingJobs(ctx)
	reportSvc.StartCleanup(ctx)

	var feed *realtime.Feed
	if cfg.Feed.Enabled {
		listener := realtime.NewPQListener(database.DSN(cfg.Database), cfg.Feed.MinReconnectInterval, cfg.Feed.MaxReconnectInterval, logr)
		feed = realtime.NewFeed(listener, realtime.Config{
			Channel:      cfg.Feed.Channel,
			PingInterval: cfg.Feed.PingInterval,
		}, metrics, logr)
		defer realtime.InvalidateOnChange(feed, dashboardSvc, 5*time.Second)()
		go func() {
			if err := feed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logr.Error("work order feed stopped", zap.Error(err))
			}
		}()
	}

	var changes handler.ChangeFeed
	if feed != nil {
		changes = feed
	}

	engine := gin.New()
	handler.NewRouter(engine, handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Tokens:         authSvc,
		Audit:          admins,
		Metrics:        metrics,
		Logger:         logr,
	}, handler.Handlers{
		Auth:        handler.NewAuthHandler(authSvc, cfg.Env != config.EnvProduction),
		Bookings:    handler.NewBookingHandler(bookingSvc),
		Rooms:       handler.NewRoomHandler(roomSvc),
		Technicians: handler.NewTechnicianHandler(technicianSvc),
		Categories:  handler.NewCategoryHandler(categorySvc),
		WorkOrders:  handler.NewWorkOrderHandler(workOrderSvc, changes, handler.WorkOrderHandlerConfig{Location: loc}),
		Dashboard:   handler.NewDashboardHandler(dashboardSvc),
		Reports:     handler.NewReportHandler(reportSvc, exportSvc, loc),
		Health:      handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
