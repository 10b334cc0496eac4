package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/accrediflow-api/api/swagger"
	"github.com/noah-isme/accrediflow-api/internal/handler"
	"github.com/noah-isme/accrediflow-api/internal/middleware"
	"github.com/noah-isme/accrediflow-api/internal/repository"
	"github.com/noah-isme/accrediflow-api/internal/service"
	"github.com/noah-isme/accrediflow-api/pkg/cache"
	"github.com/noah-isme/accrediflow-api/pkg/config"
	"github.com/noah-isme/accrediflow-api/pkg/database"
	"github.com/noah-isme/accrediflow-api/pkg/jobs"
	"github.com/noah-isme/accrediflow-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/accrediflow-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/accrediflow-api/pkg/middleware/requestid"
	"github.com/noah-isme/accrediflow-api/pkg/storage"
)

// @title AccrediFlow API
// @version 1.0.0
// @description Document approval workflow and report booklets for NAAC, NBA and NIRF accreditation
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Documents.ReportCacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, report cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	uploads, err := storage.NewLocalStorage(cfg.Uploads.Dir)
	if err != nil {
		logr.Fatal("failed to prepare upload storage", zap.Error(err))
	}
	exportsStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare report storage", zap.Error(err))
	}

	userRepo := repository.NewUserRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Documents.ReportCacheTTL, logr, cfg.Documents.ReportCacheEnabled && redisClient != nil)
	validate := service.NewValidator()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "accrediflow-api",
		SingleSession:      true,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	documentSvc := service.NewDocumentService(documentRepo, userRepo, validate, logr,
		service.WithCategoryCatalog(cfg.Documents.EnforceCategoryCatalog),
		service.WithReportCache(cacheSvc, cfg.Documents.ReportCacheTTL),
		service.WithDecisionMetrics(metricsSvc),
		service.WithUploadStore(uploads),
	)

	exportSvc := service.NewExportService(service.ExportDeps{
		Documents: documentSvc,
		Blobs:     uploads,
		Exports:   exportsStore,
		Signer:    storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL),
		Metrics:   metricsSvc,
	}, service.ExportConfig{
		APIPrefix:       cfg.APIPrefix,
		ResultTTL:       cfg.Reports.SignedURLTTL,
		ReadConcurrency: cfg.Reports.ReadConcurrency,
	}, logr)

	worker := service.NewReportWorker(reportRepo, exportSvc, logr)
	queue := jobs.NewQueue(service.ReportJobType, worker.Handle, jobs.QueueConfig{
		Workers:     cfg.Reports.WorkerConcurrency,
		MaxRetries:  cfg.Reports.WorkerRetries,
		RetryDelay:  2 * time.Second,
		OnExhausted: worker.MarkFailed,
		Logger:      logr,
	})
	queue.Start(ctx)
	defer queue.Stop()

	reportSvc := service.NewReportService(reportRepo, queue, exportSvc, userRepo, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
	})
	reportSvc.RecoverPendingJobs(ctx)
	reportSvc.StartCleanup(ctx)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(corsmiddleware.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		ExposeHeaders:  []string{"X-Skipped-Documents"},
	}))
	r.Use(middleware.WithResponseMeta())
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics(metricsSvc))
	}

	registerRoutes(r, cfg, routeDeps{
		auth:      handler.NewAuthHandler(authSvc),
		users:     handler.NewUserHandler(userSvc),
		documents: handler.NewDocumentHandler(documentSvc, exportSvc, uploads),
		uploads: handler.NewUploadHandler(uploads, handler.UploadConfig{
			MaxFileSizeBytes: cfg.Uploads.MaxFileSizeBytes,
			AllowedMIMEs:     cfg.Uploads.AllowedMIMEs,
		}, logr),
		reports:   handler.NewReportHandler(reportSvc, logr),
		metrics:   handler.NewMetricsHandler(metricsSvc, db),
		tokens:    authSvc,
		auditLogs: userRepo,
		logger:    logr,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
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
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}
