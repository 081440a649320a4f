package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/ems-docs-api/api/swagger"
	"github.com/noah-isme/ems-docs-api/internal/handler"
	"github.com/noah-isme/ems-docs-api/internal/middleware"
	"github.com/noah-isme/ems-docs-api/internal/repository"
	"github.com/noah-isme/ems-docs-api/internal/service"
	"github.com/noah-isme/ems-docs-api/pkg/config"
	"github.com/noah-isme/ems-docs-api/pkg/database"
	"github.com/noah-isme/ems-docs-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/ems-docs-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ems-docs-api/pkg/middleware/requestid"
	"github.com/noah-isme/ems-docs-api/pkg/storage"
)

// @title EMS Documents API
// @version 1.0.0
// @description Document access, sharing and versioning service
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type objectStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Stat(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, key string) error
}

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	store, err := newObjectStore(ctx, cfg.Storage)
	if err != nil {
		logr.Fatal("failed to init storage", zap.Error(err), zap.String("driver", cfg.Storage.Driver))
	}
	logr.Info("storage ready", zap.String("driver", cfg.Storage.Driver))

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	validate := validator.New()

	documentRepo := repository.NewDocumentRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	accessRepo := repository.NewAccessRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	folderRepo := repository.NewFolderRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	linkRepo := repository.NewSharedLinkRepository(db)

	cleanupSvc := service.NewBlobCleanupService(store, metricsSvc, service.BlobCleanupConfig{
		Workers:    cfg.Cleanup.Workers,
		MaxRetries: cfg.Cleanup.MaxRetries,
		RetryDelay: cfg.Cleanup.RetryDelay,
	}, logr)
	cleanupSvc.Start(ctx)

	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)
	publicBase := ""
	if cfg.Storage.Driver == config.StorageDriverB2 {
		publicBase = cfg.Storage.PublicBaseURL
	}
	uploadSvc := service.NewUploadService(store, signer, service.UploadConfig{
		APIPrefix:     cfg.APIPrefix,
		PublicBaseURL: publicBase,
		MaxFileSize:   cfg.Docs.MaxFileSizeBytes,
		AllowedMIMEs:  cfg.Docs.AllowedMIMEs,
	}, validate, logr)

	tokenSvc := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	accessSvc := service.NewAccessService(documentRepo, accessRepo, metricsSvc, cfg.Docs.AdminDepartment, logr)
	exportSvc := service.NewExportService(logr, nil, nil)
	activitySvc := service.NewActivityService(activityRepo, accessSvc, exportSvc, validate, logr)

	documentSvc := service.NewDocumentService(service.DocumentServiceDeps{
		Documents: documentRepo,
		Versions:  versionRepo,
		Folders:   folderRepo,
		Access:    accessSvc,
		Files:     uploadSvc,
		Cleanup:   cleanupSvc,
		Activity:  activitySvc,
	}, validate, logr)
	versionSvc := service.NewVersionService(service.VersionServiceDeps{
		Versions: versionRepo,
		Guard:    accessSvc,
		Files:    uploadSvc,
		Signer:   uploadSvc,
		Cleanup:  cleanupSvc,
		Activity: activitySvc,
		Metrics:  metricsSvc,
	}, validate, logr)
	sharingSvc := service.NewSharingService(service.SharingServiceDeps{
		Shares:      accessRepo,
		Employees:   employeeRepo,
		Documents:   documentRepo,
		Guard:       accessSvc,
		Activity:    activitySvc,
		SearchLimit: cfg.Docs.SearchLimit,
	}, validate, logr)
	folderSvc := service.NewFolderService(folderRepo, cfg.Docs.AdminDepartment, cfg.Docs.FolderMaxDepth, validate, logr)
	linkSvc := service.NewSharedLinkService(service.SharedLinkServiceDeps{
		Links:      linkRepo,
		Documents:  documentRepo,
		Versions:   versionRepo,
		Guard:      accessSvc,
		Signer:     uploadSvc,
		Activity:   activitySvc,
		DefaultTTL: cfg.Docs.SharedLinkTTL,
	}, validate, logr)

	documentHandler := handler.NewDocumentHandler(documentSvc, accessSvc)
	versionHandler := handler.NewVersionHandler(versionSvc)
	sharingHandler := handler.NewSharingHandler(sharingSvc)
	folderHandler := handler.NewFolderHandler(folderSvc)
	activityHandler := handler.NewActivityHandler(activitySvc)
	linkHandler := handler.NewSharedLinkHandler(linkSvc)
	uploadHandler := handler.NewUploadHandler(uploadSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db, cleanupSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if metricsSvc != nil {
		r.Use(middleware.Metrics(metricsSvc))
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Token-bound routes: the signed token or link is the credential.
	api.GET("/shared/:token", linkHandler.Resolve)
	api.PUT("/uploads/:token", uploadHandler.Put)
	api.GET("/files/*key", uploadHandler.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokenSvc))

	secured.POST("/uploads/presign", uploadHandler.Presign)
	secured.GET("/employees/search", sharingHandler.SearchEmployees)

	documents := secured.Group("/documents")
	documents.POST("", documentHandler.Create)
	documents.GET("", documentHandler.List)
	documents.GET("/:id", documentHandler.Get)
	documents.PATCH("/:id", documentHandler.Update)
	documents.DELETE("/:id", documentHandler.Delete)
	documents.POST("/:id/archive", documentHandler.Archive)
	documents.POST("/:id/restore", documentHandler.Restore)
	documents.POST("/:id/publish", documentHandler.Publish)
	documents.GET("/:id/access", documentHandler.Access)

	documents.POST("/:id/versions", versionHandler.Upload)
	documents.GET("/:id/versions", versionHandler.List)
	documents.DELETE("/:id/versions/:versionId", versionHandler.Delete)
	secured.GET("/versions/:id/download-url", versionHandler.DownloadURL)

	documents.GET("/:id/sharing", sharingHandler.State)
	documents.POST("/:id/shares", sharingHandler.AddShare)
	documents.DELETE("/:id/shares/:userId", sharingHandler.RemoveShare)
	documents.PUT("/:id/public", sharingHandler.TogglePublic)
	documents.PUT("/:id/department-access", sharingHandler.UpdateDepartmentAccess)

	documents.POST("/:id/comments", activityHandler.AddComment)
	documents.GET("/:id/comments", activityHandler.ListComments)
	documents.GET("/:id/logs", activityHandler.ListLogs)
	documents.GET("/:id/logs/export", activityHandler.ExportLogs)

	documents.POST("/:id/links", linkHandler.Create)
	documents.GET("/:id/links", linkHandler.List)
	documents.DELETE("/:id/links/:linkId", linkHandler.Revoke)

	folders := secured.Group("/folders")
	folders.POST("", folderHandler.Create)
	folders.GET("", folderHandler.List)
	folders.POST("/system", folderHandler.EnsureSystem)
	folders.GET("/:id", folderHandler.Get)
	folders.PATCH("/:id", folderHandler.Update)
	folders.DELETE("/:id", folderHandler.Delete)
	folders.POST("/:id/archive", folderHandler.Archive)
	folders.POST("/:id/restore", folderHandler.Restore)

	admin := secured.Group("/admin")
	admin.Use(middleware.RequireAdminDepartment(cfg.Docs.AdminDepartment))
	admin.GET("/stats", metricsHandler.Stats)

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
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	cleanupSvc.Stop()
}

func newObjectStore(ctx context.Context, cfg config.StorageConfig) (objectStore, error) {
	switch cfg.Driver {
	case config.StorageDriverB2:
		return storage.NewB2Storage(ctx, cfg.B2KeyID, cfg.B2ApplicationKey, cfg.B2Bucket)
	default:
		return storage.NewLocalStorage(cfg.LocalDir)
	}
}
