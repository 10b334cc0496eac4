package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/accrediflow-api/internal/handler"
	"github.com/noah-isme/accrediflow-api/internal/middleware"
	"github.com/noah-isme/accrediflow-api/internal/models"
	"github.com/noah-isme/accrediflow-api/pkg/config"
)

type routeDeps struct {
	auth      *handler.AuthHandler
	users     *handler.UserHandler
	documents *handler.DocumentHandler
	uploads   *handler.UploadHandler
	reports   *handler.ReportHandler
	metrics   *handler.MetricsHandler
	tokens    middleware.TokenValidator
	auditLogs middleware.AuditStore
	logger    *zap.Logger
}

func registerRoutes(r *gin.Engine, cfg *config.Config, deps routeDeps) {
	r.GET("/health", deps.metrics.Health)
	r.GET("/ready", deps.metrics.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", deps.metrics.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/users/register", deps.users.Register)
	api.POST("/users/login", deps.auth.Login)
	api.POST("/auth/refresh", deps.auth.Refresh)
	api.GET("/export/:token", deps.reports.DownloadReport)

	authed := api.Group("")
	authed.Use(middleware.JWT(deps.tokens))
	authed.GET("/auth/me", deps.auth.Me)
	authed.POST("/auth/logout", deps.auth.Logout)
	authed.POST("/upload", middleware.Audit(deps.auditLogs, deps.logger, "DOCUMENT_UPLOAD", "upload"), deps.uploads.Upload)

	superadmin := middleware.RequireRoles(models.RoleSuperAdmin)
	admin := middleware.RequireRoles(models.RoleAdmin)
	authed.GET("/users/pending", superadmin, deps.users.Pending)
	authed.PUT("/users/:id/approve", superadmin, deps.users.Approve)
	authed.POST("/users", admin, deps.users.Create)
	authed.GET("/users", admin, deps.users.List)

	docs := authed.Group("/documents")
	docs.POST("", middleware.RequireRoles(models.RoleFaculty, models.RoleHOD, models.RoleCoordinator, models.RoleAdmin), deps.documents.Create)
	docs.GET("", deps.documents.List)
	docs.GET("/categories", deps.documents.Categories)
	docs.GET("/faculty", middleware.RequireRoles(models.RoleHOD), deps.documents.HODQueue)
	docs.GET("/hod-approved", middleware.RequireRoles(models.RoleCoordinator), deps.documents.CoordinatorQueue)
	docs.GET("/report", admin, deps.documents.ReportView)
	docs.GET("/report/pdf/:body", admin, deps.documents.BookletPDF)
	docs.GET("/report/csv/:body", admin, deps.documents.BookletCSV)
	docs.GET("/:id", deps.documents.Get)
	docs.GET("/:id/file", deps.documents.File)
	docs.PUT("/:id/status", deps.documents.UpdateStatus)
	docs.POST("/:id/comments", deps.documents.AddComment)

	reports := authed.Group("/reports", admin)
	reports.POST("", deps.reports.GenerateReport)
	reports.GET("/:id", deps.reports.ReportStatus)
}
