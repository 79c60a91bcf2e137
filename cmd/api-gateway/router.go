package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sidang-scheduler-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sidang-scheduler-api/internal/middleware"
	"github.com/noah-isme/sidang-scheduler-api/internal/models"
	"github.com/noah-isme/sidang-scheduler-api/internal/service"
	"github.com/noah-isme/sidang-scheduler-api/pkg/config"
	"github.com/noah-isme/sidang-scheduler-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sidang-scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sidang-scheduler-api/pkg/middleware/requestid"
)

type routerDeps struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *service.MetricsService
	auth      *service.AuthService
	schedules *handler.ScheduleGeneratorHandler
	system    *handler.MetricsHandler
}

func newRouter(d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.logger))
	r.Use(corsmiddleware.New(d.cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(d.metrics))

	r.GET("/health", d.system.Health)
	r.GET("/ready", d.system.Ready)
	r.GET("/metrics", d.system.Prometheus)

	if d.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(d.cfg.APIPrefix)
	api.Use(internalmiddleware.WithResponseMeta())
	api.GET("/metrics/summary", d.system.Summary)

	schedules := api.Group("/schedules")
	schedules.GET("", d.schedules.List)
	schedules.GET("/:id", d.schedules.Get)
	schedules.GET("/:id/export", d.schedules.Export)

	mutating := schedules.Group("")
	if d.auth != nil {
		mutating.Use(internalmiddleware.JWT(d.auth), internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleCoordinator))
	}
	mutating.POST("/generate", internalmiddleware.Audit(d.logger, models.AuditActionScheduleGenerate), d.schedules.Generate)
	mutating.POST("/upload", internalmiddleware.Audit(d.logger, models.AuditActionScheduleUpload), d.schedules.Upload)
	mutating.DELETE("/:id", internalmiddleware.Audit(d.logger, models.AuditActionScheduleDelete), d.schedules.Delete)

	return r
}
