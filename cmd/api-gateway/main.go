package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/coop-training-api/api/swagger"
	"github.com/noah-isme/coop-training-api/internal/handler"
	"github.com/noah-isme/coop-training-api/internal/middleware"
	"github.com/noah-isme/coop-training-api/internal/models"
	"github.com/noah-isme/coop-training-api/internal/repository"
	"github.com/noah-isme/coop-training-api/internal/service"
	"github.com/noah-isme/coop-training-api/pkg/cache"
	"github.com/noah-isme/coop-training-api/pkg/config"
	"github.com/noah-isme/coop-training-api/pkg/database"
	"github.com/noah-isme/coop-training-api/pkg/jobs"
	"github.com/noah-isme/coop-training-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/coop-training-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/coop-training-api/pkg/middleware/requestid"
	"github.com/noah-isme/coop-training-api/pkg/storage"
)

// @title Cooperative Training API
// @version 1.0.0
// @description Enrollment, attendance and compliance tracking for cooperative officers
// @BasePath /api/v1
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	// Redis is optional: without it compliance assessments are computed on
	// every request instead of being cached.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, compliance cache disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()

	officerRepo := repository.NewOfficerRepository(db)
	trainingRepo := repository.NewTrainingRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	requirementRepo := repository.NewRequirementRepository(db)
	certificateRepo := repository.NewCertificateRepository(db)

	authSvc := service.NewAuthService(cfg.JWT.Secret, logr)
	metricsSvc := service.NewMetricsService()
	officerSvc := service.NewOfficerService(officerRepo, logr)
	catalogSvc := service.NewCatalogService(trainingRepo, enrollmentRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, officerRepo, trainingRepo, validate, logr)

	var cacheRepo *repository.CacheRepository
	if cfg.Compliance.CacheEnabled && redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	var complianceSvc *service.ComplianceService
	if cacheRepo != nil {
		complianceSvc = service.NewComplianceService(requirementRepo, attendanceRepo, officerRepo, trainingRepo, cacheRepo, cfg.Compliance.CacheTTL, metricsSvc, validate, logr)
	} else {
		complianceSvc = service.NewComplianceService(requirementRepo, attendanceRepo, officerRepo, trainingRepo, nil, cfg.Compliance.CacheTTL, metricsSvc, validate, logr)
	}

	attendanceSvc := service.NewAttendanceService(attendanceRepo, officerRepo, trainingRepo, complianceSvc, validate, logr)
	certificateSvc := service.NewCertificateService(certificateRepo, attendanceRepo, officerRepo, trainingRepo, validate, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	officerHandler := handler.NewOfficerHandler(officerSvc)
	trainingHandler := handler.NewTrainingHandler(catalogSvc, enrollmentSvc, attendanceSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, metricsSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	complianceHandler := handler.NewComplianceHandler(complianceSvc)
	certificateHandler := handler.NewCertificateHandler(certificateSvc)

	admin := middleware.RequireRoles(models.RoleAdministrator)
	selfOrAdmin := middleware.RBAC(string(models.RoleAdministrator), "SELF")

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))

	api.GET("/officers", admin, officerHandler.List)
	api.GET("/officers/:id", selfOrAdmin, officerHandler.Get)
	api.GET("/officers/:id/enrollments", selfOrAdmin, enrollmentHandler.ListByOfficer)
	api.GET("/officers/:id/certificates", selfOrAdmin, certificateHandler.ListByOfficer)
	api.GET("/officers/:id/requirements", selfOrAdmin, complianceHandler.ListRequirements)
	api.PUT("/officers/:id/requirements", admin, complianceHandler.AssignRequirements)
	api.GET("/officers/:id/compliance", selfOrAdmin, complianceHandler.AssessAssigned)
	api.POST("/officers/:id/compliance/assess", admin, complianceHandler.Assess)
	api.GET("/compliance/overview", admin, complianceHandler.Overview)

	api.GET("/trainings", trainingHandler.List)
	api.GET("/trainings/:id", trainingHandler.Get)
	api.POST("/trainings", admin, trainingHandler.Create)
	api.PUT("/trainings/:id", admin, trainingHandler.Update)
	api.DELETE("/trainings/:id", admin, trainingHandler.Delete)
	api.GET("/trainings/:id/enrollments", admin, trainingHandler.Enrollments)
	api.GET("/trainings/:id/roster", admin, trainingHandler.Roster)
	api.GET("/trainings/:id/attendance", admin, trainingHandler.Attendance)

	api.POST("/enrollments", enrollmentHandler.Create)
	api.DELETE("/enrollments/:id", admin, enrollmentHandler.Delete)

	api.GET("/attendance", admin, attendanceHandler.Get)
	api.POST("/attendance", admin, attendanceHandler.Mark)
	api.DELETE("/attendance", admin, attendanceHandler.Unmark)

	api.POST("/certificates", admin, certificateHandler.Issue)
	api.GET("/certificates/:id", certificateHandler.Get)

	if cfg.Reports.Enabled {
		reportRepo := repository.NewReportRepository(db)
		reportStorage, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

		// The queue handler closes over reportSvc, which itself needs the
		// queue for enqueueing. Declare first, construct after.
		var reportSvc *service.ReportService
		queue := jobs.NewQueue("reports", func(ctx context.Context, job jobs.Job) error {
			return reportSvc.HandleJob(ctx, job)
		}, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportSvc = service.NewReportService(reportRepo, queue, reportStorage, signer, complianceSvc, enrollmentSvc, metricsSvc, validate, logr)

		queueCtx, cancelQueue := context.WithCancel(context.Background())
		queue.Start(queueCtx)
		defer func() {
			cancelQueue()
			queue.Stop()
		}()
		reportSvc.RecoverPendingJobs(queueCtx)

		reportHandler := handler.NewReportHandler(reportSvc)
		api.POST("/reports", reportHandler.Generate)
		api.GET("/reports/:id", reportHandler.Status)
		// Download links are pre-signed, so no JWT here.
		r.GET(cfg.APIPrefix+"/reports/download/:token", reportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
