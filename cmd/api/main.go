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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/rtms-schedule-api/api/swagger"
	"github.com/noah-isme/rtms-schedule-api/internal/handler"
	"github.com/noah-isme/rtms-schedule-api/internal/middleware"
	"github.com/noah-isme/rtms-schedule-api/internal/repository"
	"github.com/noah-isme/rtms-schedule-api/internal/service"
	"github.com/noah-isme/rtms-schedule-api/pkg/cache"
	"github.com/noah-isme/rtms-schedule-api/pkg/config"
	"github.com/noah-isme/rtms-schedule-api/pkg/database"
	"github.com/noah-isme/rtms-schedule-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/rtms-schedule-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/rtms-schedule-api/pkg/middleware/requestid"
)

// @title rTMS Schedule API
// @version 1.0.0
// @description Treatment-schedule engine for an rTMS clinic
// @BasePath /api/v1
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.Migrations.Auto {
		m, err := database.NewMigrator(db)
		if err != nil {
			logr.Fatal("failed to init migrations", zap.Error(err))
		}
		if err := database.MigrateUp(m); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
		_, _ = m.Close()
		logr.Info("migrations applied")
	}

	var redisClient *redis.Client
	if cfg.Holidays.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, holiday cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()
	loc := cfg.Clinic.Location()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, "rtms:")
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Holidays.CacheTTL, logr, redisClient != nil)

	userRepo := repository.NewUserRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	sessionRepo := repository.NewTreatmentSessionRepository(db)
	skipRepo := repository.NewTreatmentSkipRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	mappingRepo := repository.NewMappingSessionRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)
	adverseRepo := repository.NewAdverseEventRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
	})
	holidaySvc := service.NewHolidayService(holidayRepo, cacheSvc, metricsSvc, service.HolidayServiceConfig{
		YearEndClosure: cfg.Clinic.YearEndClosure,
		CacheTTL:       cfg.Holidays.CacheTTL,
	}, validate, logr)
	patientSvc := service.NewPatientService(patientRepo, validate, logr)
	planSvc := service.NewTreatmentPlanService(patientRepo, sessionRepo, holidaySvc, db, metricsSvc, service.PlanServiceConfig{
		TotalSessions:   cfg.Clinic.TotalSessions,
		SessionsPerWeek: cfg.Clinic.SessionsPerWeek,
		Location:        loc,
	}, validate, logr)
	rescheduleSvc := service.NewRescheduleService(patientRepo, sessionRepo, skipRepo, holidaySvc, db, metricsSvc, validate, logr)
	taskSvc := service.NewTaskService(patientRepo, assessmentRepo, mappingRepo, holidaySvc, loc, logr)
	assessmentSvc := service.NewAssessmentService(patientRepo, assessmentRepo, mappingRepo, validate, logr)
	adverseSvc := service.NewAdverseEventService(adverseRepo, sessionRepo, patientRepo, metricsSvc, validate, logr)

	checks := map[string]handler.Pinger{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics(metricsSvc))
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)

	if cfg.Docs.Enabled && cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), handlers{
		auth:        handler.NewAuthHandler(authSvc),
		patients:    handler.NewPatientHandler(patientSvc),
		plans:       handler.NewPlanHandler(planSvc),
		sessions:    handler.NewSessionHandler(rescheduleSvc),
		tasks:       handler.NewTaskHandler(taskSvc),
		assessments: handler.NewAssessmentHandler(assessmentSvc),
		holidays:    handler.NewHolidayHandler(holidaySvc),
		adverse:     handler.NewAdverseEventHandler(adverseSvc),
	}, authSvc)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "clinic_tz", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
