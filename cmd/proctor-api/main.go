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

	"github.com/invigilo/proctor-api/internal/handler"
	"github.com/invigilo/proctor-api/internal/middleware"
	"github.com/invigilo/proctor-api/internal/repository"
	"github.com/invigilo/proctor-api/internal/service"
	"github.com/invigilo/proctor-api/pkg/cache"
	"github.com/invigilo/proctor-api/pkg/config"
	"github.com/invigilo/proctor-api/pkg/database"
	"github.com/invigilo/proctor-api/pkg/export"
	"github.com/invigilo/proctor-api/pkg/logger"
	corsmiddleware "github.com/invigilo/proctor-api/pkg/middleware/cors"
	reqidmiddleware "github.com/invigilo/proctor-api/pkg/middleware/requestid"
)

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, snapshot cache disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	validate := validator.New()

	staffRepo := repository.NewStaffRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	historyRepo := repository.NewHistoryRepository(db, cfg.Assignment.HistoryWindowDays)
	notificationRepo := repository.NewNotificationRepository(db)
	absenceRepo := repository.NewAbsenceRecordRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	assignmentSvc := service.NewAssignmentService(
		roomRepo, staffRepo, assignmentRepo, historyRepo, notificationRepo, absenceRepo,
		db, cacheRepo, metricsSvc, validate, logr,
		service.AssignmentConfig{
			CollegeRankBonus: cfg.Assignment.CollegeRankBonus,
			SnapshotCacheTTL: cfg.Assignment.SnapshotCacheTTL,
		},
	)
	absenceSvc := service.NewAbsenceService(
		staffRepo, assignmentRepo, absenceRepo,
		db, assignmentSvc, metricsSvc, validate, logr,
		cfg.Assignment.SuspensionThreshold,
	)
	replacementSvc := service.NewReplacementService(
		staffRepo, roomRepo, assignmentRepo, historyRepo, absenceRepo,
		db, assignmentSvc, metricsSvc, validate, logr,
	)
	staffSvc := service.NewStaffService(staffRepo, historyRepo, logr)

	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc, export.NewCSVExporter(), export.NewPDFExporter())
	absenceHandler := handler.NewAbsenceHandler(absenceSvc)
	replacementHandler := handler.NewReplacementHandler(replacementSvc)
	staffHandler := handler.NewStaffHandler(staffSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/assignments/run", assignmentHandler.Run)
		api.GET("/assignments", assignmentHandler.Snapshot)
		api.DELETE("/assignments", assignmentHandler.Delete)
		if cfg.Export.Enabled {
			api.GET("/assignments/export", assignmentHandler.Export)
		}

		api.POST("/absences", absenceHandler.Record)

		api.POST("/replacements/auto", replacementHandler.Auto)
		api.POST("/replacements/manual", replacementHandler.Manual)
		api.GET("/replacements/candidates", replacementHandler.Candidates)

		api.GET("/staff/:id", staffHandler.Get)
		api.POST("/staff/:id/reactivate", staffHandler.Reactivate)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}
