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

	"github.com/uniodonto/urede-api/internal/handler"
	internalmiddleware "github.com/uniodonto/urede-api/internal/middleware"
	"github.com/uniodonto/urede-api/internal/models"
	"github.com/uniodonto/urede-api/internal/repository"
	"github.com/uniodonto/urede-api/internal/service"
	"github.com/uniodonto/urede-api/pkg/cache"
	"github.com/uniodonto/urede-api/pkg/config"
	"github.com/uniodonto/urede-api/pkg/database"
	"github.com/uniodonto/urede-api/pkg/jobs"
	"github.com/uniodonto/urede-api/pkg/logger"
	corsmiddleware "github.com/uniodonto/urede-api/pkg/middleware/cors"
	reqidmiddleware "github.com/uniodonto/urede-api/pkg/middleware/requestid"
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, running without cache", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()

	// repositories
	coopRepo := repository.NewCooperativaRepository(db)
	cidadeRepo := repository.NewCidadeRepository(db)
	pedidoRepo := repository.NewPedidoRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// services
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, cfg.JWT, validate, logr)
	scopeSvc := service.NewScopeService(coopRepo)
	coberturaSvc := service.NewCoberturaService(cidadeRepo, coopRepo, auditRepo, scopeSvc, cacheRepo, logr)
	pedidoSvc := service.NewPedidoService(pedidoRepo, cidadeRepo, settingsRepo, auditRepo, scopeSvc, validate, logr)
	escalationSvc := service.NewEscalationService(pedidoRepo, coopRepo, settingsRepo, logr)
	settingsSvc := service.NewSettingsService(settingsRepo, logr)
	cidadeSvc := service.NewCidadeService(cidadeRepo, cacheRepo, cfg.Cache.CidadesTTL, metricsSvc, logr)
	coopSvc := service.NewCooperativaService(coopRepo)
	dashboardSvc := service.NewDashboardService(pedidoSvc, cacheRepo, cfg.Dashboard.CacheTTL, logr)

	// handlers
	authHandler := handler.NewAuthHandler(authSvc)
	pedidoHandler := handler.NewPedidoHandler(pedidoSvc)
	coopHandler := handler.NewCooperativaHandler(coopSvc)
	coberturaHandler := handler.NewCoberturaHandler(coberturaSvc)
	cidadeHandler := handler.NewCidadeHandler(cidadeSvc)
	adminHandler := handler.NewAdminHandler(escalationSvc, settingsSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/register", authHandler.Register)
	auth.GET("/me", internalmiddleware.JWT(authSvc), authHandler.Me)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))

	secured.GET("/cooperativas", coopHandler.List)
	secured.GET("/cooperativas/:id", coopHandler.Get)
	secured.GET("/cooperativas/:id/cobertura", coberturaHandler.Coverage)
	secured.PUT("/cooperativas/:id/cobertura", coberturaHandler.Reassign)
	secured.GET("/cooperativas/:id/cobertura/historico", coberturaHandler.HistoryByCooperativa)
	secured.GET("/cobertura/logs", coberturaHandler.History)

	secured.GET("/cidades", cidadeHandler.List)
	secured.GET("/cidades/:id", cidadeHandler.Get)
	secured.GET("/cidades/:id/cobertura/historico", coberturaHandler.HistoryByCidade)

	secured.GET("/pedidos", pedidoHandler.List)
	secured.POST("/pedidos", pedidoHandler.Create)
	secured.GET("/pedidos/:id", pedidoHandler.Get)
	secured.PUT("/pedidos/:id", pedidoHandler.Update)
	secured.DELETE("/pedidos/:id", pedidoHandler.Delete)
	secured.GET("/pedidos/:id/auditoria", pedidoHandler.Auditoria)

	if cfg.Dashboard.Enabled {
		secured.GET("/dashboard/stats", dashboardHandler.Stats)
	}

	admin := secured.Group("/admin")
	admin.Use(internalmiddleware.RequirePapel(models.PapelConfederacao))
	admin.POST("/escalar-pedidos", adminHandler.Escalar)
	admin.GET("/configuracoes", adminHandler.GetConfiguracoes)
	admin.PUT("/configuracoes", adminHandler.PutConfiguracoes)

	var scheduler *jobs.Scheduler
	if cfg.Escalation.Enabled {
		scheduler = jobs.NewScheduler("escalation", func(ctx context.Context) error {
			start := time.Now()
			summary, err := escalationSvc.Run(ctx)
			metricsSvc.ObserveSweep(summary, time.Since(start), err)
			return err
		}, jobs.SchedulerConfig{
			Interval: cfg.Escalation.Interval,
			Logger:   logr,
		})
		scheduler.Start(context.Background())
		defer scheduler.Stop()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
