package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"checkin-dashboard/config"
	"checkin-dashboard/controllers"
	"checkin-dashboard/routes"
	"checkin-dashboard/services"
	"checkin-dashboard/utils"
)

func main() {
	// Load .env (optional)
	if err := godotenv.Load(); err != nil {
		log.Println(".env not found or couldn't load it; continuing with environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := utils.NewLogger(cfg.LogLevel, cfg.LogFormat, "checkin-dashboard")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := newCheckInRepository(cfg, logger)
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}

	sessions, err := newSessionStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("session store failed", zap.Error(err))
	}

	files := services.NewDiskFileStorage(cfg.Store.StorageBucket, cfg.Store.PublicBaseURL)
	metrics := services.NewMetrics(prometheus.DefaultRegisterer)

	checkInService := services.NewCheckInService(repo, files, logger.Named("checkins"), metrics)
	dashboardService := services.NewDashboardService(checkInService, sessions, logger.Named("dashboard"))
	dashboardService.MaxImageBytes = cfg.Store.MaxUploadBytes

	dashboardController := controllers.NewDashboardController(dashboardService, logger)
	checkInController := controllers.NewCheckInController(checkInService, logger)

	router := routes.SetupRouter(cfg, dashboardController, checkInController, logger)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", addr), zap.String("db_driver", cfg.Database.Driver),
			zap.String("session_backend", cfg.Session.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received, shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server stopped gracefully")
}

func newCheckInRepository(cfg *config.Config, logger *zap.Logger) (services.CheckInRepository, error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("using in-memory checkin collection; records are lost on restart")
		return services.NewMemoryCheckInRepository(), nil
	}
	if err := config.ConnectDatabase(cfg.Database, logger); err != nil {
		return nil, err
	}
	return services.NewGormCheckInRepository(config.DB), nil
}

func newSessionStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (services.SessionStore, error) {
	if cfg.Session.Backend == config.SessionBackendRedis {
		client := config.NewRedisClient(cfg.Session)
		if err := config.PingRedis(ctx, client); err != nil {
			return nil, err
		}
		return services.NewRedisSessionStore(client, cfg.Session.RedisPrefix, cfg.Session.TTL), nil
	}

	store := services.NewMemorySessionStore(cfg.Session.TTL)
	go store.RunCleanup(ctx, time.Minute, func(removed int) {
		logger.Debug("expired page sessions removed", zap.Int("count", removed))
	})
	return store, nil
}
