package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/mediakeep/mediakeep/internal/infrastructure/achievements"
	infracache "github.com/mediakeep/mediakeep/internal/infrastructure/cache"
	"github.com/mediakeep/mediakeep/internal/watchstatus/handler"
	"github.com/mediakeep/mediakeep/internal/watchstatus/repository"
	"github.com/mediakeep/mediakeep/internal/watchstatus/service"
	"github.com/mediakeep/mediakeep/pkg/config"
	"github.com/mediakeep/mediakeep/pkg/database"
	"github.com/mediakeep/mediakeep/pkg/events"
	"github.com/mediakeep/mediakeep/pkg/interfaces"
	"github.com/mediakeep/mediakeep/pkg/logger"
	"github.com/mediakeep/mediakeep/pkg/utils"
)

func main() {
	// Load configuration
	cfg := config.MustLoad("mediakeep", config.Defaults())

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       cfg.Logger.Level,
		Format:      cfg.Logger.Format,
		Development: cfg.Logger.Development,
		OutputPath:  cfg.Logger.OutputPath,
	})

	log.Info("Watch status service starting",
		interfaces.String("service", cfg.Service.Name),
		interfaces.String("environment", cfg.Service.Environment))

	// Connect to database
	log.Info("Connecting to database...")
	db, err := database.NewGormDB(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", interfaces.Error(err))
	}

	// Run migrations
	log.Info("Running database migrations...")
	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations", interfaces.Error(err))
	}

	// Initialize repository
	repo := repository.NewGormCascadeRepository(db)

	// Initialize event bus
	eventBus := events.NewInMemoryEventBus(log)

	// Cache invalidation: Redis when enabled, otherwise process-local
	var invalidator interfaces.ProfileCacheInvalidator
	var redisClient *redis.Client
	var localCache *utils.InMemoryCache
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal("Failed to connect to Redis", interfaces.Error(err))
		}
		invalidator = infracache.NewRedisInvalidator(redisClient, log)
		log.Info("Redis cache invalidation enabled", interfaces.String("addr", cfg.Redis.Addr()))
	} else {
		localCache = utils.NewInMemoryCache()
		invalidator = infracache.NewMemoryInvalidator(localCache)
	}

	// Achievement hook over NATS when enabled
	var hook service.AchievementHook
	var natsHook *achievements.NatsHook
	if cfg.Nats.Enabled {
		natsHook, err = achievements.NewNatsHook(cfg.Nats.URL, cfg.Nats.Subject, log)
		if err != nil {
			log.Fatal("Failed to connect to NATS", interfaces.Error(err))
		}
		hook = natsHook
		log.Info("Achievement hook enabled", interfaces.String("subject", cfg.Nats.Subject))
	}

	// Initialize watch status service and API
	watchStatusService := service.NewWatchStatusService(repo, eventBus, invalidator, hook, log)

	if cfg.Service.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	handler.NewHandler(watchStatusService, log).Register(router)
	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/readyz", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.Status(http.StatusServiceUnavailable)
			return
		}
		c.Status(http.StatusOK)
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Service.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", interfaces.Int("port", cfg.Service.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", interfaces.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", interfaces.Error(err))
	}
	if err := eventBus.Stop(); err != nil {
		log.Error("Event bus shutdown failed", interfaces.Error(err))
	}
	if natsHook != nil {
		natsHook.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Redis shutdown failed", interfaces.Error(err))
		}
	}
	if localCache != nil {
		localCache.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info("Watch status service stopped")
}
