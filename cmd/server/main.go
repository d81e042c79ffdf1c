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

	"friendlink/backend/internal/config"
	"friendlink/backend/internal/database"
	"friendlink/backend/internal/friendship"
	"friendlink/backend/internal/handler"
	"friendlink/backend/internal/hub"
	"friendlink/backend/internal/middleware"
	"friendlink/backend/internal/repository"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	// Swagger imports
	_ "friendlink/backend/docs" // This is important for swag to find the generated docs

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func init() {
	config.LoadConfig()
}

// @title           Friendlink API
// @version         1.0
// @description     Friend requests, relationships and realtime pending-count notifications.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.AppConfig

	var logger *zap.Logger
	var err error
	if cfg.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		gin.SetMode(gin.ReleaseMode)
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to the database
	db := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)

	relationships := repository.NewRelationshipStore(db)
	users := repository.NewUserStore(db)

	tokens := hub.NewTokenIssuer(cfg.JWTSecret, cfg.RealtimeTokenTTL)
	realtimeHub := hub.NewHub(tokens, cfg.HubBuffer, logger)
	defer realtimeHub.Shutdown()

	// Without Redis every event stays on this instance.
	var publisher friendship.Publisher = realtimeHub
	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal("redis ping failed", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}

		relay := hub.NewRedisRelay(client, realtimeHub, logger)
		go func() {
			if err := relay.Run(ctx); err != nil {
				logger.Error("realtime relay stopped", zap.Error(err))
			}
		}()
		publisher = relay
		logger.Info("realtime relay enabled", zap.String("addr", cfg.RedisAddr))
	}

	counts := friendship.NewCountAggregator(relationships, publisher, logger)
	friends := friendship.NewService(relationships, users, counts, logger)

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	go limiter.Sweep(ctx, time.Minute, 10*time.Minute)

	router := gin.New()
	router.Use(
		middleware.TraceID(),
		middleware.Logger(logger),
		middleware.Recovery(logger),
		limiter.Middleware(),
	)

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	handler.Register(router.Group("/api/v1"), cfg.JWTSecret, handler.Handlers{
		Users:     handler.NewUserHandler(users, friends, cfg.JWTSecret, cfg.SessionTTL, logger),
		Relations: handler.NewRelationHandler(friends, logger),
		Realtime:  handler.NewRealtimeHandler(realtimeHub, tokens, cfg.Origins(), logger),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("swagger", fmt.Sprintf("http://localhost:%d/swagger/index.html", cfg.Port)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Close streams first so open SSE and WebSocket handlers return.
	realtimeHub.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}
