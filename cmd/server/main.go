package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"token-management-backend/internal/bridge"
	"token-management-backend/internal/chain"
	"token-management-backend/internal/common/config"
	"token-management-backend/internal/common/logger"
	"token-management-backend/internal/common/middleware"
	"token-management-backend/internal/emitters"
	authhttp "token-management-backend/internal/features/auth/delivery/http"
	authservice "token-management-backend/internal/features/auth/service"
	txhttp "token-management-backend/internal/features/transaction/delivery/http"
	txredis "token-management-backend/internal/features/transaction/repository/redis"
	txservice "token-management-backend/internal/features/transaction/service"
	userredis "token-management-backend/internal/features/user/repository/redis"
	platformredis "token-management-backend/internal/platform/redis"
)

func main() {
	cfg := config.Load()

	logger.Init("token-management-backend", cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := platformredis.New(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()
	logger.Info().Msg("Redis connection established")

	userRepository := userredis.NewUserRepository(redisClient)
	transactionRepository := txredis.NewTransactionRepository(redisClient)

	authSvc := authservice.NewService(
		userRepository,
		chain.NewPersonalSignVerifier(),
		cfg.Auth.JWTSecret,
		cfg.Auth.TokenTTL,
		cfg.Auth.AdminAddress,
	)
	transactionSvc := txservice.NewService(transactionRepository)

	chainClient, err := ethclient.DialContext(ctx, cfg.Chain.RPCEndpoint)
	if err != nil {
		logger.Fatal().Err(err).Str("endpoint", cfg.Chain.RPCEndpoint).Msg("Failed to connect to chain RPC")
	}
	defer chainClient.Close()
	logger.Info().Msg("Chain RPC connection established")

	var emitter bridge.TransferEmitter
	if cfg.Kafka.Broker != "" {
		kafkaEmitter := emitters.NewKafkaEmitter(cfg.Kafka.Broker, cfg.Kafka.Topic)
		defer kafkaEmitter.Close()
		emitter = kafkaEmitter
		logger.Info().Str("topic", cfg.Kafka.Topic).Msg("Kafka fan-out enabled")
	}

	eventBridge := bridge.New(chainClient, cfg.Chain.TokenContract, transactionSvc, emitter)
	go eventBridge.Run(ctx)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept"}
	router.Use(cors.New(corsConfig))

	api := router.Group("/api")
	authhttp.NewHandler(authSvc).RegisterRoutes(api)
	txhttp.NewHandler(transactionSvc).RegisterRoutes(api, authSvc)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "token-management-backend",
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		checkCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := redisClient.Ping(checkCtx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unready",
				"error":  "redis unavailable",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}
