package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"wager-engine-backend/internal/config"
	"wager-engine-backend/internal/fair"
	"wager-engine-backend/internal/handlers"
	"wager-engine-backend/internal/ledger"
	"wager-engine-backend/internal/middleware"
	"wager-engine-backend/internal/services"
	"wager-engine-backend/internal/sessions"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logLevel := slog.LevelInfo
	if cfg.Env == "development" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	provider := config.NewRedisProvider(client)
	if err := provider.Seed(ctx); err != nil {
		log.Fatalf("Failed to seed game configs: %v", err)
	}

	fairEngine, err := fair.NewEngine()
	if err != nil {
		log.Fatalf("Failed to initialize fairness engine: %v", err)
	}

	bank := ledger.NewRedis(client)
	store := sessions.NewRedis(client)

	engine := services.NewEngine(bank, store, fairEngine, provider)

	jwtService := services.NewJWTService(cfg.JWTSecret)
	limiter := services.NewRateLimiter(client)

	wsHandler := handlers.NewWebSocketHandler(bank, logger)
	engine.SetBroadcaster(wsHandler.Hub())

	gameHandler := handlers.NewGameHandler(engine, bank)
	walletHandler := handlers.NewWalletHandler(bank)

	// Safety valve: settles crashed and abandoned sessions whose owners never
	// came back.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			engine.ExpireStale(context.Background())
		}
	}()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.Use(middleware.RateLimitMiddleware(limiter))
	{
		protected.GET("/ws", wsHandler.HandleWebSocket)

		games := protected.Group("/games")
		{
			games.POST("/dice/play", gameHandler.PlayDice)

			games.POST("/sessions", gameHandler.StartSession)
			games.GET("/sessions/:id", gameHandler.GetSession)
			games.POST("/sessions/:id/reveal", gameHandler.Reveal)
			games.POST("/sessions/:id/cashout", gameHandler.Cashout)
			games.POST("/sessions/:id/tick", gameHandler.Tick)

			games.GET("/active", gameHandler.ActiveSessions)
			games.GET("/history", gameHandler.History)

			games.GET("/balance", walletHandler.Balance)
			games.GET("/transactions", walletHandler.Transactions)

			games.GET("/verification", gameHandler.Verification)
			games.POST("/verify", gameHandler.Verify)
			games.POST("/rotate-seed", gameHandler.RotateSeed)
		}

		wallet := protected.Group("/wallet")
		{
			wallet.POST("/deposit", walletHandler.Deposit)
			wallet.POST("/withdraw", walletHandler.Withdraw)
		}
	}

	logger.Info("server starting", "port", cfg.Port, "env", cfg.Env)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
