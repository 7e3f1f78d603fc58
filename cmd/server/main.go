package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/lalith-99/relaygate/internal/api"
	"github.com/lalith-99/relaygate/internal/auth"
	"github.com/lalith-99/relaygate/internal/config"
	"github.com/lalith-99/relaygate/internal/db"
	"github.com/lalith-99/relaygate/internal/middleware"
	"github.com/lalith-99/relaygate/internal/nlu"
	"github.com/lalith-99/relaygate/internal/observ"
	"github.com/lalith-99/relaygate/internal/registry"
	"github.com/lalith-99/relaygate/internal/relay"
	"github.com/lalith-99/relaygate/internal/repository/postgres"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is a development convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// Startup has no parent deadline; Background() is the right root here.
	ctx := context.Background()

	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	if err := database.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	pool := database.Pool()
	tenantRepo := postgres.NewTenantStore(pool)
	convRepo := postgres.NewConversationStore(pool)

	// The tenant registry loads before the server listens: no
	// initialize-on-first-request, no race with early callers.
	loader := registry.NewLoader(tenantRepo, cfg.TenantLoadFailFast, logger)
	if _, err := loader.Load(ctx, cfg.TenantRegistry); err != nil {
		if cfg.TenantLoadFailFast {
			return fmt.Errorf("load tenant registry: %w", err)
		}
		logger.Warn("tenant registry load failed",
			zap.String("path", cfg.TenantRegistry),
			zap.Error(err),
		)
	}

	nluClient := nlu.NewClient(cfg.NLUURL, cfg.NLUTimeout)
	tokens := auth.NewTokenService(cfg.JWTSecret)
	relaySvc := relay.NewService(tenantRepo, convRepo, nluClient, logger)

	authHandler := api.NewAuthHandler(tokens, logger)
	relayHandler := api.NewRelayHandler(relaySvc, logger)
	healthHandler := api.NewHealthHandler(nluClient)

	srv := gin.New()
	srv.Use(gin.Logger(), gin.Recovery())

	// Public: load balancers probe this without credentials.
	srv.GET("/health", healthHandler.Health)

	// API-key capability: the one endpoint that turns the long-lived
	// credential into a session token.
	srv.POST("/auth", middleware.RequireAPIKey(tenantRepo, logger), authHandler.Token)

	// Bearer-token capability: everything conversational.
	protected := srv.Group("/", middleware.RequireToken(tokens))

	webhook := protected.Group("/")
	if limiter := rateLimiter(ctx, cfg, logger); limiter != nil {
		webhook.Use(limiter)
	}
	webhook.POST("/webhook", relayHandler.Webhook)

	protected.GET("/conversations", relayHandler.Conversations)
	protected.GET("/conversations/:id/messages", relayHandler.Messages)

	logger.Info("starting RelayGate",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
		zap.String("nlu_url", cfg.NLUURL),
		zap.Duration("nlu_timeout", cfg.NLUTimeout),
	)
	return srv.Run(":" + cfg.Port)
}

// rateLimiter wires the optional per-tenant limiter. Returns nil — and logs
// why — when Redis isn't configured or isn't reachable; the relay runs
// unthrottled rather than not at all.
func rateLimiter(ctx context.Context, cfg *config.Config, logger *zap.Logger) gin.HandlerFunc {
	if cfg.RedisURL == "" || cfg.RateLimitPerMinute <= 0 {
		logger.Info("rate limiting disabled")
		return nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn("invalid REDIS_URL, rate limiting disabled", zap.Error(err))
		return nil
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, rate limiting disabled", zap.Error(err))
		return nil
	}

	logger.Info("rate limiting enabled",
		zap.Int("per_minute", cfg.RateLimitPerMinute),
	)
	return middleware.RateLimit(client, cfg.RateLimitPerMinute, logger)
}
