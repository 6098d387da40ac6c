// Package main is the entry point for the Creel API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/opencreel/creel/internal/api"
	"github.com/opencreel/creel/internal/auth"
	"github.com/opencreel/creel/internal/catch"
	"github.com/opencreel/creel/internal/config"
	"github.com/opencreel/creel/internal/db"
	"github.com/opencreel/creel/internal/follow"
	"github.com/opencreel/creel/internal/health"
	"github.com/opencreel/creel/internal/middleware"
	"github.com/opencreel/creel/internal/postgres"
	"github.com/opencreel/creel/internal/search"
	"github.com/opencreel/creel/internal/stream"
	"github.com/opencreel/creel/internal/tracing"
)

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("Creel API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if cfg == nil {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "configuration error:", err)
		}
		os.Exit(1)
	}
	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	if len(errs) > 0 {
		for _, err := range errs {
			logger.Error("configuration error", "error", err)
		}
		os.Exit(1)
	}
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	// Tracing
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "creel-api",
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: "otlp-http",
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplingRate: 1.0,
		InsecureMode: !cfg.IsProduction(),
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Database
	if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := pool.PingContext(pingCtx); err != nil {
		pingCancel()
		logger.Error("failed to reach database", "error", err)
		os.Exit(1)
	}
	pingCancel()

	// Redis (optional)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	} else {
		logger.Info("redis not configured, following-set cache disabled")
	}

	// Repositories and services
	catchRepo := postgres.NewCatchRepository(pool, logger)
	ratingStore := postgres.NewRatingStore(pool)
	followRepo := postgres.NewFollowRepository(pool)
	profileRepo := postgres.NewProfileRepository(pool)
	placeRepo := postgres.NewPlaceRepository(pool)

	followCache := follow.NewCache(redisClient, followRepo, follow.DefaultCacheTTL, logger)
	feedService := catch.NewFeedService(catchRepo, ratingStore, cfg.PageSize)
	composite := search.NewComposite(feedService, profileRepo, placeRepo, cfg.SearchLimit, logger)
	jwtService := auth.NewJWTService(cfg.JWTSecret)

	// Metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register http metrics", "error", err)
		os.Exit(1)
	}

	streamMetrics := stream.NewMetrics()
	if err := streamMetrics.Register(registry); err != nil {
		logger.Error("failed to register stream metrics", "error", err)
		os.Exit(1)
	}

	// Change stream (optional)
	broker := stream.NewBroker(streamMetrics)
	streamCtx, streamCancel := context.WithCancel(context.Background())
	defer streamCancel()
	if cfg.ChangeStreamURL != "" {
		client, err := stream.NewClient(stream.DefaultConfig(cfg.ChangeStreamURL), broker, logger, streamMetrics)
		if err != nil {
			logger.Error("invalid change stream configuration", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := client.Run(streamCtx); err != nil && streamCtx.Err() == nil {
				logger.Error("change stream client stopped", "error", err)
			}
		}()
	} else {
		logger.Info("change stream not configured, live updates disabled")
	}

	// Routes
	mux := api.NewRouter(api.RouterConfig{
		Feed:    api.NewFeedHandlers(feedService),
		Catches: api.NewCatchHandlers(catchRepo, ratingStore),
		Search:  api.NewSearchHandlers(composite),
		Follows: api.NewFollowHandlers(followRepo, followCache),
		Health: api.NewHealthHandlers(api.HealthHandlersConfig{
			DBChecker:    health.NewDBChecker(pool),
			RedisChecker: redisChecker(redisClient),
		}),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	// Rate limiting keyed by viewer, falling back to client IP.
	limitStore := middleware.NewRateLimitStore(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-streamCtx.Done():
				return
			case <-ticker.C:
				limitStore.Cleanup()
			}
		}
	}()

	// Middleware chain, outermost first: RequestID -> Tracing -> Logging ->
	// HTTPMetrics -> RateLimiter -> Authenticate.
	var handler http.Handler = mux
	handler = middleware.Authenticate(jwtService, followCache)(handler)
	handler = middleware.RateLimiter(limitStore, middleware.ViewerKeyFunc(), httpMetrics)(handler)
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.Logging(logger)(handler)
	if tracerProvider.IsEnabled() {
		handler = middleware.Tracing("creel-api")(handler)
	}
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	streamCancel()
	broker.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := tracerProvider.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown tracer provider", "error", err)
	}

	logger.Info("server stopped")
}

// redisChecker returns a health checker for the client, or nil when redis is
// not configured.
func redisChecker(client *redis.Client) api.HealthChecker {
	if client == nil {
		return nil
	}
	return health.NewRedisChecker(client)
}
