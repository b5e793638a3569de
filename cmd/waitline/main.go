package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/zaypaihtet/queue-system/internal/config"
	"github.com/zaypaihtet/queue-system/internal/httpapi"
	"github.com/zaypaihtet/queue-system/internal/logging"
	"github.com/zaypaihtet/queue-system/internal/metrics"
	"github.com/zaypaihtet/queue-system/internal/predictor"
	"github.com/zaypaihtet/queue-system/internal/store"
	"github.com/zaypaihtet/queue-system/internal/store/postgres"
	"github.com/zaypaihtet/queue-system/internal/store/sqlite"
	"github.com/zaypaihtet/queue-system/internal/telemetry"
	"github.com/zaypaihtet/queue-system/migrations"
)

func main() {
	cfg := config.Load()
	log := logging.NewLogger(cfg.LogLevel)

	shutdownTracing := telemetry.Setup("waitline", cfg.OTLPEndpoint)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	ctx := context.Background()
	var customers store.CustomerStore
	switch cfg.DBDriver {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("db connect", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pgStore := postgres.NewStore(pool)
		if err := pgStore.Migrate(ctx, migrations.Files); err != nil {
			log.Error("migrate", "error", err)
			os.Exit(1)
		}
		customers = pgStore
	case "sqlite":
		liteStore, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			log.Error("db open", "error", err)
			os.Exit(1)
		}
		defer liteStore.Close()

		if err := liteStore.Migrate(ctx, migrations.Files); err != nil {
			log.Error("migrate", "error", err)
			os.Exit(1)
		}
		customers = liteStore
	default:
		log.Error("unknown DB_DRIVER", "driver", cfg.DBDriver)
		os.Exit(1)
	}

	waitPredictor := predictor.NewOpenAI(predictor.Config{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.PredictTimeout,
	}, log)
	if cfg.OpenAIAPIKey == "" {
		log.Warn("OPENAI_API_KEY not set, predictions use the fallback heuristic")
	}

	registry := metrics.Registry("waitline")
	handler := httpapi.NewHandler(customers, waitPredictor, log, registry)
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		PerMinute: cfg.RateLimitPerMinute,
		Burst:     cfg.RateLimitBurst,
	})

	routes := httpapi.LoggingMiddleware(log, registry)(handler.Routes())
	routes = limiter.Middleware(routes)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(routes, "waitline"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("waitline listening", "addr", server.Addr, "driver", cfg.DBDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
}
