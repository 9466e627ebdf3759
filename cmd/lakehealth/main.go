package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	httpadapter "github.com/couchcryptid/lake-health-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/lake-health-service/internal/adapter/kafka"
	"github.com/couchcryptid/lake-health-service/internal/adapter/memory"
	"github.com/couchcryptid/lake-health-service/internal/adapter/nominatim"
	"github.com/couchcryptid/lake-health-service/internal/adapter/postgres"
	redisadapter "github.com/couchcryptid/lake-health-service/internal/adapter/redis"
	"github.com/couchcryptid/lake-health-service/internal/config"
	"github.com/couchcryptid/lake-health-service/internal/domain"
	"github.com/couchcryptid/lake-health-service/internal/engine"
	"github.com/couchcryptid/lake-health-service/internal/observability"
	"github.com/couchcryptid/lake-health-service/internal/pipeline"
	"github.com/couchcryptid/lake-health-service/internal/scheduler"
	"github.com/couchcryptid/lake-health-service/internal/seed"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat).With("service", "lake-health")
	if err := run(cfg, logger); err != nil {
		logger.Error("service failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()
	store, closeStore, err := openStore(ctx, cfg, clock, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := engine.Options{CacheTTL: cfg.ScoreCacheTTL, Clock: clock}

	// Score cache (optional, via REDIS_ADDR).
	if cfg.RedisAddr != "" {
		client := redisadapter.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer client.Close() //nolint:errcheck // best-effort on shutdown
		cache := redisadapter.NewScoreCache(client)
		if err := cache.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, score cache will fall back to the store", "addr", cfg.RedisAddr, "error", err)
		}
		opts.Cache = cache
		logger.Info("score cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.ScoreCacheTTL)
	}

	// Reverse geocoding of reports (feature-flagged via GEOCODE_ENABLED).
	if cfg.GeocodeEnabled {
		client := nominatim.NewClient(cfg.NominatimURL, cfg.GeocodeUserAgent, cfg.GeocodeTimeout, metrics, logger)
		opts.Geocoder = nominatim.NewCachedGeocoder(client, cfg.GeocodeCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("geocoding enabled", "url", cfg.NominatimURL, "cache_size", cfg.GeocodeCacheSize)
	} else {
		logger.Info("geocoding disabled")
	}

	var writer *kafkaadapter.Writer
	if cfg.EventsEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts.Publisher = writer
	}

	eng := engine.New(store, logger, metrics, opts)
	checks := httpadapter.ReadinessChecks{eng}

	var wg sync.WaitGroup

	var reader *kafkaadapter.Reader
	if cfg.IngestEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		p := pipeline.New(reader, pipeline.NewTransformer(logger), eng, logger, metrics, cfg.BatchSize)
		checks = append(checks, p)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	if cfg.SweepSchedule != "" {
		sched, err := scheduler.New(cfg.SweepSchedule, eng, logger)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sched.Run(ctx)
		}()
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, eng, checks, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	wg.Wait()
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// openStore connects the configured backend. The memory store is seeded with
// the reference lakes so a fresh process has something to serve.
func openStore(ctx context.Context, cfg *config.Config, clock clockwork.Clock, logger *slog.Logger) (engine.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return pg, pg.Close, nil
	default:
		mem := memory.New()
		if _, err := seed.Run(ctx, mem, domain.GlobalEntropy{}, clock.Now(), logger); err != nil {
			return nil, nil, fmt.Errorf("seed memory store: %w", err)
		}
		return mem, func() {}, nil
	}
}
