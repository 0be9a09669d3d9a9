package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"route-optimizer-service/internal/adapters/cache"
	"route-optimizer-service/internal/adapters/geocode"
	"route-optimizer-service/internal/api"
	"route-optimizer-service/internal/config"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/db"
	"route-optimizer-service/internal/platform/obs"
	"route-optimizer-service/internal/ports"
	"route-optimizer-service/internal/services"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// main is the application composition root.
// It wires concrete adapters (Postgres or Redis cache, ORS) behind ports and starts the HTTP server.
func main() {
	os.Exit(serve())
}

// serve returns the process exit code so deferred log flushing runs before exit.
func serve() int {
	foundEnv := config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	log, err := obs.NewLogger(cfg.AppEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()
	defer zap.ReplaceGlobals(log)()

	if !foundEnv {
		log.Info("no .env file found (using environment variables)")
	}

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		return 1
	}
	return 0
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policy, err := domain.ParseUnlocatablePolicy(cfg.Optimizer.Unlocatable)
	if err != nil {
		return fmt.Errorf("optimizer profile: %w", err)
	}
	optimizer := services.NewRouteOptimizer(services.OptimizerConfig{
		AverageSpeedMPH: cfg.Optimizer.AverageSpeedMPH,
		DwellMinutes:    cfg.Optimizer.DwellMinutes,
		State:           cfg.Optimizer.State,
		Unlocatable:     policy,
	})

	deps := api.Deps{
		Optimizer:   optimizer,
		MaxStops:    cfg.MaxStops,
		ReadyChecks: map[string]func(ctx context.Context) error{},
	}

	geocodeCache, closeCache, err := openGeocodeCache(ctx, cfg, deps.ReadyChecks)
	if err != nil {
		return err
	}
	defer closeCache()

	if cfg.ORSAPIKey != "" {
		fallback := &geocode.HoustonCenter
		if cfg.Optimizer.FallbackLat != nil {
			fallback = &domain.Coordinates{Lat: *cfg.Optimizer.FallbackLat, Lng: *cfg.Optimizer.FallbackLng}
		}

		geocoder, err := geocode.NewORSGeocoder(geocode.ORSConfig{APIKey: cfg.ORSAPIKey, Fallback: fallback})
		if err != nil {
			return err
		}

		var limiter *rate.Limiter
		if cfg.GeocodeInterval > 0 {
			limiter = rate.NewLimiter(rate.Every(cfg.GeocodeInterval), 1)
		} else {
			limiter = rate.NewLimiter(rate.Inf, 1)
		}
		deps.Geocoder = services.NewGeocodeBatcher(geocoder, geocodeCache, limiter, optimizer.Config().State)
	} else {
		log.Warn("ORS_API_KEY not set; geocoding disabled")
	}

	// Write timeout covers a full batch of paced geocoding lookups.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      180 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openGeocodeCache prefers Redis, then Postgres, and otherwise runs without a cache.
func openGeocodeCache(
	ctx context.Context,
	cfg *config.Config,
	checks map[string]func(ctx context.Context) error,
) (ports.GeocodeCache, func(), error) {
	switch {
	case cfg.RedisURL != "":
		c, err := cache.NewRedisGeocodeCacheFromURL(ctx, cfg.RedisURL, cfg.GeocodeCacheTTL)
		if err != nil {
			return nil, nil, err
		}
		checks["redis"] = c.Ping
		return c, func() { _ = c.Close() }, nil

	case cfg.DatabaseURL != "":
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := cache.InitSchema(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		checks["database"] = conn.PingContext
		return cache.NewSQLGeocodeCache(conn), func() { closeDB(conn) }, nil
	}

	zap.L().Info("no geocode cache configured")
	return nil, func() {}, nil
}

func closeDB(conn *sql.DB) {
	if err := conn.Close(); err != nil {
		zap.L().Warn("close database", zap.Error(err))
	}
}
