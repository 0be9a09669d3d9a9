package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"route-optimizer-service/internal/adapters/cache"
	"route-optimizer-service/internal/config"
	"route-optimizer-service/internal/platform/db"
	"route-optimizer-service/internal/platform/obs"
	"time"

	"go.uber.org/zap"
)

// dbtool creates the geocode cache schema and optionally preloads known
// addresses (for example the depot and recurring customers).
func main() {
	foundEnv := config.LoadDotEnv()

	seedPath := flag.String("seed", config.Get("SEED_PATH", ""), "JSON file of {address, lat, lng} to preload")
	flag.Parse()

	log, err := obs.NewLogger(config.Get("APP_ENV", "development"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if !foundEnv {
		log.Info("no .env file found (using environment variables)")
	}

	databaseURL := config.Get("DATABASE_URL", "")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	conn, err := db.Open(ctx, databaseURL)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer conn.Close()

	log.Info("initializing database schema")
	if err := cache.InitSchema(ctx, conn); err != nil {
		log.Fatal("schema initialization failed", zap.Error(err))
	}

	if *seedPath == "" {
		log.Info("schema ready; no seed file given")
		return
	}

	n, err := cache.SeedFromJSON(ctx, cache.NewSQLGeocodeCache(conn), *seedPath)
	if err != nil {
		log.Fatal("seeding failed", zap.Error(err))
	}
	log.Info("seeding complete", zap.Int("addresses", n), zap.String("path", *seedPath))
}
