/**
 * @description
 * Batch sync job entry point.
 * Reads an ASIN list, fetches current snapshots from Keepa and reconciles
 * them into Postgres. Intended to be invoked by cron/systemd.
 *
 * @dependencies
 * - backend/internal/config
 * - backend/internal/db
 * - backend/internal/keepa
 * - backend/internal/services
 *
 * @notes
 * - Setup errors (missing/placeholder credential, empty ASIN file, store
 *   unreachable) abort before any item is attempted, with a non-zero exit.
 * - A run with a mix of successes and failures exits zero: per-item detail is
 *   logged, but transient problems must not block a scheduled daily sync.
 * - SIGINT/SIGTERM stop dispatching new items; in-flight reconciliations
 *   finish before the summary is printed.
 */

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/asinwatch-project/backend/internal/asins"
	"github.com/asinwatch-project/backend/internal/config"
	"github.com/asinwatch-project/backend/internal/db"
	"github.com/asinwatch-project/backend/internal/keepa"
	"github.com/asinwatch-project/backend/internal/logger"
	"github.com/asinwatch-project/backend/internal/services"
	"golang.org/x/time/rate"
)

func main() {
	asinsFile := flag.String("asins-file", "asins.txt", "path to the ASIN list, one per line")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config: %v", err)
	}
	if err := cfg.RequireKeepaKey(); err != nil {
		logger.Fatal("setup error: %v", err)
	}

	identifiers, err := asins.LoadFile(*asinsFile)
	if err != nil {
		logger.Fatal("setup error: %v", err)
	}
	if len(identifiers) == 0 {
		logger.Fatal("setup error: asin file %s contains no usable identifiers", *asinsFile)
	}

	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		logger.Fatal("setup error: failed to connect to postgres: %v", err)
	}
	if err := db.Migrate(pgDB); err != nil {
		logger.Fatal("setup error: failed to migrate schema: %v", err)
	}

	platformID, err := services.EnsurePlatform(pgDB, cfg.Sync.PlatformName)
	if err != nil {
		logger.Fatal("setup error: failed to ensure platform %s: %v", cfg.Sync.PlatformName, err)
	}

	// One token bucket shared across every worker, so the aggregate request
	// rate stays under the provider's ceiling.
	limiter := rate.NewLimiter(rate.Limit(cfg.Sync.RequestsPerSecond), 1)
	fetcher := keepa.NewClient(cfg, limiter)
	reconciler := services.NewReconciler(pgDB, platformID)
	coordinator := services.NewCoordinator(fetcher, reconciler, cfg.Sync.Workers, cfg.Sync.MaxFailureDetails)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary := coordinator.Run(ctx, identifiers)

	logger.Info("Sync run %s finished in %s: attempted=%d succeeded=%d skipped=%d failed=%d",
		summary.RunID,
		summary.FinishedAt.Sub(summary.StartedAt).Round(0),
		summary.Attempted, summary.Succeeded, summary.Skipped, summary.Failed)
	for _, f := range summary.Failures {
		logger.Error("  %s [%s] %s", f.ASIN, f.Kind, f.Message)
	}
	if summary.Failed > len(summary.Failures) {
		logger.Error("  ... and %d more failures not shown", summary.Failed-len(summary.Failures))
	}

	// Drop the cached default listing so the API serves fresh data.
	if cfg.Redis.URL != "" && summary.Succeeded > 0 {
		if redisClient, err := db.ConnectRedis(cfg); err != nil {
			logger.Error("⚠️ Could not invalidate listing cache: %v", err)
		} else {
			if err := redisClient.Del(context.Background(), services.CacheKeyDefaultProductList).Err(); err != nil {
				logger.Error("⚠️ Could not invalidate listing cache: %v", err)
			}
			_ = redisClient.Close()
		}
	}

	if summary.OverallFailed() {
		logger.Fatal("❌ Sync run %s failed: nothing succeeded", summary.RunID)
	}
	logger.Info("✅ Sync run %s completed", summary.RunID)
}
