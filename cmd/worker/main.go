package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/homelink/marketplace/internal/clock"
	"github.com/homelink/marketplace/internal/config"
	"github.com/homelink/marketplace/internal/db"
	"github.com/homelink/marketplace/internal/repositories"
	"github.com/homelink/marketplace/internal/services"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	if err := cfg.Validate(log); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.SweepInterval <= 0 {
		log.Fatal("SWEEP_INTERVAL_SECONDS must be positive", zap.Duration("interval", cfg.SweepInterval))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, "marketplace-worker", log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Repos
	txManager := repositories.NewTxManager(pool)
	escrowRepo := repositories.NewEscrowRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	sweeper := services.NewSweepService(txManager, escrowRepo, auditRepo, clock.NewSystem(), cfg.OrphanEscrowGrace, cfg.SweepBatchSize, log)

	log.Info("worker started",
		zap.Duration("sweep_interval", cfg.SweepInterval),
		zap.Duration("orphan_grace", cfg.OrphanEscrowGrace),
	)

	sweepTicker := time.NewTicker(cfg.SweepInterval)
	defer sweepTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	runSweep(ctx, sweeper, log)
	for {
		select {
		case <-sweepTicker.C:
			runSweep(ctx, sweeper, log)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

func runSweep(ctx context.Context, sweeper *services.SweepService, log *zap.Logger) {
	removed, err := sweeper.Run(ctx)
	if err != nil {
		log.Error("orphan escrow sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		log.Info("orphan escrow sweep finished", zap.Int("removed", removed))
	}
}
