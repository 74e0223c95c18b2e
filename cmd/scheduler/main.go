package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/launchbase/launchbase/config"
	"github.com/launchbase/launchbase/internal/application"
	"github.com/launchbase/launchbase/internal/backup"
	pginfra "github.com/launchbase/launchbase/internal/infrastructure/postgres"
	"github.com/launchbase/launchbase/pkg/helpers"
)

const jobTimeout = 30 * time.Minute

// The scheduler runs the recurring maintenance jobs: the unverified-account
// sweep, database backups, backup retention cleanup and the token vacuum.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-scheduler", cfg.Env)

	ctx := context.Background()
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	sweeper := application.NewSweeper(
		pginfra.NewUserRepository(pool),
		pginfra.NewTokenRepository(pool),
		cfg.UnverifiedGrace,
		logger,
	)

	c := cron.New()

	mustAdd := func(name, spec string, job func(context.Context) error) {
		_, err := c.AddFunc(spec, func() {
			jctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			if err := job(jctx); err != nil {
				logger.WithError(err).Errorf("%s failed", name)
			}
		})
		if err != nil {
			log.Fatalf("invalid cron spec for %s (%q): %v", name, spec, err)
		}
		logger.Infof("scheduled %s at %q", name, spec)
	}

	mustAdd("unverified account sweep", cfg.SweepSchedule, func(ctx context.Context) error {
		_, err := sweeper.Sweep(ctx)
		return err
	})
	mustAdd("token vacuum", cfg.TokenVacuumSchedule, func(ctx context.Context) error {
		_, err := sweeper.VacuumTokens(ctx)
		return err
	})

	if cfg.GCSBucket != "" {
		gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			log.Fatalf("failed to init GCS client: %v", err)
		}
		defer func() { _ = gcsClient.Close() }()

		backups := backup.NewService(gcsClient, cfg, logger)
		mustAdd("database backup", cfg.BackupSchedule, backups.Run)
		mustAdd("backup retention cleanup", cfg.BackupCleanupSchedule, func(ctx context.Context) error {
			_, err := backups.Cleanup(ctx)
			return err
		})
	} else {
		logger.Warn("GCS_BUCKET not set, database backups disabled")
	}

	c.Start()
	logger.Info("scheduler started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("stopping scheduler, waiting for running jobs")
	<-c.Stop().Done()
	logger.Info("scheduler exited")
}
