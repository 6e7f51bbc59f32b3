package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/persistorai/trail/internal/api"
	"github.com/persistorai/trail/internal/config"
	"github.com/persistorai/trail/internal/db"
	"github.com/persistorai/trail/internal/db/migrations"
	"github.com/persistorai/trail/internal/dbpool"
	"github.com/persistorai/trail/internal/domain"
	"github.com/persistorai/trail/internal/retention"
	"github.com/persistorai/trail/internal/service"
	"github.com/persistorai/trail/internal/store"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the trail HTTP server",
		Long: "Run the trail HTTP server. Configuration is read from the environment. " +
			"Retention limits reload on SIGHUP and whenever TRAIL_LIMITS_FILE changes.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log
}

func logWarnings(log *logrus.Logger, warnings []string) {
	for _, w := range warnings {
		log.WithField("warning", w).Warn("retention.config")
	}
}

func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := newLogger(cfg.LogLevel)
	logWarnings(log, cfg.Warnings)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.RunMigrations(ctx, cfg.DatabaseURL.Value(), log, migrations.FS); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value(), cfg.DBMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	versions := store.NewVersionStore(store.Base{Pool: pool, Log: log})
	cleaner := retention.NewCleaner(versions, log)
	svc := service.NewVersionService(versions, cleaner, cfg.Retention, cfg.SweepWorkers, log)
	sweeps := service.NewSweepWorker(svc, log, cfg.SweepQueueSize)

	var scheduler *service.SweepScheduler
	if cfg.SweepSchedule != "" {
		if scheduler, err = service.NewSweepScheduler(cfg.SweepSchedule, svc, sweeps, log); err != nil {
			return err
		}
	}

	gin.SetMode(gin.ReleaseMode)

	router := api.NewRouter(ctx, &api.RouterDeps{
		Log:           log,
		DB:            pool,
		Versions:      svc,
		Sweeps:        sweeps,
		CORSOrigins:   cfg.CORSOrigins,
		APIKey:        cfg.APIKey.Value(),
		Version:       config.Version,
		SchemaVersion: db.SchemaVersion(),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sweeps.Run(gctx)
		return nil
	})

	g.Go(func() error {
		watchReload(gctx, cfg.LimitsFile, svc, sweeps, log)
		return nil
	})

	if cfg.LimitsFile != "" {
		g.Go(func() error {
			err := config.WatchLimitsFile(gctx, cfg.LimitsFile, log, func() {
				reloadRetention(cfg.LimitsFile, svc, sweeps, log)
			})
			if err != nil {
				log.WithError(err).Warn("retention.watch: disabled, use SIGHUP to reload")
			}
			return nil
		})
	}

	if scheduler != nil {
		g.Go(func() error {
			scheduler.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"addr":    cfg.Addr(),
			"version": config.Version,
			"policy":  cfg.Retention.Policy,
		}).Info("server.start")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info("server.shutdown")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// settingsSetter swaps the live retention settings.
type settingsSetter interface {
	SetSettings(retention.Settings)
}

// watchReload reloads retention settings on SIGHUP until ctx is done.
func watchReload(ctx context.Context, limitsFile string, svc settingsSetter, sweeps domain.SweepEnqueuer, log *logrus.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			reloadRetention(limitsFile, svc, sweeps, log)
		}
	}
}

// reloadRetention re-reads the retention environment and limits file. On
// error the previous settings stay in force. Every overridden item type is
// queued for a sweep so tightened limits apply without waiting for writes.
func reloadRetention(limitsFile string, svc settingsSetter, sweeps domain.SweepEnqueuer, log *logrus.Logger) {
	settings, warnings, err := config.LoadRetention(limitsFile)
	if err != nil {
		log.WithError(err).Error("retention.reload: keeping previous settings")
		return
	}

	logWarnings(log, warnings)
	svc.SetSettings(settings)

	queued := 0
	for _, itemType := range settings.OverriddenTypes() {
		if sweeps.Enqueue(itemType) {
			queued++
		}
	}

	log.WithFields(logrus.Fields{
		"policy":        settings.Policy,
		"item_types":    len(settings.Overrides),
		"sweeps_queued": queued,
	}).Info("retention.reload")
}
