package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mrlokans/gallery/internal/audit"
	"github.com/mrlokans/gallery/internal/config"
	"github.com/mrlokans/gallery/internal/database"
	auditrepo "github.com/mrlokans/gallery/internal/database/audit"
	"github.com/mrlokans/gallery/internal/gallery"
	"github.com/mrlokans/gallery/internal/scheduler"
	"github.com/mrlokans/gallery/internal/tasks"
)

// App is the wired persistence core: the database, the audit sink and the
// gallery service that reports into it.
type App struct {
	Config  *config.Config
	DB      *database.Database
	Audit   *audit.Service
	Gallery *gallery.Service
}

// NewApp opens the database and builds the services on top of it.
func NewApp(cfg *config.Config) (*App, error) {
	db, err := database.NewDatabase(cfg.Database.Path, database.WithLogLevel(cfg.Database.LogLevel))
	if err != nil {
		return nil, err
	}

	auditService := audit.NewService(auditrepo.NewRepository(db.DB))

	opts := []gallery.Option{gallery.WithMaxRetries(cfg.Database.MaxConcurrencyRetries)}
	if cfg.Audit.SnapshotDir != "" {
		opts = append(opts, gallery.WithSnapshots(audit.NewSnapshotter(cfg.Audit.SnapshotDir)))
	}

	return &App{
		Config:  cfg,
		DB:      db,
		Audit:   auditService,
		Gallery: gallery.NewService(db.DB, auditService, opts...),
	}, nil
}

// Close waits for pending audit writes and closes the database.
func (a *App) Close() error {
	a.Audit.Wait()
	return a.DB.Close()
}

// Queues returns the background queues served by this app.
func (a *App) Queues() []backlite.Queue {
	return []backlite.Queue{
		tasks.NewCleanupOrphanTagsQueue(a.Gallery, a.Audit),
		tasks.NewPruneAuditTrailQueue(a.Audit, a.Audit, a.Config.Audit.RetentionDays),
		tasks.NewDeleteAlbumQueue(a.Gallery, a.Audit),
	}
}

// NewTaskClient opens the task queue next to the main database and registers
// the app's queues on it.
func NewTaskClient(cfg *config.Config, app *App) (*tasks.Client, error) {
	client, err := tasks.NewClient(cfg.Database.Path, tasks.Config{
		Workers:         cfg.Tasks.Workers,
		ReleaseAfter:    cfg.Tasks.ReleaseAfter,
		CleanupInterval: cfg.Tasks.CleanupInterval,
	})
	if err != nil {
		return nil, err
	}
	client.Register(app.Queues()...)
	return client, nil
}

// Enqueuer adapts a task client to the scheduler's enqueue hook.
func Enqueuer(client *tasks.Client) scheduler.Enqueue {
	return func(task backlite.Task) error {
		_, err := client.Add(task).Save()
		return err
	}
}

// Run starts the worker process and blocks until SIGINT or SIGTERM.
func Run(cfg *config.Config, version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Serve(ctx, cfg, version)
}

// Serve runs the background workers, the maintenance scheduler and the
// optional metrics listener until ctx is cancelled, then shuts them down
// within the configured timeout.
func Serve(ctx context.Context, cfg *config.Config, version string) error {
	log.Info().Str("version", version).Msg("starting gallery")

	app, err := NewApp(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error().Err(err).Msg("error closing database")
		}
	}()

	var taskClient *tasks.Client
	var maintenance *scheduler.MaintenanceScheduler
	if cfg.Tasks.Enabled {
		taskClient, err = NewTaskClient(cfg, app)
		if err != nil {
			return fmt.Errorf("failed to initialize task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Error().Err(err).Msg("error closing task client")
			}
		}()
		taskClient.Start(ctx)

		maintenance = scheduler.NewMaintenanceScheduler(Enqueuer(taskClient), scheduler.Config{
			TagSweepEnabled:    cfg.TagSweep.Enabled,
			TagSweepSchedule:   cfg.TagSweep.Schedule,
			AuditCleanup:       cfg.Audit.CleanupSchedule,
			AuditRetentionDays: cfg.Audit.RetentionDays,
		})
		if err := maintenance.Start(ctx); err != nil {
			taskClient.Stop(ctx)
			return fmt.Errorf("failed to start maintenance scheduler: %w", err)
		}
	} else {
		log.Warn().Msg("task queue disabled, scheduled maintenance will not run")
	}

	g, gctx := errgroup.WithContext(ctx)

	var srv *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			log.Info().Str("addr", cfg.Metrics.Addr).Msg("serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics listener: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second
		log.Info().Dur("timeout", timeout).Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if maintenance != nil {
			maintenance.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(shutdownCtx)
		}
		if srv != nil {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("metrics shutdown: %w", err)
			}
		}
		return nil
	})

	err = g.Wait()
	log.Info().Msg("gallery exiting")
	return err
}

