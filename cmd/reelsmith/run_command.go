package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"reelsmith/internal/logging"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/queue"
)

func newRunCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the production daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			// One daemon per work directory; a second instance would race the
			// provider queues and the store.
			lock := flock.New(filepath.Join(cfg.Paths.WorkDir, "reelsmith.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire daemon lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another reelsmith daemon is already running for %s", cfg.Paths.WorkDir)
			}
			defer lock.Unlock()

			logger, err := logging.NewFromOptions(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir)
			if err != nil {
				return err
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			services := pipeline.NewServices(cfg, logger)
			handlers := pipeline.BuildHandlers(cfg, services, logger)
			scheduler := pipeline.NewScheduler(cfg, store, handlers, logger)

			if err := scheduler.Resume(ctx); err != nil {
				return err
			}
			logger.Info("daemon started",
				logging.String("work_dir", cfg.Paths.WorkDir),
				logging.String("store", store.Path()))

			pollInterval := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
			if pollInterval <= 0 {
				pollInterval = 5 * time.Second
			}
			ticker := time.NewTicker(pollInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					logger.Info("shutdown requested, draining in-flight work")
					scheduler.Wait()
					logger.Info("daemon stopped")
					return nil
				case <-ticker.C:
					adoptNewTasks(ctx, store, scheduler, logger)
					scheduler.SyncApprovals(ctx)
				}
			}
		},
	}
}

// adoptNewTasks hands tasks enqueued by the CLI to the scheduler.
func adoptNewTasks(ctx context.Context, store *queue.Store, scheduler *pipeline.Scheduler, logger *slog.Logger) {
	tasks, err := store.Unfinished(ctx)
	if err != nil {
		logger.Error("poll queue", logging.Error(err))
		return
	}
	for _, task := range tasks {
		if !scheduler.Tracking(task.ID) {
			scheduler.Adopt(ctx, task)
		}
	}
}
