package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/flatscout/internal/bot"
	"github.com/Veraticus/flatscout/internal/config"
	"github.com/Veraticus/flatscout/internal/cursor"
	"github.com/Veraticus/flatscout/internal/notify"
	"github.com/Veraticus/flatscout/internal/queue"
	"github.com/Veraticus/flatscout/internal/scheduler"
	"github.com/Veraticus/flatscout/internal/telegram"
)

// ShutdownTimeout is the maximum time to wait for the metrics server to stop.
const ShutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot",
		Long: `Run the bot: poll Telegram for updates, handle conversations on the
worker pool and deliver new listings in the background.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, logger)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.InfoContext(ctx, "FlatScout starting", slog.String("version", version))

	store, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("failed to close session store", slog.Any("error", err))
		}
	}()

	gateway, err := newCatalog(cfg.Catalog, logger)
	if err != nil {
		return err
	}
	tg, err := newTelegram(cfg.Telegram, logger)
	if err != nil {
		return err
	}

	engine, err := bot.NewEngine(bot.Config{
		Store:     store,
		Gateway:   gateway,
		Messenger: tg,
		Cursor:    cursor.New(gateway, cursor.WithPageSize(cfg.Catalog.PageSize)),
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create bot engine: %w", err)
	}

	var limiter *queue.RateLimiter
	if cfg.Queue.RateLimitBurst > 0 && cfg.Queue.RateLimitPeriod > 0 {
		limiter = queue.NewRateLimiter(cfg.Queue.RateLimitBurst, 1, cfg.Queue.RateLimitPeriod)
	}
	manager := queue.NewManager(
		queue.WithLogger(logger),
		queue.WithRateLimiter(limiter),
		queue.WithSubmitTimeout(cfg.Queue.SubmitTimeout),
	)
	pool, err := queue.NewPool(queue.PoolConfig{
		Source:      manager,
		Handler:     engine,
		Logger:      logger,
		Size:        cfg.Queue.Workers,
		PollTimeout: cfg.Queue.PollTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create worker pool: %w", err)
	}

	poller, err := telegram.NewPoller(tg, manager,
		telegram.WithLogger(logger),
		telegram.WithPollTimeout(cfg.Telegram.PollTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create poller: %w", err)
	}

	sched := scheduler.New(scheduler.WithLogger(logger))
	if cfg.Notifier.Enabled {
		reconciler, err := notify.NewReconciler(store, gateway, tg,
			notify.WithLogger(logger),
			notify.WithPageSize(cfg.Catalog.PageSize),
			notify.WithMaxPerCycle(cfg.Notifier.MaxPerCycle),
		)
		if err != nil {
			return fmt.Errorf("failed to create reconciler: %w", err)
		}
		if err := sched.Schedule(reconciler, cfg.Notifier.Warmup, cfg.Notifier.Interval); err != nil {
			return fmt.Errorf("failed to schedule reconciler: %w", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return manager.Run(ctx) })
	g.Go(func() error { return pool.Run(ctx) })
	g.Go(func() error { return poller.Run(ctx) })
	g.Go(func() error { return sched.Run(ctx) })
	if cfg.Metrics.Addr != "" {
		serveMetrics(ctx, g, cfg.Metrics.Addr, logger)
	}

	logger.InfoContext(ctx, "FlatScout started, listening for updates")
	err = g.Wait()
	logger.Info("FlatScout stopped")
	return err
}

// serveMetrics exposes /metrics until ctx is canceled.
func serveMetrics(ctx context.Context, g *errgroup.Group, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		logger.InfoContext(ctx, "metrics server listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		//nolint:contextcheck // the parent context is already canceled
		return srv.Shutdown(shutdownCtx)
	})
}
