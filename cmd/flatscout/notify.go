package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/flatscout/internal/catalog"
	"github.com/Veraticus/flatscout/internal/config"
	"github.com/Veraticus/flatscout/internal/notify"
	"github.com/Veraticus/flatscout/internal/session"
)

// NewNotifyCommand creates the notify command.
func NewNotifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Run one notification cycle and exit",
		Long: `Run a single reconciliation cycle over every stored session, delivering
at most the configured number of new listings per user, then print a summary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			store, closeStore, err := openStore(cfg.Store)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			gateway, err := newCatalog(cfg.Catalog, logger)
			if err != nil {
				return err
			}
			tg, err := newTelegram(cfg.Telegram, logger)
			if err != nil {
				return err
			}
			return runNotify(cmd.Context(), cmd.OutOrStdout(), cfg, store, gateway, tg, logger)
		},
	}
}

func runNotify(ctx context.Context, out io.Writer, cfg *config.Config, store session.Store,
	gateway catalog.Gateway, sender notify.Sender, logger *slog.Logger,
) error {
	reconciler, err := notify.NewReconciler(store, gateway, sender,
		notify.WithLogger(logger),
		notify.WithPageSize(cfg.Catalog.PageSize),
		notify.WithMaxPerCycle(cfg.Notifier.MaxPerCycle),
	)
	if err != nil {
		return fmt.Errorf("failed to create reconciler: %w", err)
	}

	stats, err := reconciler.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("notification cycle failed: %w", err)
	}

	fmt.Fprintf(out, "cycle %s: %d users, %d delivered in %s\n",
		stats.ID, stats.Users, stats.Delivered, stats.Duration.Round(time.Millisecond))
	outcomes := make([]string, 0, len(stats.Outcomes))
	for outcome := range stats.Outcomes {
		outcomes = append(outcomes, string(outcome))
	}
	sort.Strings(outcomes)
	for _, outcome := range outcomes {
		fmt.Fprintf(out, "  %-10s %d\n", outcome, stats.Outcomes[notify.Outcome(outcome)])
	}
	return nil
}
