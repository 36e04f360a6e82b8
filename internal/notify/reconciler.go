// Package notify re-runs every stored search in the background and pushes
// listings the user has not seen yet.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/Veraticus/flatscout/internal/bot"
	"github.com/Veraticus/flatscout/internal/catalog"
	"github.com/Veraticus/flatscout/internal/session"
	"github.com/Veraticus/flatscout/internal/telegram"
)

const (
	// JobName identifies the reconciler in the scheduler.
	JobName = "notify"
	// DefaultMaxPerCycle is the number of listings pushed to one user per cycle.
	DefaultMaxPerCycle = 1
	// DefaultPageSize matches the interactive page size.
	DefaultPageSize = 5
)

// Sender delivers a message to a chat.
type Sender interface {
	SendMessage(ctx context.Context, msg tgbotapi.MessageConfig) (int, error)
}

// Outcome is the result of reconciling one user.
type Outcome string

// Per-user outcomes.
const (
	OutcomeUpToDate  Outcome = "up_to_date"
	OutcomeDelivered Outcome = "delivered"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeRemoved   Outcome = "removed"
	OutcomeFailed    Outcome = "failed"
)

// CycleStats summarizes one pass over all sessions.
type CycleStats struct {
	Outcomes  map[Outcome]int
	ID        string
	Duration  time.Duration
	Users     int
	Delivered int
}

// Reconciler delivers unseen listings for every stored session.
type Reconciler struct {
	store       session.Store
	gateway     catalog.Gateway
	sender      Sender
	logger      *slog.Logger
	pageSize    int
	maxPerCycle int
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithPageSize sets the catalog page size used for the re-query.
func WithPageSize(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.pageSize = n
		}
	}
}

// WithMaxPerCycle caps the listings pushed to one user per cycle.
func WithMaxPerCycle(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.maxPerCycle = n
		}
	}
}

// NewReconciler creates a reconciler.
func NewReconciler(store session.Store, gateway catalog.Gateway, sender Sender, opts ...Option) (*Reconciler, error) {
	if store == nil {
		return nil, fmt.Errorf("session store cannot be nil")
	}
	if gateway == nil {
		return nil, fmt.Errorf("catalog gateway cannot be nil")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender cannot be nil")
	}

	r := &Reconciler{
		store:       store,
		gateway:     gateway,
		sender:      sender,
		logger:      slog.Default(),
		pageSize:    DefaultPageSize,
		maxPerCycle: DefaultMaxPerCycle,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(slog.String("component", "notify"))
	return r, nil
}

// Name implements scheduler.JobHandler.
func (r *Reconciler) Name() string { return JobName }

// Execute implements scheduler.JobHandler.
func (r *Reconciler) Execute(ctx context.Context) error {
	_, err := r.RunCycle(ctx)
	return err
}

// RunCycle reconciles every stored session once. A failure for one user
// never stops the others; only listing the sessions can fail the cycle.
func (r *Reconciler) RunCycle(ctx context.Context) (CycleStats, error) {
	start := time.Now()
	stats := CycleStats{ID: uuid.NewString(), Outcomes: make(map[Outcome]int)}
	logger := r.logger.With(slog.String("cycle_id", stats.ID))

	sessions, err := r.store.List(ctx)
	if err != nil {
		cycles.WithLabelValues("error").Inc()
		return stats, fmt.Errorf("failed to list sessions: %w", err)
	}

	for _, s := range sessions {
		if ctx.Err() != nil {
			break
		}
		outcome, delivered := r.reconcile(ctx, logger, s)
		stats.Users++
		stats.Delivered += delivered
		stats.Outcomes[outcome]++
		users.WithLabelValues(string(outcome)).Inc()
	}

	stats.Duration = time.Since(start)
	cycles.WithLabelValues("ok").Inc()
	cycleDuration.Observe(stats.Duration.Seconds())
	logger.InfoContext(ctx, "Notification cycle finished",
		slog.Int("users", stats.Users),
		slog.Int("delivered", stats.Delivered),
		slog.Int("removed", stats.Outcomes[OutcomeRemoved]),
		slog.Int("skipped", stats.Outcomes[OutcomeSkipped]),
		slog.Duration("duration", stats.Duration))
	return stats, ctx.Err()
}

// reconcile works from the listed snapshot of s and only touches the store
// again for the final notified-set update or the unreachable-user removal.
func (r *Reconciler) reconcile(ctx context.Context, logger *slog.Logger, s *session.Session) (Outcome, int) {
	logger = logger.With(slog.Int64("user_id", s.UserID))

	res, err := r.gateway.Search(ctx, catalog.QueryFrom(s), s.CurrentPage, r.pageSize)
	if err != nil {
		logger.WarnContext(ctx, "Search failed, skipping user", slog.Any("error", err))
		return OutcomeSkipped, 0
	}

	candidates := s.Unseen(res.Items)
	if len(candidates) == 0 {
		return OutcomeUpToDate, 0
	}
	if len(candidates) > r.maxPerCycle {
		candidates = candidates[:r.maxPerCycle]
	}

	var delivered []int64
	for _, id := range candidates {
		item, err := r.gateway.Detail(ctx, id)
		if err != nil {
			logger.WarnContext(ctx, "Failed to load listing",
				slog.Int64("listing_id", id),
				slog.Any("error", err))
			deliveries.WithLabelValues("detail_error").Inc()
			continue
		}

		_, err = r.sender.SendMessage(ctx, bot.ItemCard(s.UserID, item, s, true))
		switch {
		case telegram.IsRecipientUnreachable(err):
			deliveries.WithLabelValues("unreachable").Inc()
			return r.remove(ctx, logger, s.UserID, err), len(delivered)
		case err != nil:
			deliveries.WithLabelValues("transient").Inc()
			logger.WarnContext(ctx, "Delivery failed",
				slog.Int64("listing_id", id),
				slog.Any("error", err))
			continue
		}
		deliveries.WithLabelValues("delivered").Inc()
		delivered = append(delivered, id)
	}

	if len(delivered) == 0 {
		return OutcomeFailed, 0
	}

	err = session.Update(ctx, r.store, s.UserID, func(latest *session.Session) error {
		latest.MarkNotified(delivered...)
		return nil
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to record delivered listings",
			slog.Any("listings", delivered),
			slog.Any("error", err))
		return OutcomeFailed, len(delivered)
	}
	logger.InfoContext(ctx, "Delivered new listings", slog.Any("listings", delivered))
	return OutcomeDelivered, len(delivered)
}

func (r *Reconciler) remove(ctx context.Context, logger *slog.Logger, userID int64, cause error) Outcome {
	logger.InfoContext(ctx, "User unreachable, removing session", slog.Any("error", cause))
	if err := r.store.Delete(ctx, userID); err != nil && !errors.Is(err, session.ErrNotFound) {
		logger.ErrorContext(ctx, "Failed to remove session", slog.Any("error", err))
		return OutcomeFailed
	}
	return OutcomeRemoved
}
