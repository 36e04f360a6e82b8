package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Poller backoff bounds.
const (
	pollBackoffMin = time.Second
	pollBackoffMax = time.Minute
)

// UpdateSource is the long-polling half of the client.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]tgbotapi.Update, int, error)
}

// UpdateSink receives every update in arrival order.
type UpdateSink interface {
	Submit(ctx context.Context, u tgbotapi.Update) error
}

// Poller pulls updates from the Bot API and hands them to a sink.
type Poller struct {
	source  UpdateSource
	sink    UpdateSink
	logger  *slog.Logger
	timeout time.Duration
	mu      sync.Mutex
	running bool
}

// PollerOption configures the poller.
type PollerOption func(*Poller)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) PollerOption {
	return func(p *Poller) {
		p.logger = logger
	}
}

// WithPollTimeout sets the server-side long-poll timeout.
func WithPollTimeout(d time.Duration) PollerOption {
	return func(p *Poller) {
		p.timeout = d
	}
}

// NewPoller creates a poller.
func NewPoller(source UpdateSource, sink UpdateSink, opts ...PollerOption) (*Poller, error) {
	if source == nil {
		return nil, fmt.Errorf("update source is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("update sink is required")
	}

	p := &Poller{
		source:  source,
		sink:    sink,
		logger:  slog.Default(),
		timeout: DefaultPollTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(slog.String("component", "telegram.poller"))
	return p, nil
}

// Run polls until ctx is canceled. Failed polls are retried with
// exponential backoff.
func (p *Poller) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("poller already running")
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	p.logger.InfoContext(ctx, "telegram poller started")

	var offset int
	backoff := pollBackoffMin
	for {
		if ctx.Err() != nil {
			p.logger.InfoContext(ctx, "telegram poller stopping")
			return nil
		}

		updates, next, err := p.source.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			wait := backoff
			if secs := RetryAfter(err); secs > 0 {
				wait = time.Duration(secs) * time.Second
			}
			p.logger.WarnContext(ctx, "failed to poll updates",
				slog.Any("error", err),
				slog.Duration("retry_in", wait))
			if !sleep(ctx, wait) {
				continue
			}
			backoff = min(backoff*2, pollBackoffMax)
			continue
		}
		backoff = pollBackoffMin
		offset = next

		for _, u := range updates {
			p.dispatch(ctx, u)
		}
	}
}

func (p *Poller) dispatch(ctx context.Context, u tgbotapi.Update) {
	userID := UserID(u)
	if userID == 0 {
		p.logger.DebugContext(ctx, "ignoring update without sender", slog.Int("update_id", u.UpdateID))
		return
	}
	if err := p.sink.Submit(ctx, u); err != nil {
		level := slog.LevelError
		if errors.Is(err, context.Canceled) {
			level = slog.LevelDebug
		}
		p.logger.Log(ctx, level, "failed to submit update",
			slog.Int("update_id", u.UpdateID),
			slog.Int64("user_id", userID),
			slog.Any("error", err))
	}
}

// IsRunning reports whether Run is active.
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
