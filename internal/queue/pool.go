package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	defaultWorkers = 4
	// DefaultPollTimeout bounds a single idle wait for work.
	DefaultPollTimeout = 30 * time.Second
)

// Handler processes one update. Updates of the same user are never passed
// to Handler concurrently.
type Handler interface {
	HandleUpdate(ctx context.Context, u tgbotapi.Update) error
}

// Source is the part of Manager a pool consumes.
type Source interface {
	RequestMessage(ctx context.Context) (*Message, error)
	Complete(msg *Message) error
}

// PoolConfig holds configuration for a Pool.
type PoolConfig struct {
	Source       Source
	Handler      Handler
	PanicHandler PanicHandler
	Logger       *slog.Logger
	Size         int
	PollTimeout  time.Duration
}

// Pool runs a fixed number of workers.
type Pool struct {
	source       Source
	handler      Handler
	panicHandler PanicHandler
	logger       *slog.Logger
	size         int
	pollTimeout  time.Duration
}

// NewPool validates config and creates a pool.
func NewPool(config PoolConfig) (*Pool, error) {
	if config.Source == nil {
		return nil, fmt.Errorf("source cannot be nil")
	}
	if config.Handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}
	if config.Size < 1 {
		config.Size = defaultWorkers
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = DefaultPollTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	logger := config.Logger.With(slog.String("component", "worker_pool"))
	if config.PanicHandler == nil {
		config.PanicHandler = NewMetricsPanicHandler(NewDefaultPanicHandler(logger))
	}

	return &Pool{
		source:       config.Source,
		handler:      config.Handler,
		panicHandler: config.PanicHandler,
		logger:       logger,
		size:         config.Size,
		pollTimeout:  config.PollTimeout,
	}, nil
}

// Run starts the workers and blocks until ctx is canceled and all of them
// have returned.
func (p *Pool) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := range p.size {
		id := fmt.Sprintf("worker-%d", i+1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.work(ctx, id)
		}()
	}
	p.logger.InfoContext(ctx, "worker pool started", slog.Int("workers", p.size))
	wg.Wait()
	p.logger.InfoContext(ctx, "worker pool stopped")
	return nil
}

func (p *Pool) work(ctx context.Context, id string) {
	for ctx.Err() == nil {
		reqCtx, cancel := context.WithTimeout(ctx, p.pollTimeout)
		msg, err := p.source.RequestMessage(reqCtx)
		cancel()

		// A message that arrived is always processed and completed, even
		// during shutdown, so its user is never left in flight.
		if msg != nil {
			if !p.process(ctx, id, msg) {
				return
			}
			continue
		}

		switch {
		case ctx.Err() != nil:
			return
		case errors.Is(err, ErrShuttingDown):
			return
		case errors.Is(err, context.DeadlineExceeded):
			continue
		case err != nil:
			p.logger.ErrorContext(ctx, "failed to request message",
				slog.String("worker_id", id),
				slog.Any("error", err))
		}
	}
}

// process handles msg and reports whether the worker should keep going.
func (p *Pool) process(ctx context.Context, id string, msg *Message) (keep bool) {
	start := time.Now()
	keep = true

	defer func() {
		if r := recover(); r != nil {
			messagesProcessed.WithLabelValues("panic").Inc()
			keep = handleRecoveredPanic(id, r, p.panicHandler)
		}
		handleDuration.Observe(time.Since(start).Seconds())
		if err := p.source.Complete(msg); err != nil && !errors.Is(err, ErrShuttingDown) {
			p.logger.ErrorContext(ctx, "failed to complete message",
				slog.String("message_id", msg.ID),
				slog.Any("error", err))
		}
	}()

	if err := p.handler.HandleUpdate(ctx, msg.Update); err != nil {
		messagesProcessed.WithLabelValues("error").Inc()
		p.logger.ErrorContext(ctx, "failed to handle update",
			slog.String("worker_id", id),
			slog.String("message_id", msg.ID),
			slog.Int64("user_id", msg.UserID),
			slog.Any("error", err))
		return keep
	}
	messagesProcessed.WithLabelValues("ok").Inc()
	return keep
}
