package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Veraticus/flatscout/internal/telegram"
)

const (
	incomingBuffer         = 100
	requestBuffer          = 10
	defaultSubmitTimeout   = 5 * time.Second
	defaultCleanupInterval = 10 * time.Minute
	defaultStaleAfter      = time.Hour
)

// workerRequest registers a worker's reply channel, or withdraws it once
// the worker stops waiting. Both travel over one channel so the manager
// sees them in the order the worker sent them.
type workerRequest struct {
	reply    chan *Message
	withdraw bool
}

// Stats is a point-in-time view of the manager.
type Stats struct {
	Users          int
	Pending        int
	Processing     int
	WaitingWorkers int
}

// Manager keeps one FIFO per user and hands messages to workers so that a
// user never has two updates in flight. Users are served round-robin.
type Manager struct {
	logger          *slog.Logger
	limiter         *RateLimiter
	queues          map[int64]*ConversationQueue
	incomingCh      chan *Message
	requestCh       chan workerRequest
	completeCh      chan *Message
	stopped         chan struct{}
	order           []int64
	waiting         []chan *Message
	submitTimeout   time.Duration
	cleanupInterval time.Duration
	staleAfter      time.Duration
	next            int
	mu              sync.RWMutex
	stopOnce        sync.Once
	running         bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithRateLimiter replaces the per-user flood limiter. Passing nil disables
// flood control.
func WithRateLimiter(rl *RateLimiter) ManagerOption {
	return func(m *Manager) {
		m.limiter = rl
	}
}

// WithSubmitTimeout bounds how long Submit waits for the manager loop.
func WithSubmitTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.submitTimeout = d
		}
	}
}

// WithCleanupInterval sets how often idle rate buckets are dropped.
func WithCleanupInterval(interval, staleAfter time.Duration) ManagerOption {
	return func(m *Manager) {
		if interval > 0 {
			m.cleanupInterval = interval
		}
		if staleAfter > 0 {
			m.staleAfter = staleAfter
		}
	}
}

// NewManager creates a queue manager. Call Run to start dispatching.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		logger:          slog.Default(),
		limiter:         DefaultRateLimiter(),
		queues:          make(map[int64]*ConversationQueue),
		incomingCh:      make(chan *Message, incomingBuffer),
		requestCh:       make(chan workerRequest, requestBuffer),
		completeCh:      make(chan *Message, requestBuffer),
		stopped:         make(chan struct{}),
		submitTimeout:   defaultSubmitTimeout,
		cleanupInterval: defaultCleanupInterval,
		staleAfter:      defaultStaleAfter,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(slog.String("component", "queue"))
	return m
}

// Run owns the queues until ctx is canceled. It always returns nil after
// a clean shutdown.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("queue manager already running")
	}
	m.running = true
	m.mu.Unlock()

	defer m.stop()

	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	m.logger.InfoContext(ctx, "queue manager started")
	for {
		select {
		case <-ctx.Done():
			m.logger.InfoContext(ctx, "queue manager stopping", slog.Int("pending", m.Stats().Pending))
			return nil

		case msg := <-m.incomingCh:
			m.enqueue(ctx, msg)
			m.dispatch()

		case req := <-m.requestCh:
			if req.withdraw {
				m.withdraw(ctx, req.reply)
			} else {
				m.mu.Lock()
				m.waiting = append(m.waiting, req.reply)
				m.mu.Unlock()
			}
			m.dispatch()

		case msg := <-m.completeCh:
			m.complete(msg)
			m.dispatch()

		case <-ticker.C:
			if m.limiter != nil {
				if n := m.limiter.CleanupStale(m.staleAfter); n > 0 {
					m.logger.DebugContext(ctx, "dropped idle rate buckets", slog.Int("count", n))
				}
			}
		}
	}
}

// Submit queues an update behind any earlier updates from the same user.
func (m *Manager) Submit(ctx context.Context, u tgbotapi.Update) error {
	userID := telegram.UserID(u)
	if userID == 0 {
		return fmt.Errorf("cannot submit update %d without a sender", u.UpdateID)
	}

	select {
	case <-m.stopped:
		messagesSubmitted.WithLabelValues("shutdown").Inc()
		return ErrShuttingDown
	default:
	}

	if m.limiter != nil && !m.limiter.Allow(userID) {
		messagesSubmitted.WithLabelValues("rate_limited").Inc()
		return fmt.Errorf("%w: user %d", ErrRateLimited, userID)
	}

	msg := NewMessage(u)
	timer := time.NewTimer(m.submitTimeout)
	defer timer.Stop()

	select {
	case m.incomingCh <- msg:
		messagesSubmitted.WithLabelValues("accepted").Inc()
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to submit update: %w", ctx.Err())
	case <-m.stopped:
		messagesSubmitted.WithLabelValues("shutdown").Inc()
		return ErrShuttingDown
	case <-timer.C:
		messagesSubmitted.WithLabelValues("timeout").Inc()
		return ErrSubmitTimeout
	}
}

// RequestMessage blocks until a message is available for a worker. The
// caller must pass the message to Complete when done with it. When ctx ends
// first the request is withdrawn, and a message already handed to it goes
// back to the head of its user's queue.
func (m *Manager) RequestMessage(ctx context.Context) (*Message, error) {
	reply := make(chan *Message, 1)

	select {
	case m.requestCh <- workerRequest{reply: reply}:
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to request message: %w", ctx.Err())
	case <-m.stopped:
		return nil, ErrShuttingDown
	}

	select {
	case msg := <-reply:
		return msg, nil
	case <-ctx.Done():
		select {
		case m.requestCh <- workerRequest{reply: reply, withdraw: true}:
		case <-m.stopped:
		}
		return nil, fmt.Errorf("failed to request message: %w", ctx.Err())
	case <-m.stopped:
		return nil, ErrShuttingDown
	}
}

// Complete releases the user's in-flight slot so their next update can run.
func (m *Manager) Complete(msg *Message) error {
	if msg == nil {
		return errors.New("cannot complete nil message")
	}
	select {
	case m.completeCh <- msg:
		return nil
	case <-m.stopped:
		return ErrShuttingDown
	}
}

// Stats reports queue depth.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{Users: len(m.queues), WaitingWorkers: len(m.waiting)}
	for _, q := range m.queues {
		s.Pending += q.Size()
		if q.IsProcessing() {
			s.Processing++
		}
	}
	return s
}

func (m *Manager) stop() {
	m.stopOnce.Do(func() {
		close(m.stopped)
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	})
}

func (m *Manager) enqueue(ctx context.Context, msg *Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.queues[msg.UserID]
	if !ok {
		q = NewConversationQueue(msg.UserID)
		m.queues[msg.UserID] = q
		m.order = append(m.order, msg.UserID)
	}
	if err := q.Enqueue(msg); err != nil {
		m.logger.ErrorContext(ctx, "failed to enqueue message",
			slog.String("message_id", msg.ID),
			slog.Any("error", err))
		return
	}
	queueDepth.Inc()
}

func (m *Manager) complete(msg *Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.queues[msg.UserID]
	if !ok {
		return
	}
	q.Complete()
	if q.IsEmpty() {
		m.remove(msg.UserID)
	}
}

// withdraw forgets an abandoned reply channel. If dispatch already filled
// it, the message is returned to its queue.
func (m *Manager) withdraw(ctx context.Context, reply chan *Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, ch := range m.waiting {
		if ch == reply {
			m.waiting = append(m.waiting[:i], m.waiting[i+1:]...)
			return
		}
	}

	select {
	case msg := <-reply:
		q, ok := m.queues[msg.UserID]
		if !ok {
			return
		}
		if err := q.Requeue(msg); err != nil {
			m.logger.ErrorContext(ctx, "failed to requeue message",
				slog.String("message_id", msg.ID),
				slog.Any("error", err))
			return
		}
		queueDepth.Inc()
		m.logger.DebugContext(ctx, "requeued message from abandoned request",
			slog.String("message_id", msg.ID),
			slog.Int64("user_id", msg.UserID))
	default:
	}
}

// dispatch pairs waiting workers with runnable users.
func (m *Manager) dispatch() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.waiting) > 0 {
		msg := m.nextLocked()
		if msg == nil {
			return
		}
		workerCh := m.waiting[0]
		m.waiting = m.waiting[1:]
		queueDepth.Dec()
		// Reply channels are buffered, so this never blocks.
		workerCh <- msg
	}
}

// nextLocked picks the next runnable message in round-robin user order.
func (m *Manager) nextLocked() *Message {
	for range len(m.order) {
		if m.next >= len(m.order) {
			m.next = 0
		}
		userID := m.order[m.next]
		m.next++

		q, ok := m.queues[userID]
		if !ok {
			continue
		}
		if msg := q.Dequeue(); msg != nil {
			return msg
		}
	}
	return nil
}

func (m *Manager) remove(userID int64) {
	delete(m.queues, userID)
	for i, id := range m.order {
		if id != userID {
			continue
		}
		m.order = append(m.order[:i], m.order[i+1:]...)
		if m.next > i {
			m.next--
		}
		return
	}
}
