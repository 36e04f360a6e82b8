package queue

import (
	"context"
	"log/slog"
	"runtime/debug"
)

// PanicHandler decides what happens after a worker panics.
type PanicHandler interface {
	// HandlePanic returns true to keep the worker running.
	HandlePanic(workerID string, panicValue any, stackTrace []byte) bool
}

// DefaultPanicHandler logs the panic and keeps the worker.
type DefaultPanicHandler struct {
	logger *slog.Logger
}

// NewDefaultPanicHandler returns the default panic handler.
func NewDefaultPanicHandler(logger *slog.Logger) *DefaultPanicHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultPanicHandler{logger: logger}
}

// HandlePanic logs the stack trace.
func (h *DefaultPanicHandler) HandlePanic(workerID string, panicValue any, stackTrace []byte) bool {
	h.logger.ErrorContext(context.Background(), "PANIC in worker",
		slog.String("worker_id", workerID),
		slog.Any("panic", panicValue),
		slog.String("stack_trace", string(stackTrace)))
	return true
}

// MetricsPanicHandler counts panics before delegating.
type MetricsPanicHandler struct {
	wrapped PanicHandler
}

// NewMetricsPanicHandler wraps another handler.
func NewMetricsPanicHandler(wrapped PanicHandler) *MetricsPanicHandler {
	return &MetricsPanicHandler{wrapped: wrapped}
}

// HandlePanic increments the panic counter.
func (h *MetricsPanicHandler) HandlePanic(workerID string, panicValue any, stackTrace []byte) bool {
	workerPanics.Inc()
	if h.wrapped != nil {
		return h.wrapped.HandlePanic(workerID, panicValue, stackTrace)
	}
	return true
}

// handleRecoveredPanic reports a recovered panic and says whether the
// worker should continue.
func handleRecoveredPanic(workerID string, panicValue any, handler PanicHandler) bool {
	if handler == nil {
		handler = NewDefaultPanicHandler(nil)
	}
	return handler.HandlePanic(workerID, panicValue, debug.Stack())
}
