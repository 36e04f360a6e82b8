package queue

import "errors"

var (
	// ErrShuttingDown is returned once the manager stops accepting work.
	ErrShuttingDown = errors.New("queue manager shutting down")
	// ErrRateLimited is returned by Submit when a user floods the bot.
	ErrRateLimited = errors.New("user rate limited")
	// ErrSubmitTimeout is returned when the manager does not accept a
	// message in time.
	ErrSubmitTimeout = errors.New("timeout submitting message")
)
