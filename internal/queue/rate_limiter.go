package queue

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultBurstSize = 5

type userLimiter struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// RateLimiter throttles each user independently with a token bucket.
type RateLimiter struct {
	users map[int64]*userLimiter
	limit rate.Limit
	burst int
	mu    sync.Mutex
}

// NewRateLimiter allows burst updates per user, refilled by refillRate
// tokens every refillPeriod.
func NewRateLimiter(burst, refillRate int, refillPeriod time.Duration) *RateLimiter {
	if refillRate < 1 {
		refillRate = 1
	}
	return &RateLimiter{
		users: make(map[int64]*userLimiter),
		limit: rate.Every(refillPeriod / time.Duration(refillRate)),
		burst: burst,
	}
}

// DefaultRateLimiter allows a burst of 5 updates, then one per second.
func DefaultRateLimiter() *RateLimiter {
	return NewRateLimiter(defaultBurstSize, 1, time.Second)
}

// Allow reports whether userID may submit another update now.
func (rl *RateLimiter) Allow(userID int64) bool {
	now := time.Now()

	rl.mu.Lock()
	u, ok := rl.users[userID]
	if !ok {
		u = &userLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.users[userID] = u
	}
	u.lastUsed = now
	rl.mu.Unlock()

	return u.limiter.AllowN(now, 1)
}

// CleanupStale forgets users idle for longer than maxAge and returns how
// many were removed. A forgotten user starts again with a full bucket.
func (rl *RateLimiter) CleanupStale(maxAge time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for userID, u := range rl.users {
		if u.lastUsed.Before(cutoff) {
			delete(rl.users, userID)
			removed++
		}
	}
	return removed
}

// Users returns the number of tracked users.
func (rl *RateLimiter) Users() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.users)
}
